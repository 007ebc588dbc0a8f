package optimizer

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// DoubleVector is a dense parameter vector.
//
// Add, Sub, Scale and Clone return new vectors and leave the receiver intact.
// AddScaled and Project modify the receiver. Binary operations panic when the
// lengths differ.
type DoubleVector []float64

// NewDoubleVector returns a zero vector of length n.
func NewDoubleVector(n int) DoubleVector {
	return make(DoubleVector, n)
}

// Clone returns a copy of v.
func (v DoubleVector) Clone() DoubleVector {
	out := make(DoubleVector, len(v))
	copy(out, v)
	return out
}

// Add returns v + u.
func (v DoubleVector) Add(u DoubleVector) DoubleVector {
	mustSameLen(v, u)
	out := make(DoubleVector, len(v))
	floats.AddTo(out, v, u)
	return out
}

// Sub returns v - u.
func (v DoubleVector) Sub(u DoubleVector) DoubleVector {
	mustSameLen(v, u)
	out := make(DoubleVector, len(v))
	floats.SubTo(out, v, u)
	return out
}

// Scale returns c * v.
func (v DoubleVector) Scale(c float64) DoubleVector {
	out := make(DoubleVector, len(v))
	floats.ScaleTo(out, c, v)
	return out
}

// AddScaled sets v = v + c*u.
func (v DoubleVector) AddScaled(c float64, u DoubleVector) {
	mustSameLen(v, u)
	floats.AddScaled(v, c, u)
}

// Dot returns the inner product of v and u.
func (v DoubleVector) Dot(u DoubleVector) float64 {
	mustSameLen(v, u)
	return floats.Dot(v, u)
}

// Norm returns the Euclidean norm of v.
func (v DoubleVector) Norm() float64 {
	return floats.Norm(v, 2)
}

// L1Norm returns the sum of absolute values of v.
func (v DoubleVector) L1Norm() float64 {
	return floats.Norm(v, 1)
}

// Project zeroes every entry of v whose sign does not agree with orthant.
// Entries where orthant is zero are zeroed as well.
func (v DoubleVector) Project(orthant DoubleVector) {
	mustSameLen(v, orthant)
	for i := range v {
		if v[i]*orthant[i] <= 0 {
			v[i] = 0
		}
	}
}

func mustSameLen(a, b DoubleVector) {
	if len(a) != len(b) {
		panic(fmt.Sprintf("optimizer: vector length mismatch %d != %d", len(a), len(b)))
	}
}
