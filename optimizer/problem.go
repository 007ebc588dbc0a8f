package optimizer

import (
	"errors"
	"math"

	"github.com/happyhackingspace/maxent/model"
	"gonum.org/v1/gonum/floats"
)

// ErrNoTrainingData is returned when a Problem has no training instances.
var ErrNoTrainingData = errors.New("optimizer: no training data")

// Problem is the objective of one training run: the negative mean
// log-likelihood of the training instances under a model, with an optional
// L2 penalty.
//
// A Problem borrows the model for the duration of training and writes every
// evaluated point into its weights.
type Problem struct {
	md      *model.ModelData
	train   []model.MemInstance
	heldout []model.MemInstance

	// per-instance strengths, configured value / len(train)
	l1, l2 float64

	empirical DoubleVector
	expected  DoubleVector
	dist      []float64

	trainAccuracy float64
}

// NewProblem prepares the objective for md over train. The regularization
// strengths are the configured ones; they are divided by len(train) here.
// Instances whose label is unknown to md are ignored.
func NewProblem(md *model.ModelData, train, heldout []model.MemInstance, l1, l2 float64) (*Problem, error) {
	p := &Problem{
		md:        md,
		heldout:   heldout,
		empirical: NewDoubleVector(md.NumFeatures()),
		expected:  NewDoubleVector(md.NumFeatures()),
		dist:      make([]float64, md.NumClasses()),
	}
	for _, mem := range train {
		if mem.LabelID >= 0 {
			p.train = append(p.train, mem)
		}
	}
	if len(p.train) == 0 {
		return nil, ErrNoTrainingData
	}
	n := float64(len(p.train))
	p.l1 = l1 / n
	p.l2 = l2 / n

	for _, mem := range p.train {
		for _, fv := range mem.Features {
			id := md.FeatureID(model.NewFeature(mem.LabelID, fv.NameID))
			if id >= 0 {
				p.empirical[id] += fv.Value
			}
		}
	}
	floats.Scale(1/n, p.empirical)
	return p, nil
}

// Dim returns the number of weights.
func (p *Problem) Dim() int { return p.md.NumFeatures() }

// NumTrain returns the number of training instances.
func (p *Problem) NumTrain() int { return len(p.train) }

// NumHeldout returns the number of held-out instances.
func (p *Problem) NumHeldout() int { return len(p.heldout) }

// L1 returns the per-instance L1 strength.
func (p *Problem) L1() float64 { return p.l1 }

// L2 returns the per-instance L2 strength.
func (p *Problem) L2() float64 { return p.l2 }

// Model returns the borrowed model.
func (p *Problem) Model() *model.ModelData { return p.md }

// Weights returns a copy of the model's current weights.
func (p *Problem) Weights() DoubleVector {
	return DoubleVector(p.md.Lambdas()).Clone()
}

// SetWeights copies x into the model.
func (p *Problem) SetWeights(x DoubleVector) {
	p.md.UpdateLambdas(x)
}

// EmpiricalExpectation returns the mean feature values of the training data.
// The returned vector must not be modified.
func (p *Problem) EmpiricalExpectation() DoubleVector { return p.empirical }

// TrainAccuracy returns the training accuracy recorded by the last
// FunctionGradient call.
func (p *Problem) TrainAccuracy() float64 { return p.trainAccuracy }

// FunctionGradient sets the model weights to x, stores the gradient of the
// objective in grad and returns the objective value.
func (p *Problem) FunctionGradient(x, grad DoubleVector) float64 {
	p.md.UpdateLambdas(x)
	for i := range p.expected {
		p.expected[i] = 0
	}

	var loglik float64
	correct := 0
	for _, mem := range p.train {
		best := p.md.CalcConditionalProbability(mem, p.dist)
		loglik += math.Log(p.dist[mem.LabelID])
		if best == mem.LabelID {
			correct++
		}
		for _, fv := range mem.Features {
			for _, id := range p.md.FeatureIDs(fv.NameID) {
				p.expected[id] += p.dist[p.md.FeatureAt(id).LabelID()] * fv.Value
			}
		}
	}
	n := float64(len(p.train))
	floats.Scale(1/n, p.expected)
	loglik /= n
	p.trainAccuracy = float64(correct) / n

	if p.l2 > 0 {
		loglik -= x.Dot(x) * p.l2
	}
	for i := range grad {
		grad[i] = p.expected[i] - p.empirical[i]
		if p.l2 > 0 {
			grad[i] += 2 * p.l2 * x[i]
		}
	}
	return -loglik
}

// Heldout scores the held-out instances with the current weights and returns
// their mean log-likelihood and accuracy. Both are zero without held-out data.
func (p *Problem) Heldout() (loglik, accuracy float64) {
	return p.score(p.heldout)
}

func (p *Problem) score(instances []model.MemInstance) (loglik, accuracy float64) {
	n := 0
	correct := 0
	for _, mem := range instances {
		if mem.LabelID < 0 {
			continue
		}
		best := p.md.CalcConditionalProbability(mem, p.dist)
		loglik += math.Log(p.dist[mem.LabelID])
		if best == mem.LabelID {
			correct++
		}
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return loglik / float64(n), float64(correct) / float64(n)
}
