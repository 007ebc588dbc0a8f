package optimizer

import (
	"context"
	"fmt"
	"log/slog"
)

// OWLQN minimizes the L1 regularized objective f(x) + C*|x|_1 with the
// orthant-wise limited-memory quasi-Newton method.
type OWLQN struct {
	config Config
}

// Estimate runs OWLQN from the model's current weights.
func (o *OWLQN) Estimate(ctx context.Context, p *Problem) (Result, error) {
	c := o.config
	h := newHistory(c.HistorySize)
	l1 := p.L1()

	x0 := p.Weights()
	grad0 := NewDoubleVector(p.Dim())
	f0 := p.FunctionGradient(x0, grad0) + l1*x0.L1Norm()
	acc := p.TrainAccuracy()

	var res Result
	var err error
	for iter := 0; iter < c.MaxIterations; iter++ {
		if err = ctx.Err(); err != nil {
			err = fmt.Errorf("optimizer: owlqn stopped at iteration %d: %w", iter, err)
			break
		}
		pg := PseudoGradient(x0, grad0, l1)
		if pg.Norm() < c.Epsilon {
			res.Converged = true
			break
		}

		dx := h.approximateHg(iter, pg).Scale(-1)
		if dx.Dot(pg) >= 0 {
			dx.Project(pg.Scale(-1))
		}
		if dx.Norm() == 0 {
			res.Converged = true
			break
		}

		orthant := x0.Clone()
		for i := range orthant {
			if orthant[i] == 0 {
				orthant[i] = -pg[i]
			}
		}

		x1, grad1, f1, ok := o.lineSearch(p, x0, pg, f0, dx, orthant, l1)
		if !ok {
			slog.Warn("OWLQN line search failed, stopping", "iteration", iter+1)
			res.LineSearchFailed = true
			break
		}
		h.record(iter, x1.Sub(x0), grad1.Sub(grad0))
		x0, grad0, f0 = x1, grad1, f1
		acc = p.TrainAccuracy()
		res.Iterations = iter + 1
		logIteration(p, "OWLQN iteration", iter+1, f0, acc)
	}

	p.SetWeights(x0)
	res.Objective = f0
	res.TrainAccuracy = acc
	res.ActiveFeatures = p.Model().NumActiveFeatures()
	res.HeldoutInstances = p.NumHeldout()
	res.HeldoutLogLik, res.HeldoutAccuracy = p.Heldout()
	return res, err
}

// lineSearch backtracks along dx, projecting every trial point onto the
// orthant. The sufficient decrease test uses the actual displacement, which
// the projection may shorten.
func (o *OWLQN) lineSearch(p *Problem, x0, pg DoubleVector, f0 float64, dx, orthant DoubleVector, l1 float64) (DoubleVector, DoubleVector, float64, bool) {
	grad := NewDoubleVector(len(x0))
	t := 1.0
	for trial := 0; trial < maxLineSearchTrials; trial++ {
		x := x0.Clone()
		x.AddScaled(t, dx)
		x.Project(orthant)
		f := p.FunctionGradient(x, grad) + l1*x.L1Norm()
		if f <= f0+lineSearchAlpha*x.Sub(x0).Dot(pg) {
			return x, grad, f, true
		}
		t *= lineSearchBeta
	}
	return nil, nil, 0, false
}

// PseudoGradient returns the minimum-norm subgradient of f(x) + l1*|x|_1
// given the gradient grad of f at x.
func PseudoGradient(x, grad DoubleVector, l1 float64) DoubleVector {
	mustSameLen(x, grad)
	pg := NewDoubleVector(len(x))
	for i := range x {
		switch {
		case x[i] > 0:
			pg[i] = grad[i] + l1
		case x[i] < 0:
			pg[i] = grad[i] - l1
		case grad[i]+l1 < 0:
			pg[i] = grad[i] + l1
		case grad[i]-l1 > 0:
			pg[i] = grad[i] - l1
		}
	}
	return pg
}
