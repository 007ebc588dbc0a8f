package optimizer

import (
	"context"
	"fmt"
	"log/slog"
)

// Line search parameters shared by LBFGS and OWLQN.
const (
	lineSearchAlpha     = 0.1
	lineSearchBeta      = 0.5
	maxLineSearchTrials = 40
)

// LBFGS minimizes the objective with limited-memory BFGS and a backtracking
// Armijo line search.
type LBFGS struct {
	config Config
}

// Estimate runs LBFGS from the model's current weights.
func (o *LBFGS) Estimate(ctx context.Context, p *Problem) (Result, error) {
	c := o.config
	h := newHistory(c.HistorySize)

	x0 := p.Weights()
	grad0 := NewDoubleVector(p.Dim())
	f0 := p.FunctionGradient(x0, grad0)
	acc := p.TrainAccuracy()

	var res Result
	var err error
	for iter := 0; iter < c.MaxIterations; iter++ {
		if err = ctx.Err(); err != nil {
			err = fmt.Errorf("optimizer: lbfgs stopped at iteration %d: %w", iter, err)
			break
		}
		if grad0.Norm() < c.Epsilon {
			res.Converged = true
			break
		}

		dx := h.approximateHg(iter, grad0).Scale(-1)
		if dx.Dot(grad0) >= 0 {
			// stale curvature, restart along the gradient
			dx = grad0.Scale(-1)
		}

		x1, grad1, f1, ok := backtrack(p, x0, grad0, f0, dx)
		if !ok {
			slog.Warn("LBFGS line search failed, stopping", "iteration", iter+1)
			res.LineSearchFailed = true
			break
		}
		h.record(iter, x1.Sub(x0), grad1.Sub(grad0))
		x0, grad0, f0 = x1, grad1, f1
		acc = p.TrainAccuracy()
		res.Iterations = iter + 1
		logIteration(p, "LBFGS iteration", iter+1, f0, acc)
	}

	p.SetWeights(x0)
	res.Objective = f0
	res.TrainAccuracy = acc
	res.ActiveFeatures = p.Model().NumActiveFeatures()
	res.HeldoutInstances = p.NumHeldout()
	res.HeldoutLogLik, res.HeldoutAccuracy = p.Heldout()
	return res, err
}

// backtrack halves the step along dx until the Armijo condition holds.
// The first trial uses step 1.
func backtrack(p *Problem, x0, grad0 DoubleVector, f0 float64, dx DoubleVector) (DoubleVector, DoubleVector, float64, bool) {
	slope := dx.Dot(grad0)
	grad := NewDoubleVector(len(x0))
	t := 1.0
	for trial := 0; trial < maxLineSearchTrials; trial++ {
		x := x0.Clone()
		x.AddScaled(t, dx)
		f := p.FunctionGradient(x, grad)
		if f <= f0+lineSearchAlpha*t*slope {
			return x, grad, f, true
		}
		t *= lineSearchBeta
	}
	return nil, nil, 0, false
}

func logIteration(p *Problem, msg string, iter int, objective, acc float64) {
	if p.NumHeldout() == 0 {
		slog.Debug(msg, "iteration", iter, "objective", objective, "train_accuracy", acc)
		return
	}
	loglik, heldoutAcc := p.Heldout()
	slog.Debug(msg, "iteration", iter, "objective", objective, "train_accuracy", acc,
		"heldout_loglik", loglik, "heldout_accuracy", heldoutAcc)
}
