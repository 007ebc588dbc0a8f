package optimizer

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
)

// SGD runs stochastic gradient descent with an exponentially decaying
// learning rate and the cumulative L1 penalty of Tsuruoka et al. (2009).
type SGD struct {
	config Config
}

// Estimate runs MaxIterations epochs over the training instances, visiting
// them in a fresh random order each epoch.
func (o *SGD) Estimate(ctx context.Context, p *Problem) (Result, error) {
	c := o.config
	md := p.Model()
	l1 := p.L1()
	n := p.NumTrain()

	lambdas := md.Lambdas()
	q := make([]float64, len(lambdas))
	dist := make([]float64, md.NumClasses())
	rng := rand.New(rand.NewPCG(c.Seed, c.Seed^0x9e3779b97f4a7c15))

	var u float64
	sample := 0
	var res Result
	var err error
	for epoch := 0; epoch < c.MaxIterations; epoch++ {
		if err = ctx.Err(); err != nil {
			err = fmt.Errorf("optimizer: sgd stopped at epoch %d: %w", epoch, err)
			break
		}
		for _, k := range rng.Perm(n) {
			mem := p.train[k]
			eta := c.LearningRate * math.Pow(c.DecayRate, float64(sample)/float64(n))
			sample++
			u += eta * l1

			md.CalcConditionalProbability(mem, dist)
			for _, fv := range mem.Features {
				for _, id := range md.FeatureIDs(fv.NameID) {
					label := md.FeatureAt(id).LabelID()
					g := dist[label]
					if label == mem.LabelID {
						g -= 1
					}
					lambdas[id] -= eta * g * fv.Value
					if l1 > 0 {
						ApplyL1Penalty(int(id), u, lambdas, q)
					}
				}
			}
		}

		loglik, acc := p.score(p.train)
		res.Objective = -(loglik - l1*md.L1Norm())
		res.TrainAccuracy = acc
		res.Iterations = epoch + 1
		logIteration(p, "SGD epoch", epoch+1, res.Objective, acc)
	}

	res.ActiveFeatures = md.NumActiveFeatures()
	res.HeldoutInstances = p.NumHeldout()
	res.HeldoutLogLik, res.HeldoutAccuracy = p.Heldout()
	return res, err
}

// ApplyL1Penalty clips lambdas[i] toward zero by the penalty accumulated so
// far, u, minus what has already been applied to it, q[i]. A weight never
// crosses zero. q[i] is updated with the penalty actually applied.
func ApplyL1Penalty(i int, u float64, lambdas, q []float64) {
	z := lambdas[i]
	switch {
	case z > 0:
		lambdas[i] = math.Max(0, z-(u+q[i]))
	case z < 0:
		lambdas[i] = math.Min(0, z+(u-q[i]))
	}
	q[i] += lambdas[i] - z
}
