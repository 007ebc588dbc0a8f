package maxent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/happyhackingspace/maxent/model"
	"github.com/happyhackingspace/maxent/optimizer"
)

// TrainConfig holds configuration for training.
type TrainConfig struct {
	Optimizer optimizer.Config `yaml:"optimizer"`
	// Heldout is the number of instances, taken from the end of the training
	// list, scored after every iteration instead of being trained on.
	Heldout int `yaml:"heldout"`
	// HeldoutRatio is used when Heldout is zero.
	HeldoutRatio float64 `yaml:"heldout_ratio"`
	// FeatureCutoff drops (label, feature) pairs seen in fewer instances.
	FeatureCutoff int `yaml:"feature_cutoff"`
	// SaveThreshold drops weights of smaller magnitude when saving.
	SaveThreshold float64 `yaml:"save_threshold"`
}

// DefaultTrainConfig returns an unregularized LBFGS configuration without
// held-out data.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Optimizer:     optimizer.DefaultConfig(),
		FeatureCutoff: 1,
	}
}

// Validate checks the configuration against a training set of n instances.
func (tc TrainConfig) Validate(n int) error {
	if err := tc.Optimizer.Validate(); err != nil {
		return err
	}
	if tc.Heldout < 0 || tc.HeldoutRatio < 0 || tc.HeldoutRatio >= 1 {
		return fmt.Errorf("maxent: invalid held-out setting %d / %v", tc.Heldout, tc.HeldoutRatio)
	}
	if h := tc.heldoutCount(n); h > 0 && h >= n {
		return fmt.Errorf("%w: %d held-out of %d instances", ErrTooMuchHeldout, h, n)
	}
	return nil
}

func (tc TrainConfig) heldoutCount(n int) int {
	if tc.Heldout > 0 {
		return tc.Heldout
	}
	return int(tc.HeldoutRatio * float64(n))
}

// Train estimates a classifier from labeled instances. A nil config means
// DefaultTrainConfig. Configuration errors are returned before any work is
// done; cancelling ctx stops the optimizer at the next iteration.
func Train(ctx context.Context, instances []Instance, config *TrainConfig) (*Classifier, error) {
	tc := DefaultTrainConfig()
	if config != nil {
		tc = *config
	}
	if len(instances) == 0 {
		return nil, fmt.Errorf("maxent: %w", ErrNoTrainingData)
	}
	if err := tc.Validate(len(instances)); err != nil {
		return nil, fmt.Errorf("maxent: %w", err)
	}

	md := model.NewModelData()
	if err := md.InitFromInstances(instances, tc.FeatureCutoff); err != nil {
		return nil, fmt.Errorf("maxent: %w", err)
	}
	mems := make([]model.MemInstance, len(instances))
	for i, in := range instances {
		mems[i] = md.FormatInstance(in)
	}
	split := len(mems) - tc.heldoutCount(len(mems))
	train, heldout := mems[:split], mems[split:]

	p, err := optimizer.NewProblem(md, train, heldout, tc.Optimizer.L1Reg, tc.Optimizer.L2Reg)
	if err != nil {
		return nil, fmt.Errorf("maxent: %w", err)
	}
	opt, err := optimizer.New(tc.Optimizer)
	if err != nil {
		return nil, fmt.Errorf("maxent: %w", err)
	}

	slog.Info("Training maxent model",
		"method", methodName(tc.Optimizer.Method),
		"classes", md.NumClasses(),
		"features", md.NumFeatures(),
		"training_instances", p.NumTrain(),
		"heldout_instances", p.NumHeldout(),
		"l1", p.L1(),
		"l2", p.L2())

	start := time.Now()
	res, err := opt.Estimate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("maxent: %w", err)
	}
	attrs := []any{
		"iterations", res.Iterations,
		"objective", res.Objective,
		"train_accuracy", res.TrainAccuracy,
		"active_features", res.ActiveFeatures,
		"converged", res.Converged,
		"duration", time.Since(start),
	}
	if p.NumHeldout() > 0 {
		attrs = append(attrs, "heldout_loglik", res.HeldoutLogLik, "heldout_accuracy", res.HeldoutAccuracy)
	}
	slog.Info("Training completed", attrs...)

	return &Classifier{md: md, threshold: tc.SaveThreshold, result: res}, nil
}

func methodName(m optimizer.Method) optimizer.Method {
	if m == "" {
		return optimizer.MethodLBFGS
	}
	return m
}
