// Package optimizer estimates the weights of a log-linear model.
//
// Three methods are available: LBFGS for unregularized or L2 regularized
// training, OWLQN for L1 regularized training, and SGD with cumulative L1
// penalty. All of them minimize the negative mean log-likelihood computed by
// a Problem.
package optimizer

import (
	"context"
	"errors"
	"fmt"
)

// Method names an optimization method.
type Method string

// Supported methods.
const (
	MethodLBFGS Method = "lbfgs"
	MethodOWLQN Method = "owlqn"
	MethodSGD   Method = "sgd"
)

// Configuration errors.
var (
	ErrConflictingRegularizers = errors.New("optimizer: L1 and L2 regularization are mutually exclusive")
	ErrL1WithLBFGS             = errors.New("optimizer: L1 regularization needs owlqn or sgd")
	ErrL2Unsupported           = errors.New("optimizer: L2 regularization is only supported by lbfgs")
	ErrNegativeRegularizer     = errors.New("optimizer: regularization strength must not be negative")
	ErrUnknownMethod           = errors.New("optimizer: unknown method")
)

const (
	defaultHistorySize   = 10
	defaultQNIterations  = 300
	defaultSGDIterations = 30
	defaultEpsilon       = 1e-4
	defaultLearningRate  = 1.0
	defaultDecayRate     = 0.85
)

// Config holds optimizer hyperparameters.
//
// L1Reg and L2Reg are the configured strengths; the optimizers divide them by
// the number of training instances.
type Config struct {
	Method        Method  `yaml:"method" json:"method"`
	L1Reg         float64 `yaml:"l1_reg" json:"l1_reg"`
	L2Reg         float64 `yaml:"l2_reg" json:"l2_reg"`
	HistorySize   int     `yaml:"history_size" json:"history_size"`     // LBFGS/OWLQN memory
	MaxIterations int     `yaml:"max_iterations" json:"max_iterations"` // epochs for SGD
	Epsilon       float64 `yaml:"epsilon" json:"epsilon"`               // gradient norm threshold
	LearningRate  float64 `yaml:"learning_rate" json:"learning_rate"`   // SGD eta0
	DecayRate     float64 `yaml:"decay_rate" json:"decay_rate"`         // SGD alpha
	Seed          uint64  `yaml:"seed" json:"seed"`                     // SGD shuffling
}

// DefaultConfig returns an unregularized LBFGS configuration.
func DefaultConfig() Config {
	return Config{
		Method:       MethodLBFGS,
		HistorySize:  defaultHistorySize,
		Epsilon:      defaultEpsilon,
		LearningRate: defaultLearningRate,
		DecayRate:    defaultDecayRate,
	}
}

// Validate reports whether the method and regularizers are compatible.
func (c Config) Validate() error {
	if c.L1Reg < 0 || c.L2Reg < 0 {
		return ErrNegativeRegularizer
	}
	if c.L1Reg > 0 && c.L2Reg > 0 {
		return ErrConflictingRegularizers
	}
	switch c.Method {
	case MethodLBFGS, "":
		if c.L1Reg > 0 {
			return ErrL1WithLBFGS
		}
	case MethodOWLQN, MethodSGD:
		if c.L2Reg > 0 {
			return fmt.Errorf("%w, not %s", ErrL2Unsupported, c.Method)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownMethod, c.Method)
	}
	if c.HistorySize < 0 || c.MaxIterations < 0 {
		return fmt.Errorf("optimizer: history size and iterations must not be negative")
	}
	return nil
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.Method == "" {
		c.Method = MethodLBFGS
	}
	if c.HistorySize == 0 {
		c.HistorySize = defaultHistorySize
	}
	if c.MaxIterations == 0 {
		if c.Method == MethodSGD {
			c.MaxIterations = defaultSGDIterations
		} else {
			c.MaxIterations = defaultQNIterations
		}
	}
	if c.Epsilon == 0 {
		c.Epsilon = defaultEpsilon
	}
	if c.LearningRate == 0 {
		c.LearningRate = defaultLearningRate
	}
	if c.DecayRate == 0 {
		c.DecayRate = defaultDecayRate
	}
	return c
}

// Result summarizes an optimization run. The held-out figures are
// meaningful only when HeldoutInstances > 0.
type Result struct {
	Iterations       int     `json:"iterations"`
	Objective        float64 `json:"objective"`
	TrainAccuracy    float64 `json:"train_accuracy"`
	HeldoutInstances int     `json:"heldout_instances"`
	HeldoutLogLik    float64 `json:"heldout_loglik"`
	HeldoutAccuracy  float64 `json:"heldout_accuracy"`
	Converged        bool    `json:"converged"`
	ActiveFeatures   int     `json:"active_features"`
	LineSearchFailed bool    `json:"line_search_failed,omitempty"`
}

// Optimizer estimates the weights of a Problem's model.
// Estimate writes the final weights back to the model even when it returns
// an error.
type Optimizer interface {
	Estimate(ctx context.Context, p *Problem) (Result, error)
}

// New returns the optimizer selected by c.Method.
func New(c Config) (Optimizer, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c = c.withDefaults()
	switch c.Method {
	case MethodOWLQN:
		return &OWLQN{config: c}, nil
	case MethodSGD:
		return &SGD{config: c}, nil
	default:
		return &LBFGS{config: c}, nil
	}
}
