package optimizer

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   error
	}{
		{"default", DefaultConfig(), nil},
		{"lbfgs l2", Config{Method: MethodLBFGS, L2Reg: 0.1}, nil},
		{"owlqn l1", Config{Method: MethodOWLQN, L1Reg: 1}, nil},
		{"owlqn no reg", Config{Method: MethodOWLQN}, nil},
		{"sgd l1", Config{Method: MethodSGD, L1Reg: 1}, nil},
		{"both", Config{Method: MethodOWLQN, L1Reg: 1, L2Reg: 1}, ErrConflictingRegularizers},
		{"lbfgs l1", Config{Method: MethodLBFGS, L1Reg: 1}, ErrL1WithLBFGS},
		{"empty method l1", Config{L1Reg: 1}, ErrL1WithLBFGS},
		{"owlqn l2", Config{Method: MethodOWLQN, L2Reg: 1}, ErrL2Unsupported},
		{"sgd l2", Config{Method: MethodSGD, L2Reg: 1}, ErrL2Unsupported},
		{"negative", Config{Method: MethodLBFGS, L2Reg: -1}, ErrNegativeRegularizer},
		{"unknown", Config{Method: "newton"}, ErrUnknownMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		method Method
		check  func(Optimizer) bool
		iters  int
	}{
		{MethodLBFGS, func(o Optimizer) bool { _, ok := o.(*LBFGS); return ok }, defaultQNIterations},
		{"", func(o Optimizer) bool { _, ok := o.(*LBFGS); return ok }, defaultQNIterations},
		{MethodOWLQN, func(o Optimizer) bool { _, ok := o.(*OWLQN); return ok }, defaultQNIterations},
		{MethodSGD, func(o Optimizer) bool { _, ok := o.(*SGD); return ok }, defaultSGDIterations},
	}
	for _, tt := range tests {
		o, err := New(Config{Method: tt.method})
		if err != nil {
			t.Fatalf("New(%q): %v", tt.method, err)
		}
		if !tt.check(o) {
			t.Errorf("New(%q) returned %T", tt.method, o)
		}
	}

	if _, err := New(Config{Method: MethodLBFGS, L1Reg: 1}); !errors.Is(err, ErrL1WithLBFGS) {
		t.Errorf("New with invalid config: err = %v", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{Method: MethodSGD}.withDefaults()
	if c.MaxIterations != defaultSGDIterations || c.LearningRate != 1 || c.DecayRate != 0.85 {
		t.Errorf("sgd defaults = %+v", c)
	}
	c = Config{}.withDefaults()
	if c.Method != MethodLBFGS || c.MaxIterations != defaultQNIterations || c.HistorySize != 10 || c.Epsilon != 1e-4 {
		t.Errorf("defaults = %+v", c)
	}
	c = Config{MaxIterations: 7, HistorySize: 3}.withDefaults()
	if c.MaxIterations != 7 || c.HistorySize != 3 {
		t.Errorf("explicit values overridden: %+v", c)
	}
}
