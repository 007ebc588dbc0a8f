package maxent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadTrainConfig reads a YAML training configuration. Fields missing from
// the file keep their DefaultTrainConfig values.
//
//	optimizer:
//	  method: owlqn
//	  l1_reg: 1.0
//	  max_iterations: 200
//	heldout: 100
//	feature_cutoff: 2
func LoadTrainConfig(path string) (*TrainConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("maxent: %w", err)
	}
	tc := DefaultTrainConfig()
	if err := yaml.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("maxent: parse %s: %w", path, err)
	}
	return &tc, nil
}

// WriteTrainConfig writes tc as YAML.
func WriteTrainConfig(path string, tc *TrainConfig) error {
	data, err := yaml.Marshal(tc)
	if err != nil {
		return fmt.Errorf("maxent: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("maxent: %w", err)
	}
	return nil
}
