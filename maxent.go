// Package maxent trains and applies maximum entropy (multinomial logistic
// regression) classifiers over sparse real-valued features.
//
//	instances := []maxent.Instance{
//	    {Label: "IT", Features: []maxent.NamedValue{{Name: "Apple", Value: 0.68}}},
//	    {Label: "Finance", Features: []maxent.NamedValue{{Name: "QE", Value: 0.9}}},
//	}
//	c, _ := maxent.Train(ctx, instances, nil)
//	in := maxent.Instance{Features: []maxent.NamedValue{{Name: "QE", Value: 1}}}
//	dist, _ := c.Classify(&in)
//	fmt.Println(in.Label, dist) // "Finance" and p(y|x) for IT, Finance
package maxent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/happyhackingspace/maxent/model"
	"github.com/happyhackingspace/maxent/optimizer"
)

// Instance is a labeled example with named real-valued features.
type Instance = model.Instance

// NamedValue is a single feature of an Instance.
type NamedValue = model.NamedValue

// Errors returned by Train.
var (
	ErrTooManyLabels  = model.ErrTooManyLabels
	ErrNoTrainingData = optimizer.ErrNoTrainingData
	ErrTooMuchHeldout = errors.New("maxent: held-out set leaves no training data")

	ErrConflictingRegularizers = optimizer.ErrConflictingRegularizers
	ErrL1WithLBFGS             = optimizer.ErrL1WithLBFGS
	ErrL2Unsupported           = optimizer.ErrL2Unsupported
)

// DefaultModelFile is the file New looks for.
const DefaultModelFile = "maxent.model"

// Classifier is a trained maximum entropy model.
// Classification methods are safe for concurrent use; Save and Load are not.
type Classifier struct {
	md        *model.ModelData
	threshold float64
	result    optimizer.Result
}

// New loads the classifier from DefaultModelFile, searching the current
// directory and parent directories up to the module root (where go.mod lives).
func New() (*Classifier, error) {
	path, err := findModel(DefaultModelFile)
	if err != nil {
		return nil, fmt.Errorf("maxent: %w", err)
	}
	return Load(path)
}

func findModel(name string) (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%s not found", name)
}

// Load reads a model written by Save. Paths ending in ".json" are read as a
// JSON snapshot, anything else as the tab-separated text format.
func Load(path string) (*Classifier, error) {
	md := model.NewModelData()
	if err := md.LoadFile(path); err != nil {
		return nil, fmt.Errorf("maxent: load %s: %w", path, err)
	}
	return &Classifier{md: md}, nil
}

// Save writes the model to path. Weights whose magnitude does not exceed the
// training save threshold are omitted.
func (c *Classifier) Save(path string) error {
	if c.md == nil {
		return fmt.Errorf("maxent: classifier not initialized")
	}
	if err := c.md.SaveFile(path, c.threshold); err != nil {
		return fmt.Errorf("maxent: save %s: %w", path, err)
	}
	return nil
}

// SetSaveThreshold changes the weight magnitude below which Save drops features.
func (c *Classifier) SetSaveThreshold(threshold float64) { c.threshold = threshold }

// Model returns the underlying model data.
func (c *Classifier) Model() *model.ModelData { return c.md }

// TrainResult returns the optimizer summary of the training run that
// produced c. It is zero for loaded classifiers.
func (c *Classifier) TrainResult() optimizer.Result { return c.result }

// Labels returns the known labels ordered by ID.
func (c *Classifier) Labels() []string {
	if c.md == nil {
		return nil
	}
	return c.md.Labels()
}

// NumClasses returns the number of known labels.
func (c *Classifier) NumClasses() int {
	if c.md == nil {
		return 0
	}
	return c.md.NumClasses()
}

// Classify returns p(y|x) for every label, ordered by label ID, and sets
// in.Label to the most probable label. Feature names unseen during training
// are ignored.
func (c *Classifier) Classify(in *Instance) ([]float64, error) {
	if c.md == nil || c.md.NumClasses() == 0 {
		return nil, fmt.Errorf("maxent: classifier not initialized")
	}
	dist, best := c.md.Predict(c.md.FormatInstance(*in))
	in.Label = c.md.Label(best)
	return dist, nil
}

// ClassifyProba returns p(y|x) keyed by label. Probabilities below threshold
// are omitted.
func (c *Classifier) ClassifyProba(in Instance, threshold float64) (map[string]float64, error) {
	dist, err := c.Classify(&in)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(dist))
	for y, p := range dist {
		if p >= threshold {
			out[c.md.Label(int32(y))] = p
		}
	}
	return out, nil
}
