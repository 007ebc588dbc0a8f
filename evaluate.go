package maxent

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Prediction is the classification of one instance.
type Prediction struct {
	Label string             `json:"label"`
	Proba map[string]float64 `json:"proba,omitempty"`
}

// ClassifyAll classifies instances with up to workers goroutines
// (GOMAXPROCS when workers < 1). Results keep the input order. When proba is
// set every Prediction carries the full distribution.
func (c *Classifier) ClassifyAll(ctx context.Context, instances []Instance, workers int, proba bool) ([]Prediction, error) {
	if c.md == nil || c.md.NumClasses() == 0 {
		return nil, fmt.Errorf("maxent: classifier not initialized")
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	out := make([]Prediction, len(instances))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range instances {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			in := instances[i]
			dist, err := c.Classify(&in)
			if err != nil {
				return err
			}
			out[i].Label = in.Label
			if proba {
				out[i].Proba = make(map[string]float64, len(dist))
				for y, p := range dist {
					out[i].Proba[c.md.Label(int32(y))] = p
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Metrics holds classification quality figures for a labeled test set.
type Metrics struct {
	Accuracy   float64
	Correct    int
	Total      int
	Classes    []string
	Confusion  map[string]map[string]int // true label -> predicted label -> count
	Precision  map[string]float64
	Recall     map[string]float64
	F1         map[string]float64
	MacroF1    float64
	WeightedF1 float64
}

// Test classifies labeled instances and compares the predictions with their
// labels.
func (c *Classifier) Test(ctx context.Context, instances []Instance, workers int) (*Metrics, error) {
	preds, err := c.ClassifyAll(ctx, instances, workers, false)
	if err != nil {
		return nil, err
	}
	m := newMetrics()
	for i, p := range preds {
		m.add(instances[i].Label, p.Label)
	}
	m.finish()
	return m, nil
}

func newMetrics() *Metrics {
	return &Metrics{Confusion: make(map[string]map[string]int)}
}

func (m *Metrics) add(truth, predicted string) {
	if m.Confusion[truth] == nil {
		m.Confusion[truth] = make(map[string]int)
	}
	m.Confusion[truth][predicted]++
	if truth == predicted {
		m.Correct++
	}
	m.Total++
}

func (m *Metrics) merge(o *Metrics) {
	for truth, row := range o.Confusion {
		if m.Confusion[truth] == nil {
			m.Confusion[truth] = make(map[string]int)
		}
		for pred, n := range row {
			m.Confusion[truth][pred] += n
		}
	}
	m.Correct += o.Correct
	m.Total += o.Total
}

func (m *Metrics) finish() {
	if m.Total > 0 {
		m.Accuracy = float64(m.Correct) / float64(m.Total)
	}

	seen := make(map[string]bool)
	for truth, row := range m.Confusion {
		seen[truth] = true
		for pred := range row {
			seen[pred] = true
		}
	}
	m.Classes = m.Classes[:0]
	for cls := range seen {
		m.Classes = append(m.Classes, cls)
	}
	sort.Strings(m.Classes)

	m.Precision = make(map[string]float64)
	m.Recall = make(map[string]float64)
	m.F1 = make(map[string]float64)
	m.MacroF1, m.WeightedF1 = 0, 0
	for _, cls := range m.Classes {
		tp := m.Confusion[cls][cls]
		support, predicted := 0, 0
		for _, n := range m.Confusion[cls] {
			support += n
		}
		for _, row := range m.Confusion {
			predicted += row[cls]
		}
		var p, r, f float64
		if predicted > 0 {
			p = float64(tp) / float64(predicted)
		}
		if support > 0 {
			r = float64(tp) / float64(support)
		}
		if p+r > 0 {
			f = 2 * p * r / (p + r)
		}
		m.Precision[cls], m.Recall[cls], m.F1[cls] = p, r, f
		m.MacroF1 += f
		m.WeightedF1 += f * float64(support)
	}
	if len(m.Classes) > 0 {
		m.MacroF1 /= float64(len(m.Classes))
	}
	if m.Total > 0 {
		m.WeightedF1 /= float64(m.Total)
	}
}

// EvalConfig holds configuration for cross-validation.
type EvalConfig struct {
	Folds   int
	Train   *TrainConfig
	Workers int
}

// EvalResult holds cross-validation results: metrics pooled over all folds
// and the accuracy of each fold.
type EvalResult struct {
	Metrics
	FoldAccuracy []float64
}

// Evaluate runs k-fold cross-validation. Instances sharing a group never end
// up on both sides of a split; a nil groups slice puts every instance in its
// own group.
func Evaluate(ctx context.Context, instances []Instance, groups []int, config *EvalConfig) (*EvalResult, error) {
	nFolds := 10
	var tc *TrainConfig
	workers := 0
	if config != nil {
		if config.Folds > 0 {
			nFolds = config.Folds
		}
		tc = config.Train
		workers = config.Workers
	}
	if len(instances) == 0 {
		return nil, fmt.Errorf("maxent: %w", ErrNoTrainingData)
	}
	if groups == nil {
		groups = make([]int, len(instances))
		for i := range groups {
			groups[i] = i
		}
	}
	if len(groups) != len(instances) {
		return nil, fmt.Errorf("maxent: %d groups for %d instances", len(groups), len(instances))
	}

	folds := groupKFold(groups, nFolds)
	if len(folds) < 2 {
		return nil, fmt.Errorf("maxent: cross-validation needs at least 2 groups")
	}
	result := &EvalResult{Metrics: *newMetrics()}
	for k, testIdx := range folds {
		testSet := makeTestSet(len(instances), testIdx)
		trainInstances := filterByIndex(instances, testSet, false)
		testInstances := filterByIndex(instances, testSet, true)

		c, err := Train(ctx, trainInstances, tc)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", k+1, err)
		}
		m, err := c.Test(ctx, testInstances, workers)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", k+1, err)
		}
		slog.Debug("Fold evaluated", "fold", k+1, "accuracy", m.Accuracy, "test_instances", m.Total)
		result.merge(m)
		result.FoldAccuracy = append(result.FoldAccuracy, m.Accuracy)
	}
	result.finish()
	return result, nil
}

// groupKFold assigns groups to folds round-robin in order of first
// appearance and returns the instance indices of each fold.
func groupKFold(groups []int, nFolds int) [][]int {
	var order []int
	seen := make(map[int]bool)
	for _, g := range groups {
		if !seen[g] {
			seen[g] = true
			order = append(order, g)
		}
	}

	if nFolds > len(order) {
		nFolds = len(order)
	}

	groupToFold := make(map[int]int)
	for i, g := range order {
		groupToFold[g] = i % nFolds
	}

	folds := make([][]int, nFolds)
	for i, g := range groups {
		fold := groupToFold[g]
		folds[fold] = append(folds[fold], i)
	}
	return folds
}

func makeTestSet(n int, testIdx []int) []bool {
	set := make([]bool, n)
	for _, i := range testIdx {
		set[i] = true
	}
	return set
}

func filterByIndex(instances []Instance, testSet []bool, isTest bool) []Instance {
	var out []Instance
	for i := range instances {
		if testSet[i] == isTest {
			out = append(out, instances[i])
		}
	}
	return out
}
