package maxent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/happyhackingspace/maxent/optimizer"
)

func itFinance() []Instance {
	it1 := Instance{Label: "IT", Features: []NamedValue{{Name: "Apple", Value: 0.68}, {Name: "ipad", Value: 0.5}}}
	it2 := Instance{Label: "IT", Features: []NamedValue{{Name: "Macbook Air", Value: 0.8}, {Name: "iphone 4s", Value: 0.9}}}
	fin := Instance{Label: "Finance", Features: []NamedValue{{Name: "Wall Street", Value: 0.8}, {Name: "QE", Value: 0.9}, {Name: "stock", Value: 0.88}}}
	return []Instance{it1, it1, it2, it2, fin, fin}
}

func TestTrainClassify(t *testing.T) {
	c, err := Train(context.Background(), itFinance(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.NumClasses() != 2 {
		t.Fatalf("NumClasses = %d, want 2", c.NumClasses())
	}
	if labels := c.Labels(); labels[0] != "IT" || labels[1] != "Finance" {
		t.Errorf("Labels = %v, want [IT Finance]", labels)
	}

	tests := []struct {
		features []NamedValue
		want     string
	}{
		{[]NamedValue{{Name: "Macbook Air", Value: 0.5}, {Name: "iphone 4s", Value: 0.8}, {Name: "iphone", Value: 0.8}}, "IT"},
		{[]NamedValue{{Name: "Wall Street", Value: 0.8}, {Name: "QE", Value: 0.9}}, "Finance"},
	}
	for _, tt := range tests {
		in := Instance{Features: tt.features}
		dist, err := c.Classify(&in)
		if err != nil {
			t.Fatal(err)
		}
		if in.Label != tt.want {
			t.Errorf("label = %q, want %q", in.Label, tt.want)
		}
		if len(dist) != 2 {
			t.Fatalf("len(dist) = %d, want 2", len(dist))
		}
		if p := dist[c.Model().LabelID(tt.want)]; p <= 0.99 {
			t.Errorf("p(%s) = %v, want > 0.99", tt.want, p)
		}
	}
}

func TestTrainL2(t *testing.T) {
	tc := DefaultTrainConfig()
	tc.Optimizer.L2Reg = 0.1
	tc.Optimizer.MaxIterations = 300
	c, err := Train(context.Background(), itFinance(), &tc)
	if err != nil {
		t.Fatal(err)
	}
	in := Instance{Features: []NamedValue{{Name: "Wall Street", Value: 0.8}, {Name: "QE", Value: 0.9}}}
	dist, err := c.Classify(&in)
	if err != nil {
		t.Fatal(err)
	}
	if in.Label != "Finance" {
		t.Errorf("label = %q, want Finance", in.Label)
	}
	// l2 is scaled by 1/N, which on six instances keeps p well below 0.99 (about 0.81)
	if p := dist[c.Model().LabelID("Finance")]; p <= 0.5 || p >= 0.99 {
		t.Errorf("p(Finance) = %v, want in (0.5, 0.99)", p)
	}

	tc.Optimizer.L2Reg = 0
	free, err := Train(context.Background(), itFinance(), &tc)
	if err != nil {
		t.Fatal(err)
	}
	if reg, unreg := c.Model().L1Norm(), free.Model().L1Norm(); reg >= unreg {
		t.Errorf("|w|_1 with l2 = %v, without = %v; want smaller", reg, unreg)
	}
}

func TestTrainConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*TrainConfig)
		want   error
	}{
		{"l1 and l2", func(tc *TrainConfig) {
			tc.Optimizer.Method = optimizer.MethodOWLQN
			tc.Optimizer.L1Reg, tc.Optimizer.L2Reg = 1, 1
		}, ErrConflictingRegularizers},
		{"l1 with lbfgs", func(tc *TrainConfig) { tc.Optimizer.L1Reg = 1 }, ErrL1WithLBFGS},
		{"l2 with sgd", func(tc *TrainConfig) {
			tc.Optimizer.Method = optimizer.MethodSGD
			tc.Optimizer.L2Reg = 1
		}, ErrL2Unsupported},
		{"too much heldout", func(tc *TrainConfig) { tc.Heldout = 6 }, ErrTooMuchHeldout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := DefaultTrainConfig()
			tt.modify(&tc)
			_, err := Train(context.Background(), itFinance(), &tc)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTrainNoData(t *testing.T) {
	if _, err := Train(context.Background(), nil, nil); !errors.Is(err, ErrNoTrainingData) {
		t.Errorf("err = %v, want ErrNoTrainingData", err)
	}
}

func TestTrainTooManyLabels(t *testing.T) {
	var instances []Instance
	for i := 0; i < 300; i++ {
		instances = append(instances, Instance{
			Label:    fmt.Sprintf("class-%d", i),
			Features: []NamedValue{{Name: "x", Value: 1}},
		})
	}
	if _, err := Train(context.Background(), instances, nil); !errors.Is(err, ErrTooManyLabels) {
		t.Errorf("err = %v, want ErrTooManyLabels", err)
	}
}

func TestTrainHeldout(t *testing.T) {
	instances := append(itFinance(), itFinance()...)
	tc := DefaultTrainConfig()
	tc.Heldout = 3
	c, err := Train(context.Background(), instances, &tc)
	if err != nil {
		t.Fatal(err)
	}
	res := c.TrainResult()
	if res.HeldoutAccuracy != 1 {
		t.Errorf("heldout accuracy = %v, want 1", res.HeldoutAccuracy)
	}
	if res.HeldoutLogLik >= 0 || res.HeldoutLogLik < math.Log(0.5) {
		t.Errorf("heldout loglik = %v", res.HeldoutLogLik)
	}
}

func TestTrainCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Train(ctx, itFinance(), nil); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSaveLoad(t *testing.T) {
	c, err := Train(context.Background(), itFinance(), nil)
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	for _, name := range []string{"model.txt", "model.json"} {
		path := filepath.Join(dir, name)
		if err := c.Save(path); err != nil {
			t.Fatal(err)
		}
		loaded, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if loaded.NumClasses() != c.NumClasses() {
			t.Errorf("%s: NumClasses = %d, want %d", name, loaded.NumClasses(), c.NumClasses())
		}
		if loaded.Model().NumFeatures() != c.Model().NumFeatures() ||
			loaded.Model().NumActiveFeatures() != c.Model().NumActiveFeatures() {
			t.Errorf("%s: features %d/%d, want %d/%d", name,
				loaded.Model().NumFeatures(), loaded.Model().NumActiveFeatures(),
				c.Model().NumFeatures(), c.Model().NumActiveFeatures())
		}

		in := Instance{Features: []NamedValue{{Name: "QE", Value: 0.9}}}
		want, _ := c.Classify(&in)
		got, _ := loaded.Classify(&in)
		for y := range want {
			if math.Abs(want[y]-got[y]) > 1e-5 {
				t.Errorf("%s: dist[%d] = %v, want %v", name, y, got[y], want[y])
			}
		}
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.model")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestClassifyUninitialized(t *testing.T) {
	var c Classifier
	in := Instance{}
	if _, err := c.Classify(&in); err == nil {
		t.Error("expected error")
	}
	if err := c.Save(filepath.Join(t.TempDir(), "m")); err == nil {
		t.Error("expected error")
	}
}

func TestClassifyProba(t *testing.T) {
	c, err := Train(context.Background(), itFinance(), nil)
	if err != nil {
		t.Fatal(err)
	}
	proba, err := c.ClassifyProba(Instance{Features: []NamedValue{{Name: "QE", Value: 0.9}}}, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := proba["Finance"]; !ok {
		t.Errorf("proba = %v, want Finance entry", proba)
	}
	if _, ok := proba["IT"]; ok {
		t.Errorf("proba = %v, IT should be below threshold", proba)
	}

	// Unknown features only: uniform distribution.
	proba, err = c.ClassifyProba(Instance{Features: []NamedValue{{Name: "unseen", Value: 1}}}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(proba["IT"]-0.5) > 1e-12 || math.Abs(proba["Finance"]-0.5) > 1e-12 {
		t.Errorf("proba = %v, want uniform", proba)
	}
}

func TestTestMetrics(t *testing.T) {
	c, err := Train(context.Background(), itFinance(), nil)
	if err != nil {
		t.Fatal(err)
	}
	test := append(itFinance(), Instance{Label: "Finance", Features: []NamedValue{{Name: "Apple", Value: 1}}})
	m, err := c.Test(context.Background(), test, 3)
	if err != nil {
		t.Fatal(err)
	}
	if m.Total != 7 || m.Correct != 6 {
		t.Errorf("correct/total = %d/%d, want 6/7", m.Correct, m.Total)
	}
	if m.Confusion["Finance"]["IT"] != 1 {
		t.Errorf("confusion = %v", m.Confusion)
	}
	if m.Recall["IT"] != 1 || math.Abs(m.Precision["IT"]-0.8) > 1e-12 {
		t.Errorf("IT precision/recall = %v/%v", m.Precision["IT"], m.Recall["IT"])
	}
}

func TestClassifyAllKeepsOrder(t *testing.T) {
	c, err := Train(context.Background(), itFinance(), nil)
	if err != nil {
		t.Fatal(err)
	}
	var instances []Instance
	for i := 0; i < 50; i++ {
		instances = append(instances, itFinance()...)
	}
	preds, err := c.ClassifyAll(context.Background(), instances, 4, true)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range preds {
		if p.Label != instances[i].Label {
			t.Fatalf("prediction %d = %s, want %s", i, p.Label, instances[i].Label)
		}
		if len(p.Proba) != 2 {
			t.Fatalf("prediction %d has %d probabilities", i, len(p.Proba))
		}
	}
}

func TestEvaluate(t *testing.T) {
	var instances []Instance
	for i := 0; i < 3; i++ {
		instances = append(instances, itFinance()...)
	}
	result, err := Evaluate(context.Background(), instances, nil, &EvalConfig{Folds: 3})
	if err != nil {
		t.Fatal(err)
	}
	if result.Total != len(instances) {
		t.Errorf("Total = %d, want %d", result.Total, len(instances))
	}
	if len(result.FoldAccuracy) != 3 {
		t.Errorf("folds = %d, want 3", len(result.FoldAccuracy))
	}
	if result.Accuracy != 1 {
		t.Errorf("accuracy = %v, want 1", result.Accuracy)
	}
}

func TestEvaluateTooFewGroups(t *testing.T) {
	groups := make([]int, 6)
	if _, err := Evaluate(context.Background(), itFinance(), groups, nil); err == nil {
		t.Error("expected error with a single group")
	}
}

func TestGroupKFold(t *testing.T) {
	groups := []int{7, 7, 3, 5, 3, 9}
	folds := groupKFold(groups, 3)
	if len(folds) != 3 {
		t.Fatalf("got %d folds, want 3", len(folds))
	}
	// first-appearance order 7, 3, 5, 9 -> folds 0, 1, 2, 0
	want := [][]int{{0, 1, 5}, {2, 4}, {3}}
	for k := range want {
		if fmt.Sprint(folds[k]) != fmt.Sprint(want[k]) {
			t.Errorf("fold %d = %v, want %v", k, folds[k], want[k])
		}
	}

	if folds := groupKFold([]int{1, 1, 2}, 10); len(folds) != 2 {
		t.Errorf("folds capped at group count: got %d", len(folds))
	}
}

func TestLoadTrainConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.yaml")
	data := `optimizer:
  method: owlqn
  l1_reg: 2.5
heldout: 4
feature_cutoff: 2
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	tc, err := LoadTrainConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if tc.Optimizer.Method != optimizer.MethodOWLQN || tc.Optimizer.L1Reg != 2.5 {
		t.Errorf("optimizer = %+v", tc.Optimizer)
	}
	if tc.Heldout != 4 || tc.FeatureCutoff != 2 {
		t.Errorf("config = %+v", tc)
	}
	// defaults survive for fields absent from the file
	if tc.Optimizer.HistorySize != 10 {
		t.Errorf("HistorySize = %d, want 10", tc.Optimizer.HistorySize)
	}

	out := filepath.Join(t.TempDir(), "out.yaml")
	if err := WriteTrainConfig(out, tc); err != nil {
		t.Fatal(err)
	}
	again, err := LoadTrainConfig(out)
	if err != nil {
		t.Fatal(err)
	}
	if *again != *tc {
		t.Errorf("round trip = %+v, want %+v", again, tc)
	}
}
