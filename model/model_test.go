package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

func TestVocabulary(t *testing.T) {
	v := NewVocabulary()
	id0 := v.Put("hello")
	id1 := v.Put("world")
	id2 := v.Put("hello") // duplicate

	if id0 != 0 || id1 != 1 || id2 != 0 {
		t.Errorf("IDs: %d, %d, %d; want 0, 1, 0", id0, id1, id2)
	}
	if v.Size() != 2 {
		t.Errorf("Size = %d, want 2", v.Size())
	}
	if v.ID("missing") != NotFound {
		t.Error("ID of missing string should be NotFound")
	}
	if v.Str(1) != "world" {
		t.Errorf("Str(1) = %q, want world", v.Str(1))
	}

	v.Clear()
	if v.Size() != 0 || v.ID("hello") != NotFound {
		t.Error("Clear should empty the vocabulary")
	}
	if id := v.Put("again"); id != 0 {
		t.Errorf("first id after Clear = %d, want 0", id)
	}
}

func TestVocabularyZeroValue(t *testing.T) {
	var v Vocabulary
	if id := v.Put("x"); id != 0 {
		t.Errorf("Put on zero value = %d, want 0", id)
	}
}

func TestFeaturePacking(t *testing.T) {
	tests := []struct {
		label, name int32
	}{
		{0, 0},
		{255, 0},
		{0, MaxFeatureNameID},
		{255, MaxFeatureNameID},
		{17, 123456},
	}
	for _, tt := range tests {
		f := NewFeature(tt.label, tt.name)
		if f.LabelID() != tt.label || f.FeatureNameID() != tt.name {
			t.Errorf("NewFeature(%d, %d) unpacks to (%d, %d)", tt.label, tt.name, f.LabelID(), f.FeatureNameID())
		}
		if f.Body() != uint32(tt.name)<<8|uint32(tt.label) {
			t.Errorf("Body(%d, %d) = %#x", tt.label, tt.name, f.Body())
		}
	}
}

func TestFeaturePackingPanics(t *testing.T) {
	tests := []struct {
		label, name int32
	}{
		{256, 0},
		{-1, 0},
		{0, MaxFeatureNameID + 1},
		{0, -1},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d", tt.label, tt.name), func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("NewFeature(%d, %d) should panic", tt.label, tt.name)
				}
			}()
			NewFeature(tt.label, tt.name)
		})
	}
}

func TestFeatureVocabulary(t *testing.T) {
	fv := NewFeatureVocabulary()
	a := NewFeature(0, 1)
	b := NewFeature(1, 1)

	if id := fv.Put(a); id != 0 {
		t.Errorf("Put(a) = %d, want 0", id)
	}
	if id := fv.Put(b); id != 1 {
		t.Errorf("Put(b) = %d, want 1", id)
	}
	if id := fv.Put(a); id != 0 {
		t.Errorf("Put(a) again = %d, want 0", id)
	}
	if fv.At(1) != b {
		t.Errorf("At(1) = %v, want %v", fv.At(1), b)
	}
	if fv.ID(NewFeature(2, 1)) != NotFound {
		t.Error("unknown feature should be NotFound")
	}
	fv.Clear()
	if fv.Size() != 0 {
		t.Errorf("Size after Clear = %d", fv.Size())
	}
}

func itFinance() []Instance {
	return []Instance{
		{Label: "IT", Features: []NamedValue{{"Apple", 1}, {"Microsoft", 1}, {"IBM", 1}}},
		{Label: "IT", Features: []NamedValue{{"Apple", 1}, {"Linux", 1}}},
		{Label: "Finance", Features: []NamedValue{{"Bank", 1}, {"Apple", 1}, {"Stock", 1}}},
		{Label: "Finance", Features: []NamedValue{{"Bank", 1}, {"Stock", 1}}},
	}
}

func TestInitFromInstances(t *testing.T) {
	md := NewModelData()
	if err := md.InitFromInstances(itFinance(), 1); err != nil {
		t.Fatal(err)
	}

	if md.NumClasses() != 2 {
		t.Errorf("NumClasses = %d, want 2", md.NumClasses())
	}
	if md.NumFeatureNames() != 6 {
		t.Errorf("NumFeatureNames = %d, want 6", md.NumFeatureNames())
	}
	// Apple co-occurs with both labels.
	if md.NumFeatures() != 7 {
		t.Errorf("NumFeatures = %d, want 7", md.NumFeatures())
	}
	if len(md.Lambdas()) != md.NumFeatures() {
		t.Errorf("len(Lambdas) = %d, want %d", len(md.Lambdas()), md.NumFeatures())
	}
	if md.NumActiveFeatures() != 0 {
		t.Errorf("fresh model has %d active features", md.NumActiveFeatures())
	}

	apple := md.FeatureNameID("Apple")
	if apple != 0 {
		t.Errorf("Apple id = %d, want 0", apple)
	}
	if ids := md.FeatureIDs(apple); len(ids) != 2 {
		t.Errorf("FeatureIDs(Apple) = %v, want 2 entries", ids)
	}
	if ids := md.FeatureIDs(md.FeatureNameID("Linux")); len(ids) != 1 {
		t.Errorf("FeatureIDs(Linux) = %v, want 1 entry", ids)
	}
	if md.FeatureIDs(-1) != nil || md.FeatureIDs(100) != nil {
		t.Error("FeatureIDs out of range should be nil")
	}
}

func TestInitFromInstancesCutoff(t *testing.T) {
	md := NewModelData()
	if err := md.InitFromInstances(itFinance(), 2); err != nil {
		t.Fatal(err)
	}
	// (IT, Apple), (Finance, Bank), (Finance, Stock) occur twice.
	if md.NumFeatures() != 3 {
		t.Errorf("NumFeatures = %d, want 3", md.NumFeatures())
	}
	if md.FeatureNameID("Linux") != NotFound {
		t.Error("Linux occurs once and should be pruned")
	}
	if md.NumClasses() != 2 {
		t.Errorf("NumClasses = %d, want 2", md.NumClasses())
	}
}

func TestInitFromInstancesTooManyLabels(t *testing.T) {
	var instances []Instance
	for i := 0; i <= MaxLabels; i++ {
		instances = append(instances, Instance{
			Label:    fmt.Sprintf("label-%d", i),
			Features: []NamedValue{{"f", 1}},
		})
	}
	md := NewModelData()
	err := md.InitFromInstances(instances, 1)
	if !errors.Is(err, ErrTooManyLabels) {
		t.Fatalf("err = %v, want ErrTooManyLabels", err)
	}

	if err := md.InitFromInstances(instances[:MaxLabels], 1); err != nil {
		t.Errorf("%d labels should fit: %v", MaxLabels, err)
	}
}

func TestFormatInstance(t *testing.T) {
	md := NewModelData()
	if err := md.InitFromInstances(itFinance(), 1); err != nil {
		t.Fatal(err)
	}
	in := Instance{Label: "Unknown", Features: []NamedValue{{"Apple", 2}, {"Nope", 1}, {"Bank", 0.5}}}
	mem := md.FormatInstance(in)

	if mem.LabelID != NotFound {
		t.Errorf("LabelID = %d, want NotFound", mem.LabelID)
	}
	if len(mem.Features) != 2 {
		t.Fatalf("features = %v, want 2 entries", mem.Features)
	}
	// Apple has id 0 and must survive.
	if mem.Features[0].NameID != 0 || mem.Features[0].Value != 2 {
		t.Errorf("first feature = %+v, want {0 2}", mem.Features[0])
	}
}

func TestCalcConditionalProbability(t *testing.T) {
	md := NewModelData()
	if err := md.InitFromInstances(itFinance(), 1); err != nil {
		t.Fatal(err)
	}

	mem := md.FormatInstance(Instance{Features: []NamedValue{{"Bank", 1}}})

	// All-zero weights give the uniform distribution and argmax 0.
	dist, best := md.Predict(mem)
	if best != 0 || math.Abs(dist[0]-0.5) > 1e-12 || math.Abs(dist[1]-0.5) > 1e-12 {
		t.Errorf("uniform: dist = %v, best = %d", dist, best)
	}

	bank := md.FeatureID(NewFeature(md.LabelID("Finance"), md.FeatureNameID("Bank")))
	md.Lambdas()[bank] = 2
	dist, best = md.Predict(mem)
	if md.Label(best) != "Finance" {
		t.Errorf("best = %s, want Finance", md.Label(best))
	}
	want := math.Exp(2) / (1 + math.Exp(2))
	if math.Abs(dist[best]-want) > 1e-12 {
		t.Errorf("p(Finance) = %v, want %v", dist[best], want)
	}
	if math.Abs(dist[0]+dist[1]-1) > 1e-12 {
		t.Errorf("distribution sums to %v", dist[0]+dist[1])
	}
}

func TestCalcConditionalProbabilityLargeScores(t *testing.T) {
	md := NewModelData()
	if err := md.InitFromInstances(itFinance(), 1); err != nil {
		t.Fatal(err)
	}
	apple := md.FeatureNameID("Apple")
	for _, id := range md.FeatureIDs(apple) {
		md.Lambdas()[id] = 1000
	}
	mem := md.FormatInstance(Instance{Features: []NamedValue{{"Apple", 1}}})
	dist, best := md.Predict(mem)
	if best != 0 {
		t.Errorf("tie should resolve to label 0, got %d", best)
	}
	for y, p := range dist {
		if math.IsNaN(p) || math.Abs(p-0.5) > 1e-12 {
			t.Errorf("dist[%d] = %v, want 0.5", y, p)
		}
	}
}

func TestCalcConditionalProbabilityLengthMismatch(t *testing.T) {
	md := NewModelData()
	if err := md.InitFromInstances(itFinance(), 1); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic on distribution length mismatch")
		}
	}()
	md.CalcConditionalProbability(MemInstance{}, make([]float64, 3))
}

func TestUpdateLambdas(t *testing.T) {
	md := NewModelData()
	if err := md.InitFromInstances(itFinance(), 1); err != nil {
		t.Fatal(err)
	}
	x := make([]float64, md.NumFeatures())
	x[0] = -1.5
	x[3] = 2
	md.UpdateLambdas(x)
	if md.L1Norm() != 3.5 {
		t.Errorf("L1Norm = %v, want 3.5", md.L1Norm())
	}
	if md.NumActiveFeatures() != 2 {
		t.Errorf("NumActiveFeatures = %d, want 2", md.NumActiveFeatures())
	}
	x[0] = 0
	if md.Lambdas()[0] != -1.5 {
		t.Error("UpdateLambdas must copy")
	}
}

func trainedToy(t *testing.T) *ModelData {
	t.Helper()
	md := NewModelData()
	if err := md.InitFromInstances(itFinance(), 1); err != nil {
		t.Fatal(err)
	}
	for i := range md.Lambdas() {
		md.Lambdas()[i] = float64(i+1) * 0.25
	}
	return md
}

func TestSaveLoadRoundTrip(t *testing.T) {
	md := trainedToy(t)

	var buf bytes.Buffer
	if err := md.Save(&buf, 0); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != md.NumFeatures() {
		t.Fatalf("saved %d lines, want %d", len(lines), md.NumFeatures())
	}
	if lines[0] != "IT\tApple\t0.250000" {
		t.Errorf("first line = %q", lines[0])
	}

	loaded := NewModelData()
	if err := loaded.Load(&buf); err != nil {
		t.Fatal(err)
	}
	if loaded.NumClasses() != md.NumClasses() || loaded.NumFeatures() != md.NumFeatures() {
		t.Fatalf("loaded %d classes / %d features, want %d / %d",
			loaded.NumClasses(), loaded.NumFeatures(), md.NumClasses(), md.NumFeatures())
	}

	for _, in := range itFinance() {
		want, wantBest := md.Predict(md.FormatInstance(in))
		got, gotBest := loaded.Predict(loaded.FormatInstance(in))
		if md.Label(wantBest) != loaded.Label(gotBest) {
			t.Errorf("prediction changed after reload: %s vs %s", md.Label(wantBest), loaded.Label(gotBest))
		}
		for y := range want {
			if math.Abs(want[y]-got[y]) > 1e-6 {
				t.Errorf("dist[%d] = %v, want %v", y, got[y], want[y])
			}
		}
	}
}

func TestSaveThreshold(t *testing.T) {
	md := trainedToy(t)
	var buf bytes.Buffer
	// weights are 0.25, 0.5, ... 1.75
	if err := md.Save(&buf, 1.0); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Errorf("saved %d lines, want 3", len(lines))
	}
}

func TestSaveThresholdDropsEmptyLabel(t *testing.T) {
	md := trainedToy(t)
	var buf bytes.Buffer
	// only the Finance weights (1.25, 1.5, 1.75) pass
	if err := md.Save(&buf, 1.0); err != nil {
		t.Fatal(err)
	}
	loaded := NewModelData()
	if err := loaded.Load(&buf); err != nil {
		t.Fatal(err)
	}
	if loaded.NumClasses() != 1 || loaded.Label(0) != "Finance" {
		t.Errorf("labels = %v, want [Finance]", loaded.Labels())
	}
	if id := loaded.LabelID("IT"); id != NotFound {
		t.Errorf("LabelID(IT) = %d, want NotFound", id)
	}
	if loaded.NumFeatures() != 3 {
		t.Errorf("NumFeatures = %d, want 3", loaded.NumFeatures())
	}
}

func TestSaveSkipsZeroWeights(t *testing.T) {
	md := NewModelData()
	if err := md.InitFromInstances(itFinance(), 1); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := md.Save(&buf, 0); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("untrained model saved %q", buf.String())
	}
}

func TestLoadSplitsAtFirstAndLastTab(t *testing.T) {
	input := "IT\tname\twith\ttabs\t1.5\nFinance\tBank\t-2\n\n"
	md := NewModelData()
	if err := md.Load(strings.NewReader(input)); err != nil {
		t.Fatal(err)
	}
	id := md.FeatureNameID("name\twith\ttabs")
	if id == NotFound {
		t.Fatal("feature name with tabs not found")
	}
	fid := md.FeatureID(NewFeature(md.LabelID("IT"), id))
	if fid == NotFound || md.Lambdas()[fid] != 1.5 {
		t.Errorf("weight of tabbed feature wrong")
	}
	if md.NumClasses() != 2 || md.NumFeatures() != 2 {
		t.Errorf("loaded %d classes, %d features", md.NumClasses(), md.NumFeatures())
	}
}

func TestLoadMalformed(t *testing.T) {
	tests := []struct {
		name, input string
	}{
		{"no tab", "IT Apple 1\n"},
		{"one tab", "IT\t1\n"},
		{"bad weight", "IT\tApple\tabc\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewModelData()
			err := md.Load(strings.NewReader("Finance\tBank\t1\n" + tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), "line 2") {
				t.Errorf("error %q should name line 2", err)
			}
		})
	}
}

func TestJSONRoundTrip(t *testing.T) {
	md := trainedToy(t)
	data, err := json.Marshal(md)
	if err != nil {
		t.Fatal(err)
	}
	loaded := NewModelData()
	if err := json.Unmarshal(data, loaded); err != nil {
		t.Fatal(err)
	}
	if loaded.NumFeatures() != md.NumFeatures() {
		t.Fatalf("NumFeatures = %d, want %d", loaded.NumFeatures(), md.NumFeatures())
	}
	for i, w := range md.Lambdas() {
		if loaded.Lambdas()[i] != w || loaded.FeatureAt(int32(i)) != md.FeatureAt(int32(i)) {
			t.Errorf("feature %d differs after JSON round trip", i)
		}
	}
	if len(loaded.FeatureIDs(loaded.FeatureNameID("Apple"))) != 2 {
		t.Error("index not rebuilt after JSON load")
	}
}

func TestSaveLoadFile(t *testing.T) {
	md := trainedToy(t)
	dir := t.TempDir()
	for _, name := range []string{"model.txt", "model.json"} {
		path := filepath.Join(dir, name)
		if err := md.SaveFile(path, 0); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		loaded := NewModelData()
		if err := loaded.LoadFile(path); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if loaded.NumFeatures() != md.NumFeatures() {
			t.Errorf("%s: NumFeatures = %d, want %d", name, loaded.NumFeatures(), md.NumFeatures())
		}
	}
}
