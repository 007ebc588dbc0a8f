package model

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Save writes one line per feature whose absolute weight exceeds threshold:
//
//	label \t feature name \t weight
//
// Features are written in ID order, so a model whose weights are all non-zero
// loads back with identical IDs. A label or feature name left without a
// written weight is not recorded at all and is unknown after Load.
func (md *ModelData) Save(w io.Writer, threshold float64) error {
	bw := bufio.NewWriter(w)
	for id, lambda := range md.lambdas {
		if lambda == 0 || math.Abs(lambda) <= threshold {
			continue
		}
		f := md.features.At(int32(id))
		if _, err := fmt.Fprintf(bw, "%s\t%s\t%f\n",
			md.labels.Str(f.LabelID()), md.featureNames.Str(f.FeatureNameID()), lambda); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Load replaces the model with one read from r in the format written by Save.
// Each line is split at its first and last tab, so feature names may contain
// tabs. On error the model contents are unspecified.
func (md *ModelData) Load(r io.Reader) error {
	md.Clear()
	var lambdas []float64

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		first := strings.IndexByte(line, '\t')
		last := strings.LastIndexByte(line, '\t')
		if first < 0 || first == last {
			return fmt.Errorf("model: line %d: want label<TAB>feature<TAB>weight", lineNo)
		}
		label := line[:first]
		name := line[first+1 : last]
		lambda, err := strconv.ParseFloat(strings.TrimSpace(line[last+1:]), 64)
		if err != nil {
			return fmt.Errorf("model: line %d: parse weight: %w", lineNo, err)
		}

		if md.labels.ID(label) == NotFound && md.labels.Size() >= MaxLabels {
			return fmt.Errorf("%w: line %d", ErrTooManyLabels, lineNo)
		}
		labelID := md.labels.Put(label)
		nameID := md.featureNames.Put(name)
		id := md.features.Put(NewFeature(labelID, nameID))
		if int(id) < len(lambdas) {
			// duplicated (label, feature) line, last one wins
			lambdas[id] = lambda
			continue
		}
		lambdas = append(lambdas, lambda)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("model: read: %w", err)
	}

	md.lambdas = lambdas
	if md.lambdas == nil {
		md.lambdas = []float64{}
	}
	md.rebuildIndex()
	return nil
}

// modelJSON is the JSON snapshot of a model.
type modelJSON struct {
	Labels       *Vocabulary `json:"labels"`
	FeatureNames *Vocabulary `json:"feature_names"`
	Features     []uint32    `json:"features"`
	Lambdas      []float64   `json:"lambdas"`
}

// MarshalJSON implements json.Marshaler.
func (md *ModelData) MarshalJSON() ([]byte, error) {
	features := make([]uint32, md.features.Size())
	for i := range features {
		features[i] = md.features.At(int32(i)).Body()
	}
	return json.Marshal(modelJSON{
		Labels:       md.labels,
		FeatureNames: md.featureNames,
		Features:     features,
		Lambdas:      md.lambdas,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (md *ModelData) UnmarshalJSON(data []byte) error {
	var mj modelJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return err
	}
	if len(mj.Features) != len(mj.Lambdas) {
		return fmt.Errorf("model: %d features but %d weights", len(mj.Features), len(mj.Lambdas))
	}
	if md.labels == nil {
		*md = *NewModelData()
	}
	md.Clear()
	if mj.Labels != nil {
		for _, s := range mj.Labels.ToStr {
			md.labels.Put(s)
		}
	}
	if md.labels.Size() > MaxLabels {
		return fmt.Errorf("%w: %d labels", ErrTooManyLabels, md.labels.Size())
	}
	if mj.FeatureNames != nil {
		for _, s := range mj.FeatureNames.ToStr {
			md.featureNames.Put(s)
		}
	}
	for _, body := range mj.Features {
		f := Feature(body)
		if int(f.LabelID()) >= md.labels.Size() || int(f.FeatureNameID()) >= md.featureNames.Size() {
			return fmt.Errorf("model: feature %#x references an unknown label or name", body)
		}
		md.features.Put(f)
	}
	if md.features.Size() != len(mj.Lambdas) {
		return fmt.Errorf("model: duplicated features in snapshot")
	}
	md.lambdas = append([]float64{}, mj.Lambdas...)
	md.rebuildIndex()
	return nil
}

// SaveFile writes the model to path. Paths ending in ".json" get the JSON
// snapshot, anything else the tab-separated text format.
func (md *ModelData) SaveFile(path string, threshold float64) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := json.MarshalIndent(md, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(path, data, 0644)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := md.Save(f, threshold); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads a model written by SaveFile.
func (md *ModelData) LoadFile(path string) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, md)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return md.Load(f)
}
