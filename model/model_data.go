package model

import (
	"errors"
	"fmt"
	"math"
)

// ErrTooManyLabels is returned when a training set has more labels than a
// Feature can encode.
var ErrTooManyLabels = errors.New("model: too many labels")

// expOffsetLimit bounds the largest exponent passed to math.Exp.
const expOffsetLimit = 700

// ModelData holds the vocabularies and weights of a trained model.
//
// allFeatures is derived from the vocabularies: allFeatures[nameID] lists the
// IDs of every feature sharing that feature name, one per co-occurring label.
// It is rebuilt by rebuildIndex whenever a vocabulary changes.
type ModelData struct {
	labels       *Vocabulary
	featureNames *Vocabulary
	features     *FeatureVocabulary
	lambdas      []float64
	allFeatures  [][]int32
}

// NewModelData creates an empty model.
func NewModelData() *ModelData {
	return &ModelData{
		labels:       NewVocabulary(),
		featureNames: NewVocabulary(),
		features:     NewFeatureVocabulary(),
	}
}

// Clear removes all vocabularies and weights.
func (md *ModelData) Clear() {
	md.labels.Clear()
	md.featureNames.Clear()
	md.features.Clear()
	md.lambdas = nil
	md.allFeatures = nil
}

// InitFromInstances builds the vocabularies from training instances.
// A (label, feature name) pair becomes a feature only if it occurs in at
// least cutoff instances; cutoff values below 1 keep every pair.
// All weights start at zero.
func (md *ModelData) InitFromInstances(instances []Instance, cutoff int) error {
	md.Clear()
	if cutoff < 1 {
		cutoff = 1
	}

	type pair struct {
		label int32
		name  string
	}
	counts := make(map[pair]int)
	for _, in := range instances {
		if md.labels.ID(in.Label) == NotFound && md.labels.Size() >= MaxLabels {
			return fmt.Errorf("%w: label %q would be number %d, limit is %d",
				ErrTooManyLabels, in.Label, md.labels.Size()+1, MaxLabels)
		}
		labelID := md.labels.Put(in.Label)
		if cutoff == 1 {
			for _, f := range in.Features {
				nameID := md.featureNames.Put(f.Name)
				md.features.Put(NewFeature(labelID, nameID))
			}
			continue
		}
		for _, f := range in.Features {
			counts[pair{labelID, f.Name}]++
		}
	}

	if cutoff > 1 {
		for _, in := range instances {
			labelID := md.labels.ID(in.Label)
			for _, f := range in.Features {
				if counts[pair{labelID, f.Name}] < cutoff {
					continue
				}
				nameID := md.featureNames.Put(f.Name)
				md.features.Put(NewFeature(labelID, nameID))
			}
		}
	}

	md.lambdas = make([]float64, md.features.Size())
	md.rebuildIndex()
	return nil
}

func (md *ModelData) rebuildIndex() {
	md.allFeatures = make([][]int32, md.featureNames.Size())
	for nameID := range md.allFeatures {
		var ids []int32
		for labelID := 0; labelID < md.labels.Size(); labelID++ {
			id := md.features.ID(NewFeature(int32(labelID), int32(nameID)))
			if id != NotFound {
				ids = append(ids, id)
			}
		}
		md.allFeatures[nameID] = ids
	}
}

// FormatInstance resolves an Instance's label and feature names.
// Unknown feature names are dropped; an unknown label yields LabelID NotFound.
func (md *ModelData) FormatInstance(in Instance) MemInstance {
	mem := MemInstance{
		LabelID:  md.labels.ID(in.Label),
		Features: make([]FeatureValue, 0, len(in.Features)),
	}
	for _, f := range in.Features {
		if nameID := md.featureNames.ID(f.Name); nameID >= 0 {
			mem.AddFeature(nameID, f.Value)
		}
	}
	return mem
}

// NumClasses returns the number of labels.
func (md *ModelData) NumClasses() int { return md.labels.Size() }

// NumFeatures returns the number of f(x, y) features.
func (md *ModelData) NumFeatures() int { return md.features.Size() }

// NumFeatureNames returns the number of distinct feature names.
func (md *ModelData) NumFeatureNames() int { return md.featureNames.Size() }

// NumActiveFeatures returns the number of features with a non-zero weight.
func (md *ModelData) NumActiveFeatures() int {
	n := 0
	for _, w := range md.lambdas {
		if w != 0 {
			n++
		}
	}
	return n
}

// LabelID returns the ID of a label, or NotFound.
func (md *ModelData) LabelID(label string) int32 { return md.labels.ID(label) }

// Label returns the label with the given ID.
func (md *ModelData) Label(id int32) string { return md.labels.Str(id) }

// Labels returns all labels ordered by ID.
func (md *ModelData) Labels() []string { return md.labels.Strings() }

// FeatureNameID returns the ID of a feature name, or NotFound.
func (md *ModelData) FeatureNameID(name string) int32 { return md.featureNames.ID(name) }

// FeatureName returns the feature name with the given ID.
func (md *ModelData) FeatureName(id int32) string { return md.featureNames.Str(id) }

// FeatureAt returns the feature with the given ID.
func (md *ModelData) FeatureAt(id int32) Feature { return md.features.At(id) }

// FeatureID returns the ID of a feature, or NotFound.
func (md *ModelData) FeatureID(f Feature) int32 { return md.features.ID(f) }

// FeatureIDs returns the IDs of all features named nameID, or nil if the
// name ID is unknown. The returned slice must not be modified.
func (md *ModelData) FeatureIDs(nameID int32) []int32 {
	if nameID < 0 || int(nameID) >= len(md.allFeatures) {
		return nil
	}
	return md.allFeatures[nameID]
}

// Lambdas returns the weight vector indexed by feature ID.
// The returned slice aliases the model.
func (md *ModelData) Lambdas() []float64 { return md.lambdas }

// UpdateLambdas copies x into the weight vector. It panics on a length mismatch.
func (md *ModelData) UpdateLambdas(x []float64) {
	if len(x) != len(md.lambdas) {
		panic(fmt.Sprintf("model: UpdateLambdas length %d, want %d", len(x), len(md.lambdas)))
	}
	copy(md.lambdas, x)
}

// L1Norm returns the sum of absolute weights.
func (md *ModelData) L1Norm() float64 {
	var sum float64
	for _, w := range md.lambdas {
		sum += math.Abs(w)
	}
	return sum
}

// CalcConditionalProbability fills dist (len NumClasses) with p(y|x) and
// returns the most probable label ID.
//
// Scores are shifted by max(0, max score - 700) before exponentiation. If the
// normalizer is zero dist is left all-zero and label 0 is returned.
func (md *ModelData) CalcConditionalProbability(mem MemInstance, dist []float64) int32 {
	if len(dist) != md.NumClasses() {
		panic(fmt.Sprintf("model: distribution length %d, want %d", len(dist), md.NumClasses()))
	}
	if len(dist) == 0 {
		return 0
	}
	for y := range dist {
		dist[y] = 0
	}
	for _, fv := range mem.Features {
		for _, id := range md.FeatureIDs(fv.NameID) {
			dist[md.features.At(id).LabelID()] += md.lambdas[id] * fv.Value
		}
	}

	maxScore := dist[0]
	for _, s := range dist[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	offset := math.Max(0, maxScore-expOffsetLimit)

	var sum float64
	for y, s := range dist {
		dist[y] = math.Exp(s - offset)
		sum += dist[y]
	}

	var best int32
	if sum > 0 {
		for y := range dist {
			dist[y] /= sum
			if dist[y] > dist[best] {
				best = int32(y)
			}
		}
	} else {
		for y := range dist {
			dist[y] = 0
		}
	}
	return best
}

// Predict returns p(y|x) and the most probable label ID.
func (md *ModelData) Predict(mem MemInstance) ([]float64, int32) {
	dist := make([]float64, md.NumClasses())
	best := md.CalcConditionalProbability(mem, dist)
	return dist, best
}
