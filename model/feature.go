package model

import "fmt"

const (
	// MaxLabels is the number of distinct labels a Feature can encode.
	MaxLabels = 256
	// MaxFeatureNameID is the largest feature-name ID a Feature can encode.
	MaxFeatureNameID = 1<<24 - 1
)

// Feature is a packed f(x, y) pair: the feature-name ID in the upper 24 bits
// and the label ID in the lower 8 bits.
type Feature uint32

// NewFeature packs a label ID and a feature-name ID.
// It panics if either ID does not fit its field.
func NewFeature(labelID, featureNameID int32) Feature {
	if labelID < 0 || labelID >= MaxLabels {
		panic(fmt.Sprintf("model: label id %d out of range [0, %d]", labelID, MaxLabels-1))
	}
	if featureNameID < 0 || featureNameID > MaxFeatureNameID {
		panic(fmt.Sprintf("model: feature name id %d out of range [0, %d]", featureNameID, MaxFeatureNameID))
	}
	return Feature(uint32(featureNameID)<<8 | uint32(labelID))
}

// LabelID returns the label (y) part.
func (f Feature) LabelID() int32 {
	return int32(f & 0xff)
}

// FeatureNameID returns the feature-name (x) part.
func (f Feature) FeatureNameID() int32 {
	return int32(f >> 8)
}

// Body returns the packed representation, usable as a map key.
func (f Feature) Body() uint32 {
	return uint32(f)
}

// FeatureVocabulary maps between features and dense integer IDs.
type FeatureVocabulary struct {
	toID  map[uint32]int32
	toFea []Feature
}

// NewFeatureVocabulary creates an empty feature vocabulary.
func NewFeatureVocabulary() *FeatureVocabulary {
	return &FeatureVocabulary{toID: make(map[uint32]int32)}
}

// Put adds a feature if not already present, returns its ID.
func (fv *FeatureVocabulary) Put(f Feature) int32 {
	if id, ok := fv.toID[f.Body()]; ok {
		return id
	}
	if fv.toID == nil {
		fv.toID = make(map[uint32]int32)
	}
	id := int32(len(fv.toFea))
	fv.toID[f.Body()] = id
	fv.toFea = append(fv.toFea, f)
	return id
}

// ID returns the ID of a feature, or NotFound.
func (fv *FeatureVocabulary) ID(f Feature) int32 {
	if id, ok := fv.toID[f.Body()]; ok {
		return id
	}
	return NotFound
}

// At returns the feature with the given ID. It panics if id is out of range.
func (fv *FeatureVocabulary) At(id int32) Feature {
	return fv.toFea[id]
}

// Size returns the number of features.
func (fv *FeatureVocabulary) Size() int {
	return len(fv.toFea)
}

// Clear removes all features.
func (fv *FeatureVocabulary) Clear() {
	fv.toID = make(map[uint32]int32)
	fv.toFea = nil
}
