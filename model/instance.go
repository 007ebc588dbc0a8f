package model

// NamedValue is a real-valued feature identified by name.
type NamedValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Instance is a labeled example with named features, as read from input files.
type Instance struct {
	Label    string       `json:"label"`
	Features []NamedValue `json:"features"`
}

// AddFeature appends a real-valued feature.
func (in *Instance) AddFeature(name string, value float64) {
	in.Features = append(in.Features, NamedValue{Name: name, Value: value})
}

// FeatureValue is a real-valued feature identified by its feature-name ID.
type FeatureValue struct {
	NameID int32
	Value  float64
}

// MemInstance is an Instance with names resolved through a ModelData.
// LabelID is NotFound when the label is unknown to the model.
type MemInstance struct {
	LabelID  int32
	Features []FeatureValue
}

// AddFeature appends a feature by name ID.
func (m *MemInstance) AddFeature(nameID int32, value float64) {
	m.Features = append(m.Features, FeatureValue{NameID: nameID, Value: value})
}
