// Package model holds the data model of a log-linear classifier: the label and
// feature-name vocabularies, the packed f(x, y) features, the weight vector and
// the conditional probability computation shared by training and inference.
package model

// NotFound is returned by vocabulary lookups for unknown keys.
const NotFound int32 = -1

// Vocabulary maps between strings and dense integer IDs.
// IDs are assigned in insertion order starting at 0.
type Vocabulary struct {
	ToID  map[string]int32 `json:"to_id"`
	ToStr []string         `json:"to_str"`
}

// NewVocabulary creates an empty vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		ToID: make(map[string]int32),
	}
}

// Put adds a string to the vocabulary if not already present, returns its ID.
func (v *Vocabulary) Put(s string) int32 {
	if id, ok := v.ToID[s]; ok {
		return id
	}
	if v.ToID == nil {
		v.ToID = make(map[string]int32)
	}
	id := int32(len(v.ToStr))
	v.ToID[s] = id
	v.ToStr = append(v.ToStr, s)
	return id
}

// ID returns the ID for a string, or NotFound.
func (v *Vocabulary) ID(s string) int32 {
	if id, ok := v.ToID[s]; ok {
		return id
	}
	return NotFound
}

// Str returns the string for an ID. It panics if id is out of range.
func (v *Vocabulary) Str(id int32) string {
	return v.ToStr[id]
}

// Size returns the number of entries.
func (v *Vocabulary) Size() int {
	return len(v.ToStr)
}

// Strings returns the entries ordered by ID.
func (v *Vocabulary) Strings() []string {
	out := make([]string, len(v.ToStr))
	copy(out, v.ToStr)
	return out
}

// Clear removes all entries.
func (v *Vocabulary) Clear() {
	v.ToID = make(map[string]int32)
	v.ToStr = nil
}
