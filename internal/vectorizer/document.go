package vectorizer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/happyhackingspace/maxent/model"
)

// Text is a document reduced to the parts that are featurized.
type Text struct {
	Title string
	Body  string
}

// DocumentConfig configures a DocumentVectorizer.
type DocumentConfig struct {
	NgramRange  [2]int
	MinDF       int
	StopWords   bool
	NumberRatio float64
	// CharNgrams adds char_wb n-grams of the title when non-zero.
	CharNgrams [2]int
}

// DefaultDocumentConfig returns word uni- and bigrams for the body, stop
// words removed, digit-heavy tokens reduced to their shape.
func DefaultDocumentConfig() DocumentConfig {
	return DocumentConfig{
		NgramRange:  [2]int{1, 2},
		MinDF:       1,
		StopWords:   true,
		NumberRatio: 0.3,
	}
}

// DocumentVectorizer turns documents into tf-idf body features plus binary
// title features. Feature names are prefixed with "w:", "t:" and "tc:" so
// the groups never collide.
type DocumentVectorizer struct {
	Body      *TfidfVectorizer `json:"body"`
	Title     *CountVectorizer `json:"title"`
	TitleChar *CountVectorizer `json:"title_char,omitempty"`
}

// NewDocumentVectorizer creates an unfitted DocumentVectorizer.
func NewDocumentVectorizer(cfg DocumentConfig) *DocumentVectorizer {
	var stop map[string]bool
	if cfg.StopWords {
		stop = EnglishStopWords()
	}
	body := NewTfidfVectorizer(cfg.NgramRange, cfg.MinDF, false, AnalyzerWord, stop)
	body.CountVec.Prefix = "w:"
	body.CountVec.NumberRatio = cfg.NumberRatio

	title := NewCountVectorizer([2]int{1, 1}, true, AnalyzerWord, 1)
	title.Prefix = "t:"
	title.StopWords = stop
	title.NumberRatio = cfg.NumberRatio

	dv := &DocumentVectorizer{Body: body, Title: title}
	if cfg.CharNgrams[1] > 0 {
		dv.TitleChar = NewCountVectorizer(cfg.CharNgrams, true, AnalyzerCharWB, cfg.MinDF)
		dv.TitleChar.Prefix = "tc:"
	}
	return dv
}

// Fit fits every part on docs.
func (dv *DocumentVectorizer) Fit(docs []Text) {
	bodies := make([]string, len(docs))
	titles := make([]string, len(docs))
	for i, d := range docs {
		bodies[i], titles[i] = d.Body, d.Title
	}
	dv.Body.Fit(bodies)
	dv.Title.Fit(titles)
	if dv.TitleChar != nil {
		dv.TitleChar.Fit(titles)
	}
}

// Transform returns the features of doc sorted by name.
func (dv *DocumentVectorizer) Transform(doc Text) []model.NamedValue {
	parts := [][]model.NamedValue{dv.Body.Transform(doc.Body), dv.Title.Transform(doc.Title)}
	if dv.TitleChar != nil {
		parts = append(parts, dv.TitleChar.Transform(doc.Title))
	}
	return Concat(parts...)
}

// FitTransform fits on docs and transforms them.
func (dv *DocumentVectorizer) FitTransform(docs []Text) [][]model.NamedValue {
	dv.Fit(docs)
	out := make([][]model.NamedValue, len(docs))
	for i, d := range docs {
		out[i] = dv.Transform(d)
	}
	return out
}

// Save writes the fitted vectorizer as JSON.
func (dv *DocumentVectorizer) Save(path string) error {
	data, err := json.Marshal(dv)
	if err != nil {
		return fmt.Errorf("vectorizer: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("vectorizer: %w", err)
	}
	return nil
}

// LoadDocumentVectorizer reads a vectorizer written by Save.
func LoadDocumentVectorizer(path string) (*DocumentVectorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vectorizer: %w", err)
	}
	var dv DocumentVectorizer
	if err := json.Unmarshal(data, &dv); err != nil {
		return nil, fmt.Errorf("vectorizer: parse %s: %w", path, err)
	}
	if dv.Body == nil || dv.Body.CountVec == nil || dv.Title == nil {
		return nil, fmt.Errorf("vectorizer: %s is not a document vectorizer", path)
	}
	return &dv, nil
}
