// Package vectorizer turns text and structured records into named features.
package vectorizer

import (
	"slices"
	"sort"
	"strings"

	"github.com/happyhackingspace/maxent/internal/textutil"
	"github.com/happyhackingspace/maxent/model"
)

// Analyzer names.
const (
	AnalyzerWord   = "word"
	AnalyzerCharWB = "char_wb"
)

// CountVectorizer converts text to term count features.
type CountVectorizer struct {
	Vocabulary map[string]int  `json:"vocabulary"`
	NgramRange [2]int          `json:"ngram_range"`
	Binary     bool            `json:"binary"`
	Analyzer   string          `json:"analyzer"` // "word" or "char_wb"
	MinDF      int             `json:"min_df"`
	StopWords  map[string]bool `json:"stop_words,omitempty"`

	// Prefix is prepended to every feature name so that several
	// vectorizers can feed one instance.
	Prefix string `json:"prefix,omitempty"`

	// NumberRatio > 0 replaces tokens with at least that share of digits by
	// their shape (see textutil.NumberShape).
	NumberRatio float64 `json:"number_ratio,omitempty"`
}

// NewCountVectorizer creates a CountVectorizer. An empty analyzer means
// "word"; minDF below 1 means 1.
func NewCountVectorizer(ngramRange [2]int, binary bool, analyzer string, minDF int) *CountVectorizer {
	if analyzer == "" {
		analyzer = AnalyzerWord
	}
	if minDF < 1 {
		minDF = 1
	}
	return &CountVectorizer{
		NgramRange: ngramRange,
		Binary:     binary,
		Analyzer:   analyzer,
		MinDF:      minDF,
	}
}

// analyze lowercases text and returns its terms. Stop words are removed
// before n-grams are built.
func (cv *CountVectorizer) analyze(text string) []string {
	tokens := textutil.Tokenize(strings.ToLower(text))
	tokens = textutil.RemoveWords(tokens, cv.StopWords)
	if cv.NumberRatio > 0 {
		for i, tok := range tokens {
			tokens[i] = textutil.NumberShape(tok, cv.NumberRatio)
		}
	}
	if cv.Analyzer == AnalyzerCharWB {
		var terms []string
		for _, tok := range tokens {
			terms = append(terms, textutil.Ngrams(" "+tok+" ", cv.NgramRange[0], cv.NgramRange[1])...)
		}
		return terms
	}
	return textutil.TokenNgrams(tokens, cv.NgramRange[0], cv.NgramRange[1])
}

// Fit builds the vocabulary from terms found in at least MinDF documents.
func (cv *CountVectorizer) Fit(corpus []string) {
	df := documentFrequencies(cv, corpus)
	terms := make([]string, 0, len(df))
	for term, n := range df {
		if n >= cv.MinDF {
			terms = append(terms, term)
		}
	}
	sort.Strings(terms)
	cv.Vocabulary = make(map[string]int, len(terms))
	for i, term := range terms {
		cv.Vocabulary[term] = i
	}
}

func documentFrequencies(cv *CountVectorizer, corpus []string) map[string]int {
	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]bool)
		for _, term := range cv.analyze(doc) {
			if !seen[term] {
				seen[term] = true
				df[term]++
			}
		}
	}
	return df
}

// FitTransform fits the vocabulary and transforms the corpus.
func (cv *CountVectorizer) FitTransform(corpus []string) [][]model.NamedValue {
	cv.Fit(corpus)
	out := make([][]model.NamedValue, len(corpus))
	for i, doc := range corpus {
		out[i] = cv.Transform(doc)
	}
	return out
}

// counts returns the in-vocabulary term frequencies of text.
func (cv *CountVectorizer) counts(text string) map[string]float64 {
	counts := make(map[string]float64)
	for _, term := range cv.analyze(text) {
		if _, ok := cv.Vocabulary[term]; !ok {
			continue
		}
		if cv.Binary {
			counts[term] = 1
		} else {
			counts[term]++
		}
	}
	return counts
}

// Transform returns the term counts of text as features sorted by name.
// Terms outside the vocabulary are dropped.
func (cv *CountVectorizer) Transform(text string) []model.NamedValue {
	return cv.named(cv.counts(text))
}

func (cv *CountVectorizer) named(values map[string]float64) []model.NamedValue {
	out := make([]model.NamedValue, 0, len(values))
	for term, v := range values {
		out = append(out, model.NamedValue{Name: cv.Prefix + term, Value: v})
	}
	sortByName(out)
	return out
}

// VocabSize returns the vocabulary size.
func (cv *CountVectorizer) VocabSize() int {
	return len(cv.Vocabulary)
}

// Terms returns the vocabulary in index order.
func (cv *CountVectorizer) Terms() []string {
	terms := make([]string, len(cv.Vocabulary))
	for term, i := range cv.Vocabulary {
		terms[i] = term
	}
	return terms
}

func sortByName(features []model.NamedValue) {
	slices.SortFunc(features, func(a, b model.NamedValue) int {
		return strings.Compare(a.Name, b.Name)
	})
}
