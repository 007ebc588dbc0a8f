package vectorizer

import (
	"math"

	"github.com/happyhackingspace/maxent/model"
	"gonum.org/v1/gonum/floats"
)

// TfidfVectorizer converts text to L2-normalized TF-IDF features.
type TfidfVectorizer struct {
	CountVec *CountVectorizer   `json:"count_vec"`
	IDF      map[string]float64 `json:"idf"`
}

// NewTfidfVectorizer creates a TfidfVectorizer. Stop words are removed from
// the token stream of the word analyzer and before character n-grams.
func NewTfidfVectorizer(ngramRange [2]int, minDF int, binary bool, analyzer string, stopWords map[string]bool) *TfidfVectorizer {
	cv := NewCountVectorizer(ngramRange, binary, analyzer, minDF)
	cv.StopWords = stopWords
	return &TfidfVectorizer{CountVec: cv}
}

// Fit builds the vocabulary and computes smoothed IDF values:
// log((1 + n) / (1 + df)) + 1.
func (tv *TfidfVectorizer) Fit(corpus []string) {
	tv.CountVec.Fit(corpus)
	df := documentFrequencies(tv.CountVec, corpus)
	n := float64(len(corpus))
	tv.IDF = make(map[string]float64, tv.CountVec.VocabSize())
	for term := range tv.CountVec.Vocabulary {
		tv.IDF[term] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
}

// FitTransform fits and transforms the corpus.
func (tv *TfidfVectorizer) FitTransform(corpus []string) [][]model.NamedValue {
	tv.Fit(corpus)
	out := make([][]model.NamedValue, len(corpus))
	for i, doc := range corpus {
		out[i] = tv.Transform(doc)
	}
	return out
}

// Transform returns the TF-IDF features of text sorted by name.
func (tv *TfidfVectorizer) Transform(text string) []model.NamedValue {
	out := tv.CountVec.named(tv.CountVec.counts(text))
	if len(out) == 0 {
		return out
	}
	values := make([]float64, len(out))
	for i, f := range out {
		values[i] = f.Value * tv.IDF[f.Name[len(tv.CountVec.Prefix):]]
	}
	if norm := floats.Norm(values, 2); norm > 0 {
		floats.Scale(1/norm, values)
	}
	for i := range out {
		out[i].Value = values[i]
	}
	return out
}

// VocabSize returns the vocabulary size.
func (tv *TfidfVectorizer) VocabSize() int {
	return tv.CountVec.VocabSize()
}

// EnglishStopWords returns a common English stop word set.
func EnglishStopWords() map[string]bool {
	words := []string{
		"a", "about", "above", "after", "again", "against", "ain", "all", "am",
		"an", "and", "any", "are", "aren", "aren't", "as", "at", "be", "because",
		"been", "before", "being", "below", "between", "both", "but", "by", "can",
		"couldn", "couldn't", "d", "did", "didn", "didn't", "do", "does", "doesn",
		"doesn't", "doing", "don", "don't", "down", "during", "each", "few", "for",
		"from", "further", "had", "hadn", "hadn't", "has", "hasn", "hasn't", "have",
		"haven", "haven't", "having", "he", "her", "here", "hers", "herself", "him",
		"himself", "his", "how", "i", "if", "in", "into", "is", "isn", "isn't", "it",
		"it's", "its", "itself", "just", "ll", "m", "ma", "me", "mightn", "mightn't",
		"more", "most", "mustn", "mustn't", "my", "myself", "needn", "needn't", "no",
		"nor", "not", "now", "o", "of", "off", "on", "once", "only", "or", "other",
		"our", "ours", "ourselves", "out", "over", "own", "re", "s", "same", "shan",
		"shan't", "she", "she's", "should", "should've", "shouldn", "shouldn't", "so",
		"some", "such", "t", "than", "that", "that'll", "the", "their", "theirs",
		"them", "themselves", "then", "there", "these", "they", "this", "those",
		"through", "to", "too", "under", "until", "up", "ve", "very", "was", "wasn",
		"wasn't", "we", "were", "weren", "weren't", "what", "when", "where", "which",
		"while", "who", "whom", "why", "will", "with", "won", "won't", "wouldn",
		"wouldn't", "y", "you", "you'd", "you'll", "you're", "you've", "your",
		"yours", "yourself", "yourselves",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
