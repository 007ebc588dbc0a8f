// Package textutil splits document text into tokens and n-grams.
package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize returns the runs of letters, digits and underscores in text.
func Tokenize(text string) []string {
	return tokenRe.FindAllString(text, -1)
}

// Ngrams returns the character n-grams of s for every n in [minN, maxN].
func Ngrams(s string, minN, maxN int) []string {
	runes := []rune(s)
	var out []string
	for n := max(minN, 1); n <= maxN && n <= len(runes); n++ {
		for i := 0; i+n <= len(runes); i++ {
			out = append(out, string(runes[i:i+n]))
		}
	}
	return out
}

// TokenNgrams returns the space-joined token n-grams for every n in
// [minN, maxN], shorter n-grams first.
func TokenNgrams(tokens []string, minN, maxN int) []string {
	var out []string
	for n := max(minN, 1); n <= maxN && n <= len(tokens); n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// RemoveWords drops the tokens found in words. The input slice is reused.
func RemoveWords(tokens []string, words map[string]bool) []string {
	if len(words) == 0 {
		return tokens
	}
	out := tokens[:0]
	for _, tok := range tokens {
		if !words[tok] {
			out = append(out, tok)
		}
	}
	return out
}

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeWhitespaces collapses every run of whitespace, line breaks
// included, into one space.
func NormalizeWhitespaces(text string) string {
	return spaceRe.ReplaceAllString(text, " ")
}

// Normalize lowercases text and collapses whitespace.
func Normalize(text string) string {
	return NormalizeWhitespaces(strings.ToLower(text))
}

// NumberShape maps a token whose share of digits is at least ratio to its
// shape: digits become X, letters become C. "2024" and "1999" both become
// "XXXX". Other tokens are returned unchanged.
func NumberShape(token string, ratio float64) string {
	if token == "" {
		return token
	}
	digits := 0
	for _, r := range token {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits == 0 || float64(digits)/float64(utf8.RuneCountInString(token)) < ratio {
		return token
	}
	var b strings.Builder
	for _, r := range token {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune('X')
		case unicode.IsLetter(r):
			b.WriteRune('C')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
