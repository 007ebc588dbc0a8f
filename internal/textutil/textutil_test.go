package textutil

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"hello world", []string{"hello", "world"}},
		{"stock_price", []string{"stock_price"}},
		{"news@bank.com", []string{"news", "bank", "com"}},
		{"", nil},
		{"  spaces  ", []string{"spaces"}},
		{"café résumé", []string{"café", "résumé"}},
		{"open-source", []string{"open", "source"}},
		{"Q3 2024", []string{"Q3", "2024"}},
	}
	for _, tt := range tests {
		got := Tokenize(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNgrams(t *testing.T) {
	tests := []struct {
		s    string
		min  int
		max  int
		want []string
	}{
		{"abc", 2, 3, []string{"ab", "bc", "abc"}},
		{"ab", 3, 5, nil},
		{"bank", 4, 4, []string{"bank"}},
		{"ab", 1, 2, []string{"a", "b", "ab"}},
		{"", 1, 3, nil},
		{"ab", 0, 1, []string{"a", "b"}},
		{"çé", 2, 2, []string{"çé"}},
	}
	for _, tt := range tests {
		got := Ngrams(tt.s, tt.min, tt.max)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Ngrams(%q, %d, %d) = %v, want %v", tt.s, tt.min, tt.max, got, tt.want)
		}
	}
}

func TestTokenNgrams(t *testing.T) {
	tokens := []string{"apple", "stock", "price", "rises"}
	got := TokenNgrams(tokens, 1, 2)
	want := []string{"apple", "stock", "price", "rises", "apple stock", "stock price", "price rises"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TokenNgrams = %v, want %v", got, want)
	}
	if got := TokenNgrams(tokens, 5, 6); got != nil {
		t.Errorf("TokenNgrams longer than input = %v, want nil", got)
	}
}

func TestRemoveWords(t *testing.T) {
	stop := map[string]bool{"the": true, "of": true}
	got := RemoveWords([]string{"the", "price", "of", "the", "stock"}, stop)
	want := []string{"price", "stock"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RemoveWords = %v, want %v", got, want)
	}
	tokens := []string{"a", "b"}
	if got := RemoveWords(tokens, nil); !reflect.DeepEqual(got, tokens) {
		t.Errorf("RemoveWords with no words = %v", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Hello World", "hello world"},
		{"  multiple   spaces  ", " multiple spaces "},
		{"line\nbreak\rhere", "line break here"},
		{"UPPER", "upper"},
	}
	for _, tt := range tests {
		got := Normalize(tt.input)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeWhitespaces(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"hello\nworld", "hello world"},
		{"hello\r\nworld", "hello world"},
		{"a  b \t c", "a b c"},
	}
	for _, tt := range tests {
		got := NormalizeWhitespaces(tt.input)
		if got != tt.want {
			t.Errorf("NormalizeWhitespaces(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNumberShape(t *testing.T) {
	tests := []struct {
		input string
		ratio float64
		want  string
	}{
		{"2024", 0.3, "XXXX"},
		{"q3", 0.3, "CX"},
		{"bank", 0.3, "bank"},
		{"", 0.3, ""},
		{"12-34", 0.3, "XX-XX"},
		{"a1b2c3", 0.3, "CXCXCX"},
		{"abcd1", 0.5, "abcd1"},
	}
	for _, tt := range tests {
		got := NumberShape(tt.input, tt.ratio)
		if got != tt.want {
			t.Errorf("NumberShape(%q, %v) = %q, want %q", tt.input, tt.ratio, got, tt.want)
		}
	}
}
