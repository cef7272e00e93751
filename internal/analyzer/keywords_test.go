package analyzer

import (
	"testing"

	"github.com/zombar/textinsight/internal/textproc"
)

func TestExtractKeywordsRanksByFrequency(t *testing.T) {
	opts := textproc.Options{MinWordLength: 2, ExcludeStopWords: true}
	var words []string
	for _, doc := range []string{"the cat sat on the mat", "the dog sat on the log"} {
		words = append(words, textproc.Words(doc, opts)...)
	}

	keywords := ExtractKeywords(words, 10, 1)

	expected := []struct {
		term  string
		count int
	}{
		{"sat", 2},
		{"cat", 1},
		{"dog", 1},
		{"log", 1},
		{"mat", 1},
	}
	if len(keywords) != len(expected) {
		t.Fatalf("expected %d keywords, got %d: %+v", len(expected), len(keywords), keywords)
	}
	for i, want := range expected {
		if keywords[i].Term != want.term || keywords[i].Frequency != want.count {
			t.Errorf("keyword %d: expected %s:%d, got %s:%d", i, want.term, want.count, keywords[i].Term, keywords[i].Frequency)
		}
	}
	if keywords[0].Density != 33.33 {
		t.Errorf("expected density 33.33, got %v", keywords[0].Density)
	}
}

func TestExtractKeywordsConservesFrequency(t *testing.T) {
	words := textproc.Words("Revenue grew. Revenue fell. Costs grew while revenue held and costs fell.", textproc.DefaultOptions())
	keywords := ExtractKeywords(words, 0, 1)

	literal := make(map[string]int)
	for _, w := range words {
		literal[w]++
	}

	sum := 0
	for _, k := range keywords {
		sum += k.Frequency
		if k.Frequency != literal[k.Term] {
			t.Errorf("%s: expected frequency %d, got %d", k.Term, literal[k.Term], k.Frequency)
		}
		if k.Density < 0 || k.Density > 100 {
			t.Errorf("%s: density %v out of range", k.Term, k.Density)
		}
		if k.Score < 0 || k.Score > 1 {
			t.Errorf("%s: score %v out of range", k.Term, k.Score)
		}
	}
	if sum > len(words) {
		t.Errorf("keyword frequencies sum to %d, more than %d tokens", sum, len(words))
	}
}

func TestExtractKeywordsFilters(t *testing.T) {
	words := []string{"a", "go", "go", "go", "rust", "rust", "zig"}

	tests := []struct {
		name         string
		maxResults   int
		minFrequency int
		expected     []string
	}{
		{"no filters", 0, 1, []string{"go", "rust", "zig"}},
		{"min frequency", 0, 2, []string{"go", "rust"}},
		{"max results", 1, 1, []string{"go"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keywords := ExtractKeywords(words, tt.maxResults, tt.minFrequency)
			if len(keywords) != len(tt.expected) {
				t.Fatalf("expected %v, got %+v", tt.expected, keywords)
			}
			for i, term := range tt.expected {
				if keywords[i].Term != term {
					t.Errorf("position %d: expected %s, got %s", i, term, keywords[i].Term)
				}
			}
		})
	}
}

func TestExtractKeywordsEmpty(t *testing.T) {
	keywords := ExtractKeywords(nil, 10, 1)
	if keywords == nil || len(keywords) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", keywords)
	}
}

func TestExtractKeyTerms(t *testing.T) {
	words := []string{"analysis", "analysis", "data", "data", "data", "data", "insight", "model"}
	terms := ExtractKeyTerms(words, 5)

	expected := []string{"analysis", "insight"}
	if len(terms) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, terms)
	}
	for i := range expected {
		if terms[i] != expected[i] {
			t.Errorf("position %d: expected %s, got %s", i, expected[i], terms[i])
		}
	}
}
