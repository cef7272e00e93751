package analyzer

import (
	"sort"
	"strings"

	"github.com/zombar/textinsight/internal/models"
	"github.com/zombar/textinsight/internal/textproc"
)

// MaxNGrams caps the phrases GenerateNGrams returns
const MaxNGrams = 20

// GenerateNGrams counts every run of n consecutive tokens. Windows that
// contain a stop word are skipped and only phrases seen at least twice are
// kept, most frequent first.
func GenerateNGrams(words []string, n int, stopWords textproc.StopWordSet) []models.NGram {
	return GenerateCorpusNGrams([][]string{words}, n, stopWords)
}

// GenerateCorpusNGrams is GenerateNGrams over several token streams counted
// together. Windows never span two streams.
func GenerateCorpusNGrams(docs [][]string, n int, stopWords textproc.StopWordSet) []models.NGram {
	result := []models.NGram{}
	if n < 1 {
		return result
	}

	counts := make(map[string]int)
	for _, words := range docs {
		for i := 0; i+n <= len(words); i++ {
			window := words[i : i+n]
			if containsStopWord(window, stopWords) {
				continue
			}
			counts[strings.Join(window, " ")]++
		}
	}

	for phrase, count := range counts {
		if count >= 2 {
			result = append(result, models.NGram{Phrase: phrase, Count: count})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Phrase < result[j].Phrase
	})

	if len(result) > MaxNGrams {
		result = result[:MaxNGrams]
	}
	return result
}

func containsStopWord(window []string, stopWords textproc.StopWordSet) bool {
	for _, w := range window {
		if stopWords.Contains(w) {
			return true
		}
	}
	return false
}
