package analyzer

import (
	"math"
	"sort"
	"unicode/utf8"

	"github.com/zombar/textinsight/internal/models"
)

const minKeywordLength = 2

// CountFrequencies counts each token in words
func CountFrequencies(words []string) map[string]int {
	freq := make(map[string]int, len(words)/2+1)
	for _, word := range words {
		freq[word]++
	}
	return freq
}

// ExtractKeywords ranks the tokens of words by frequency. Terms shorter than
// two runes or seen fewer than minFrequency times are skipped. Equal counts
// sort lexicographically. maxResults <= 0 returns every keyword.
func ExtractKeywords(words []string, maxResults, minFrequency int) []models.Keyword {
	result := []models.Keyword{}
	if len(words) == 0 {
		return result
	}

	total := float64(len(words))
	for term, count := range CountFrequencies(words) {
		if count < minFrequency || utf8.RuneCountInString(term) < minKeywordLength {
			continue
		}
		result = append(result, models.Keyword{
			Term:      term,
			Frequency: count,
			Density:   round2(float64(count) / total * 100),
			Score:     float64(count) / total,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Frequency != result[j].Frequency {
			return result[i].Frequency > result[j].Frequency
		}
		return result[i].Term < result[j].Term
	})

	if maxResults > 0 && len(result) > maxResults {
		result = result[:maxResults]
	}
	return result
}

// ExtractKeyTerms favors long, repeated terms: each term longer than four
// runes scores count * length.
func ExtractKeyTerms(words []string, limit int) []string {
	type termScore struct {
		term  string
		score int
	}

	var scores []termScore
	for term, count := range CountFrequencies(words) {
		length := utf8.RuneCountInString(term)
		if length > 4 {
			scores = append(scores, termScore{term, count * length})
		}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].term < scores[j].term
	})

	result := []string{}
	for i := 0; i < len(scores) && (limit <= 0 || i < limit); i++ {
		result = append(result, scores[i].term)
	}
	return result
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
