package analyzer

import (
	"math"

	"github.com/zombar/textinsight/internal/models"
	"github.com/zombar/textinsight/internal/textproc"
)

// NeutralThreshold is the half-width of the dead zone around zero that
// labels a score Neutral.
const NeutralThreshold = 0.1

// AnalyzeSentiment scores a token stream against lex on the canonical
// [-1, 1] scale. A nil lexicon uses DefaultLexicon.
func AnalyzeSentiment(words []string, lex *Lexicon) models.SentimentBreakdown {
	if lex == nil {
		lex = DefaultLexicon()
	}
	breakdown := models.SentimentBreakdown{
		PositiveWords: []string{},
		NegativeWords: []string{},
	}
	if len(words) == 0 {
		return breakdown
	}

	var sum, abs float64
	for _, word := range words {
		w, ok := lex.Weight(word)
		switch {
		case !ok || w == 0:
			breakdown.NeutralWords++
			continue
		case w > 0:
			breakdown.PositiveWords = append(breakdown.PositiveWords, word)
		default:
			breakdown.NegativeWords = append(breakdown.NegativeWords, word)
		}
		sum += w
		abs += math.Abs(w)
	}

	n := float64(len(words))
	breakdown.Score = clamp(sum/n/WeightStrong*10, -1, 1)
	breakdown.Magnitude = abs / n
	return breakdown
}

// LabelFor classifies a canonical score
func LabelFor(score float64) models.SentimentLabel {
	switch {
	case score >= NeutralThreshold:
		return models.SentimentPositive
	case score <= -NeutralThreshold:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

// ConfidenceFor is how far score sits from the label boundary. Polar labels
// grow with |score|; Neutral is most confident at exactly zero.
func ConfidenceFor(score float64, label models.SentimentLabel) float64 {
	if label == models.SentimentNeutral {
		return clamp(1-math.Abs(score)/NeutralThreshold*0.5, 0, 1)
	}
	return clamp(math.Abs(score), 0, 1)
}

// ScoreDocument scores a single document
func ScoreDocument(index int, text string, lex *Lexicon) models.SentimentScore {
	words := textproc.Words(text, textproc.RawOptions(textproc.DefaultOptions()))
	b := AnalyzeSentiment(words, lex)
	label := LabelFor(b.Score)
	return models.SentimentScore{
		Index:      index,
		Text:       text,
		Score:      b.Score,
		Magnitude:  b.Magnitude,
		Label:      label,
		Confidence: ConfidenceFor(b.Score, label),
	}
}

// AnalyzeDocuments scores every document and aggregates the distribution
func AnalyzeDocuments(docs []string, lex *Lexicon) models.SentimentStats {
	results := make([]models.SentimentScore, 0, len(docs))
	for i, doc := range docs {
		results = append(results, ScoreDocument(i, doc, lex))
	}
	return AggregateSentiment(results)
}

// AggregateSentiment computes label counts, the mean score and the extremes
// of already scored documents.
func AggregateSentiment(results []models.SentimentScore) models.SentimentStats {
	if results == nil {
		results = []models.SentimentScore{}
	}
	stats := models.SentimentStats{Results: results}
	if len(results) == 0 {
		return stats
	}

	var total float64
	mostPos, mostNeg := -1, -1
	for i, r := range results {
		total += r.Score
		switch r.Label {
		case models.SentimentPositive:
			stats.PositiveCount++
			if mostPos < 0 || r.Score > results[mostPos].Score {
				mostPos = i
			}
		case models.SentimentNegative:
			stats.NegativeCount++
			if mostNeg < 0 || r.Score < results[mostNeg].Score {
				mostNeg = i
			}
		default:
			stats.NeutralCount++
		}
	}

	stats.AverageScore = total / float64(len(results))
	if mostPos >= 0 {
		best := results[mostPos]
		stats.MostPositive = &best
	}
	if mostNeg >= 0 {
		worst := results[mostNeg]
		stats.MostNegative = &worst
	}
	return stats
}
