package remote

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
	"github.com/tidwall/gjson"

	"github.com/zombar/textinsight/internal/analyzer"
	"github.com/zombar/textinsight/internal/models"
)

var errUnknownShape = errors.New("unrecognized response shape")

// SentimentResponse is one of the known sentiment service payloads:
// ScaledSentiment or PercentSentiment.
type SentimentResponse interface {
	sentimentShape() string
}

// ScaledSentiment is the lexicon backend's payload. Scores lie on [-5, 5].
//
//	{"results": [{"text": "...", "score": 2.5, "label": "positive", "confidence": 0.7}]}
type ScaledSentiment struct {
	Results []ScaledResult
}

type ScaledResult struct {
	Text       string
	Score      float64
	Label      string
	Confidence float64
	// HasConfidence is false when the service omitted confidence
	HasConfidence bool
}

// PercentSentiment is the classifier backend's payload. Polarity is a
// percentage on [-100, 100].
//
//	{"documents": [{"content": "...", "sentiment": {"polarity": "POSITIVE", "percentage": "64"}}]}
type PercentSentiment struct {
	Documents []PercentDocument
}

type PercentDocument struct {
	Content    string
	Polarity   string
	Percentage float64
}

func (ScaledSentiment) sentimentShape() string  { return "scaled" }
func (PercentSentiment) sentimentShape() string { return "percent" }

// DecodeSentiment discriminates body into one of the SentimentResponse
// shapes without normalizing it.
func DecodeSentiment(body []byte) (SentimentResponse, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON")
	}
	root := gjson.ParseBytes(body)

	switch {
	case root.Get("results").IsArray():
		var out ScaledSentiment
		for _, r := range root.Get("results").Array() {
			score, err := cast.ToFloat64E(r.Get("score").Value())
			if err != nil {
				return nil, fmt.Errorf("results score: %w", err)
			}
			result := ScaledResult{
				Text:  r.Get("text").String(),
				Score: score,
				Label: r.Get("label").String(),
			}
			if c := r.Get("confidence"); c.Exists() {
				result.Confidence = cast.ToFloat64(c.Value())
				result.HasConfidence = true
			}
			out.Results = append(out.Results, result)
		}
		return out, nil

	case root.Get("documents").IsArray():
		var out PercentSentiment
		for _, d := range root.Get("documents").Array() {
			pct, err := cast.ToFloat64E(d.Get("sentiment.percentage").Value())
			if err != nil {
				return nil, fmt.Errorf("documents percentage: %w", err)
			}
			out.Documents = append(out.Documents, PercentDocument{
				Content:    d.Get("content").String(),
				Polarity:   d.Get("sentiment.polarity").String(),
				Percentage: pct,
			})
		}
		return out, nil
	}
	return nil, errUnknownShape
}

// NormalizeSentiment maps any SentimentResponse onto the canonical [-1, 1]
// scale and aggregates it.
func NormalizeSentiment(resp SentimentResponse) models.SentimentStats {
	var results []models.SentimentScore

	switch r := resp.(type) {
	case ScaledSentiment:
		for i, res := range r.Results {
			score := clampUnit(res.Score / 5)
			label := LabelFromRemote(res.Label, score)
			confidence := analyzer.ConfidenceFor(score, label)
			if res.HasConfidence {
				confidence = clampRange(res.Confidence, 0, 1)
			}
			results = append(results, models.SentimentScore{
				Index:      i,
				Text:       res.Text,
				Score:      score,
				Magnitude:  math.Abs(score),
				Label:      label,
				Confidence: confidence,
			})
		}

	case PercentSentiment:
		for i, doc := range r.Documents {
			score := clampUnit(doc.Percentage / 100)
			if strings.EqualFold(doc.Polarity, "negative") && score > 0 {
				score = -score
			}
			label := LabelFromRemote(doc.Polarity, score)
			results = append(results, models.SentimentScore{
				Index:      i,
				Text:       doc.Content,
				Score:      score,
				Magnitude:  math.Abs(score),
				Label:      label,
				Confidence: analyzer.ConfidenceFor(score, label),
			})
		}
	}
	return analyzer.AggregateSentiment(results)
}

// LabelFromRemote trusts a recognizable remote label and otherwise derives
// one from the canonical score.
func LabelFromRemote(label string, score float64) models.SentimentLabel {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "positive", "pos":
		return models.SentimentPositive
	case "negative", "neg":
		return models.SentimentNegative
	case "neutral", "neu":
		return models.SentimentNeutral
	}
	return analyzer.LabelFor(score)
}

// SummaryResponse is one of the known summary service payloads:
// PlainSummary or NestedSummary.
type SummaryResponse interface {
	summaryShape() string
}

// PlainSummary is a flat payload.
//
//	{"summary": "...", "key_points": ["..."], "word_count": 42, "compression_ratio": 0.3}
type PlainSummary struct {
	Summary          string
	KeyPoints        []string
	WordCount        int
	CompressionRatio float64
}

// NestedSummary wraps the result and reports lengths, often as strings.
//
//	{"result": {"text": "...", "highlights": ["..."], "original_length": "1200", "summary_length": 300}}
type NestedSummary struct {
	Text           string
	Highlights     []string
	OriginalLength int
	SummaryLength  int
}

func (PlainSummary) summaryShape() string  { return "plain" }
func (NestedSummary) summaryShape() string { return "nested" }

// DecodeSummary discriminates body into one of the SummaryResponse shapes
func DecodeSummary(body []byte) (SummaryResponse, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON")
	}
	root := gjson.ParseBytes(body)

	switch {
	case root.Get("summary").Type == gjson.String:
		return PlainSummary{
			Summary:          root.Get("summary").String(),
			KeyPoints:        stringArray(root.Get("key_points")),
			WordCount:        cast.ToInt(root.Get("word_count").Value()),
			CompressionRatio: cast.ToFloat64(root.Get("compression_ratio").Value()),
		}, nil

	case root.Get("result.text").Type == gjson.String:
		result := root.Get("result")
		return NestedSummary{
			Text:           result.Get("text").String(),
			Highlights:     stringArray(result.Get("highlights")),
			OriginalLength: cast.ToInt(result.Get("original_length").Value()),
			SummaryLength:  cast.ToInt(result.Get("summary_length").Value()),
		}, nil
	}
	return nil, errUnknownShape
}

// NormalizeSummary maps any SummaryResponse onto models.Summary
func NormalizeSummary(resp SummaryResponse) models.Summary {
	summary := models.Summary{KeyPoints: []string{}, Source: models.SourceRemote}

	switch r := resp.(type) {
	case PlainSummary:
		summary.Summary = r.Summary
		summary.KeyPoints = append(summary.KeyPoints, r.KeyPoints...)
		summary.WordCount = r.WordCount
		summary.CompressionRatio = r.CompressionRatio

	case NestedSummary:
		summary.Summary = r.Text
		summary.KeyPoints = append(summary.KeyPoints, r.Highlights...)
		summary.OriginalLength = r.OriginalLength
		if r.OriginalLength > 0 {
			length := r.SummaryLength
			if length == 0 {
				length = len([]rune(r.Text))
			}
			summary.CompressionRatio = math.Round(float64(length)/float64(r.OriginalLength)*100) / 100
		}
	}

	if summary.Summary != "" {
		r := analyzer.ReadabilityOf(summary.Summary)
		summary.ReadabilityScore = r.FleschReading
		summary.SentenceCount = r.SentenceCount
		if summary.WordCount == 0 {
			summary.WordCount = r.WordCount
		}
		summary.AvgSentenceLength = r.AvgWordsPerSentence
	}
	return summary
}

func stringArray(v gjson.Result) []string {
	out := []string{}
	for _, item := range v.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clampUnit(v float64) float64 {
	return clampRange(v, -1, 1)
}

func clampRange(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
