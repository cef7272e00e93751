package analyzer

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/zombar/textinsight/internal/models"
	"github.com/zombar/textinsight/internal/textproc"
)

const (
	defaultSummarySentences = 3
	summaryKeywordCount     = 10
	summaryKeyPointCount    = 5
	leadFraction            = 0.3
	leadBonus               = 2.0
)

// SummaryOptions tunes the extractive summarizer
type SummaryOptions struct {
	// SentenceCount is how many sentences to keep. <= 0 keeps 3.
	SentenceCount int
	// DocumentOrder joins the chosen sentences in their original order
	// instead of by score.
	DocumentOrder bool
	Options       textproc.Options
}

type scoredSentence struct {
	sentence textproc.Sentence
	position int
	lead     bool
	score    float64
}

// Summarize picks the keyCount most salient sentences of the corpus
func Summarize(documents []string, keyCount int) models.Summary {
	return SummarizeWithOptions(documents, SummaryOptions{
		SentenceCount: keyCount,
		Options:       textproc.DefaultOptions(),
	})
}

// SummarizeWithOptions scores each sentence by top-keyword hits, a bonus for
// sitting in the first 30% of its own document, and a bonus for moderate
// length.
func SummarizeWithOptions(documents []string, opts SummaryOptions) models.Summary {
	summary := models.Summary{KeyPoints: []string{}, Source: models.SourceLocal}

	tokenizer := textproc.NewTokenizer(opts.Options)
	rawOpts := textproc.RawOptions(tokenizer.Options())
	rawOpts.IncludeNumbers = true
	rawTokenizer := textproc.NewTokenizer(rawOpts)

	var (
		sentences, allWords, rawWords []string
		scored                        []scoredSentence
	)
	originalLength := 0
	for _, doc := range documents {
		originalLength += utf8.RuneCountInString(doc)
		result := tokenizer.Preprocess(doc)
		sentences = append(sentences, result.Sentences...)
		allWords = append(allWords, result.Words...)
		leadCutoff := leadFraction * float64(len(result.Terminated))
		for i, s := range result.Terminated {
			rawWords = append(rawWords, rawTokenizer.Words(s.Text)...)
			scored = append(scored, scoredSentence{
				sentence: s,
				position: len(scored),
				lead:     float64(i) < leadCutoff,
			})
		}
	}
	if len(sentences) == 0 {
		return summary
	}

	keywords := ExtractKeywords(allWords, summaryKeywordCount, 1)
	top := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		top[k.Term] = true
	}

	for i := range scored {
		text := scored[i].sentence.Text
		score := 0.0
		for _, w := range tokenizer.Words(text) {
			if top[w] {
				score++
			}
		}
		if scored[i].lead {
			score += leadBonus
		}
		if n := len(rawTokenizer.Words(text)); n >= 5 && n <= 40 {
			score += min(1, float64(n)/20)
		}
		scored[i].score = score
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	count := opts.SentenceCount
	if count <= 0 {
		count = defaultSummarySentences
	}
	if count > len(scored) {
		count = len(scored)
	}
	chosen := scored[:count]
	if opts.DocumentOrder {
		sort.Slice(chosen, func(i, j int) bool { return chosen[i].position < chosen[j].position })
	}

	parts := make([]string, len(chosen))
	for i, s := range chosen {
		if s.sentence.Terminator == "" {
			parts[i] = s.sentence.Text + "."
		} else {
			parts[i] = s.sentence.String()
		}
	}
	summary.Summary = strings.Join(parts, " ")

	for i := 0; i < len(keywords) && i < summaryKeyPointCount; i++ {
		summary.KeyPoints = append(summary.KeyPoints,
			fmt.Sprintf("%s: mentioned %d times", keywords[i].Term, keywords[i].Frequency))
	}

	readability := ReadabilityScores(rawWords, sentences)
	summary.ReadabilityScore = readability.FleschReading
	summary.WordCount = len(rawWords)
	summary.SentenceCount = len(sentences)
	summary.AvgSentenceLength = round2(float64(len(rawWords)) / float64(len(sentences)))
	summary.OriginalLength = originalLength
	if originalLength > 0 {
		summary.CompressionRatio = round2(float64(utf8.RuneCountInString(summary.Summary)) / float64(originalLength))
	}
	return summary
}
