package analyzer

import (
	"math"
	"strings"
	"unicode"

	"github.com/zombar/textinsight/internal/models"
	"github.com/zombar/textinsight/internal/textproc"
)

// syllableExceptions overrides words the vowel-group heuristic miscounts
var syllableExceptions = map[string]int{
	"anyone":     3,
	"area":       3,
	"being":      2,
	"business":   2,
	"create":     2,
	"created":    3,
	"different":  3,
	"doing":      2,
	"evening":    2,
	"every":      2,
	"everyone":   3,
	"everything": 3,
	"family":     3,
	"going":      2,
	"idea":       3,
	"naive":      2,
	"people":     2,
	"poem":       2,
	"queue":      1,
	"quiet":      2,
	"recipe":     3,
	"science":    2,
	"simile":     3,
	"something":  2,
	"sometimes":  2,
	"somewhere":  2,
	"whole":      1,
}

// CountSyllables estimates the syllables in word. Any word with at least
// one character counts as one syllable or more.
func CountSyllables(word string) int {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		return 0
	}
	letters := []rune(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return r
		}
		return -1
	}, word))
	if len(letters) == 0 {
		return 1
	}
	if n, ok := syllableExceptions[string(letters)]; ok {
		return n
	}
	if len(letters) <= 3 {
		return 1
	}

	count := 0
	prevVowel := false
	for i, r := range letters {
		vowel := isVowel(r) || (r == 'y' && i > 0)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}

	n := len(letters)
	last, secondLast, thirdLast := letters[n-1], letters[n-2], letters[n-3]
	switch {
	case last == 'e' && secondLast == 'l' && !isVowel(thirdLast):
		// consonant + "le" is voiced: ta-ble
	case last == 'e' && secondLast != 'e' && count > 1:
		count--
	case last == 'd' && secondLast == 'e' && thirdLast != 't' && thirdLast != 'd' && !isVowel(thirdLast) && count > 1:
		count--
	case last == 's' && secondLast == 'e' && !isVowel(thirdLast) && !strings.ContainsRune("sxzcgh", thirdLast) && count > 1:
		count--
	}

	if count < 1 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// ReadabilityScores computes every readability formula over words and
// sentences. Empty input yields a zero Readability.
func ReadabilityScores(words, sentences []string) models.Readability {
	if len(words) == 0 {
		return models.Readability{}
	}

	syllables, complexWords, chars := 0, 0, 0
	for _, word := range words {
		s := CountSyllables(word)
		syllables += s
		if s >= 3 {
			complexWords++
		}
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				chars++
			}
		}
	}

	wordCount := float64(max(1, len(words)))
	sentenceCount := float64(max(1, len(sentences)))
	wps := wordCount / sentenceCount
	spw := float64(syllables) / wordCount

	flesch := clamp(206.835-1.015*wps-84.6*spw, 0, 100)
	kincaid := 0.39*wps + 11.8*spw - 15.59
	fog := 0.4 * (wps + 100*float64(complexWords)/wordCount)
	l := float64(chars) / wordCount * 100
	s := sentenceCount / wordCount * 100
	coleman := 0.0588*l - 0.296*s - 15.8
	ari := 4.71*float64(chars)/wordCount + 0.5*wps - 21.43
	smog := 1.0430*math.Sqrt(float64(complexWords)*30/sentenceCount) + 3.1291

	return models.Readability{
		FleschReading:        round2(flesch),
		FleschKincaid:        round2(math.Max(0, kincaid)),
		GunningFog:           round2(math.Max(0, fog)),
		ColemanLiau:          round2(math.Max(0, coleman)),
		AutomatedReadability: round2(math.Max(0, ari)),
		SMOG:                 round2(math.Max(0, smog)),
		GradeLabel:           GradeLabel(flesch),
		WordCount:            len(words),
		SentenceCount:        len(sentences),
		SyllableCount:        syllables,
		ComplexWordCount:     complexWords,
		AvgWordsPerSentence:  round2(wps),
		AvgSyllablesPerWord:  round2(spw),
	}
}

// ReadabilityOf scores free text, keeping every word
func ReadabilityOf(text string) models.Readability {
	opts := textproc.RawOptions(textproc.DefaultOptions())
	opts.FileType = textproc.FileTypeText
	opts.IncludeNumbers = true
	result := textproc.Preprocess(text, opts)
	return ReadabilityScores(result.Words, result.Sentences)
}

// GradeLabel maps a Flesch reading ease score to a display label
func GradeLabel(score float64) string {
	switch {
	case score >= 90:
		return "Very Easy"
	case score >= 80:
		return "Easy"
	case score >= 70:
		return "Fairly Easy"
	case score >= 60:
		return "Standard"
	case score >= 50:
		return "Fairly Difficult"
	case score >= 30:
		return "Difficult"
	default:
		return "Very Difficult"
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
