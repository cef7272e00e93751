// Package textproc turns raw documents into the tokens, sentences and
// paragraphs every analyzer consumes.
package textproc

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/unicode/norm"
)

// abbreviationMark stands in for the period of a protected abbreviation while
// sentences are split.
const abbreviationMark = "\uE000"

var (
	abbreviationPattern = regexp.MustCompile(`(?i)\b(?:e\.g|i\.e|a\.m|p\.m|u\.s|dr|mr|mrs|ms|prof|sr|jr|st|vs|etc|inc|ltd|co|corp|fig|dept|approx)\.`)
	sentenceBoundary    = regexp.MustCompile(`[.!?]+`)
	paragraphBoundary   = regexp.MustCompile(`\n\s*\n`)
	nonWordPattern      = regexp.MustCompile(`[^\p{L}\p{N}\s']`)
	whitespacePattern   = regexp.MustCompile(`\s+`)
	apostropheReplacer  = strings.NewReplacer("’", "'", "‘", "'", "`", "'")
)

// Result is the preprocessed form of one document
type Result struct {
	Words      []string `json:"words"`
	Sentences  []string `json:"sentences"`
	Paragraphs []string `json:"paragraphs"`
	// Terminated holds Sentences with their closing punctuation
	Terminated []Sentence `json:"-"`
}

// Tokenizer applies one set of Options to any number of documents. It holds
// the resolved stop-word set so callers processing a corpus build it once.
type Tokenizer struct {
	opts      Options
	stopWords StopWordSet
	custom    StopWordSet
}

// NewTokenizer resolves opts into a reusable Tokenizer
func NewTokenizer(opts Options) *Tokenizer {
	opts = opts.normalized()
	custom := make(StopWordSet, len(opts.CustomStopWords))
	custom.Add(opts.CustomStopWords...)
	return &Tokenizer{
		opts:      opts,
		stopWords: StopWords(opts.StopWordLevel, opts.CustomStopWords...),
		custom:    custom,
	}
}

// Options returns the normalized options the tokenizer was built with
func (t *Tokenizer) Options() Options {
	return t.opts
}

// StopWords returns the resolved stop-word set, custom words included
func (t *Tokenizer) StopWords() StopWordSet {
	return t.stopWords
}

// Preprocess cleans raw according to its file type and splits it
func (t *Tokenizer) Preprocess(raw string) Result {
	cleaned := Clean(norm.NFC.String(raw), t.opts.FileType)
	if cleaned == "" {
		return Result{Words: []string{}, Sentences: []string{}, Paragraphs: []string{}, Terminated: []Sentence{}}
	}
	terminated := SplitTerminated(cleaned)
	sentences := make([]string, len(terminated))
	for i, s := range terminated {
		sentences[i] = s.Text
	}
	return Result{
		Words:      t.Words(cleaned),
		Sentences:  sentences,
		Paragraphs: SplitParagraphs(cleaned),
		Terminated: terminated,
	}
}

// Words extracts the filtered token stream from already cleaned text
func (t *Tokenizer) Words(text string) []string {
	words := []string{}
	if !t.opts.CaseSensitive {
		text = strings.ToLower(text)
	}
	text = apostropheReplacer.Replace(text)
	text = nonWordPattern.ReplaceAllString(text, " ")

	for _, field := range strings.Fields(text) {
		word := strings.Trim(field, "'")
		if word == "" || utf8.RuneCountInString(word) < t.opts.MinWordLength {
			continue
		}
		if t.custom.Contains(word) {
			continue
		}
		if t.opts.ExcludeStopWords && t.stopWords.Contains(word) {
			continue
		}
		if !t.opts.IncludeNumbers && isNumeric(word) {
			continue
		}
		if t.opts.Stem {
			word = english.Stem(word, false)
		}
		words = append(words, word)
	}
	return words
}

// Preprocess is a one-shot Tokenizer call
func Preprocess(raw string, opts Options) Result {
	return NewTokenizer(opts).Preprocess(raw)
}

// Words is a one-shot Tokenizer.Words call on raw text
func Words(raw string, opts Options) []string {
	return NewTokenizer(opts).Words(norm.NFC.String(raw))
}

// SplitSentences splits text on terminal punctuation while keeping known
// abbreviations such as "Dr." and "e.g." inside their sentence.
func SplitSentences(text string) []string {
	terminated := SplitTerminated(text)
	sentences := make([]string, len(terminated))
	for i, s := range terminated {
		sentences[i] = s.Text
	}
	return sentences
}

// Sentence is one sentence with the punctuation that ended it. Terminator is
// empty for trailing text with no closing punctuation.
type Sentence struct {
	Text       string
	Terminator string
}

// String returns the sentence with its terminator
func (s Sentence) String() string {
	return s.Text + s.Terminator
}

// SplitTerminated is SplitSentences keeping each sentence's terminator
func SplitTerminated(text string) []Sentence {
	sentences := []Sentence{}
	if strings.TrimSpace(text) == "" {
		return sentences
	}

	protected := abbreviationPattern.ReplaceAllStringFunc(text, func(m string) string {
		return strings.ReplaceAll(m, ".", abbreviationMark)
	})
	start := 0
	emit := func(part, terminator string) {
		part = strings.TrimSpace(whitespacePattern.ReplaceAllString(part, " "))
		if part == "" {
			return
		}
		sentences = append(sentences, Sentence{
			Text:       strings.ReplaceAll(part, abbreviationMark, "."),
			Terminator: terminator,
		})
	}
	for _, loc := range sentenceBoundary.FindAllStringIndex(protected, -1) {
		emit(protected[start:loc[0]], protected[loc[0]:loc[1]])
		start = loc[1]
	}
	emit(protected[start:], "")
	return sentences
}

// SplitParagraphs splits text on blank lines
func SplitParagraphs(text string) []string {
	paragraphs := []string{}
	for _, part := range paragraphBoundary.Split(text, -1) {
		if part = strings.TrimSpace(part); part != "" {
			paragraphs = append(paragraphs, part)
		}
	}
	return paragraphs
}

func isNumeric(word string) bool {
	for _, r := range word {
		if !unicode.IsDigit(r) && !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
