package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/zombar/textinsight/internal/models"
	"github.com/zombar/textinsight/internal/textproc"
	"github.com/zombar/textinsight/internal/topics"
)

// SummaryBackend produces a summary outside the process, such as a remote
// summarization service or an LLM.
type SummaryBackend interface {
	Summarize(ctx context.Context, texts []string, sentences int) (models.Summary, error)
}

// Analyzer runs any subset of the text analyzers over a corpus
type Analyzer struct {
	lexicon        *Lexicon
	topicConfig    topics.Config
	summaryBackend SummaryBackend
	logger         *slog.Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithLexicon replaces the sentiment lexicon. nil keeps the built-in one.
func WithLexicon(l *Lexicon) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.lexicon = l
		}
	}
}

// WithTopicConfig sets the base topic modeler settings. Seed and
// preprocessing options still come from each request.
func WithTopicConfig(cfg topics.Config) Option {
	return func(a *Analyzer) { a.topicConfig = cfg }
}

// WithSummaryBackend tries backend before the local summarizer
func WithSummaryBackend(backend SummaryBackend) Option {
	return func(a *Analyzer) { a.summaryBackend = backend }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = logger }
}

// New creates a new Analyzer
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		lexicon:     DefaultLexicon(),
		topicConfig: topics.DefaultConfig(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Lexicon returns the analyzer's sentiment lexicon
func (a *Analyzer) Lexicon() *Lexicon {
	return a.lexicon
}

// corpus is the preprocessed form of a request's documents, shared by the
// analyzers of one AnalyzeCorpus call.
type corpus struct {
	docs       []string
	cleaned    []string
	words      [][]string
	rawWords   [][]string
	sentences  []string
	paragraphs int
	tokenizer  *textproc.Tokenizer
}

func (c *corpus) allWords() []string {
	return slices.Concat(c.words...)
}

func (c *corpus) allRawWords() []string {
	return slices.Concat(c.rawWords...)
}

func newCorpus(docs []string, opts textproc.Options) *corpus {
	tokenizer := textproc.NewTokenizer(opts)
	rawOpts := textproc.RawOptions(tokenizer.Options())
	rawOpts.IncludeNumbers = true
	rawTokenizer := textproc.NewTokenizer(rawOpts)

	c := &corpus{
		docs:      docs,
		cleaned:   make([]string, len(docs)),
		words:     make([][]string, len(docs)),
		rawWords:  make([][]string, len(docs)),
		sentences: []string{},
		tokenizer: tokenizer,
	}
	for i, doc := range docs {
		c.cleaned[i] = textproc.Clean(doc, tokenizer.Options().FileType)
		result := tokenizer.Preprocess(doc)
		c.words[i] = result.Words
		c.rawWords[i] = rawTokenizer.Words(c.cleaned[i])
		c.sentences = append(c.sentences, result.Sentences...)
		c.paragraphs += len(result.Paragraphs)
	}
	return c
}

// requested resolves the analyzer names of req. Unknown names are returned
// separately.
func requested(req models.AnalysisRequest) (map[string]bool, []string) {
	names := req.Analyzers
	if len(names) == 0 {
		names = models.AllAnalyzers
	}
	selected := make(map[string]bool, len(names))
	var unknown []string
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if slices.Contains(models.AllAnalyzers, name) {
			selected[name] = true
		} else if name != "" {
			unknown = append(unknown, name)
		}
	}
	return selected, unknown
}

// AnalyzeCorpus runs the analyzers req selects. Every analyzer runs inside
// its own recover boundary: a failure is logged, recorded in the report's
// Errors and leaves that section empty.
func (a *Analyzer) AnalyzeCorpus(ctx context.Context, docs []string, req models.AnalysisRequest) models.CorpusReport {
	start := time.Now()
	report := models.CorpusReport{Errors: map[string]string{}}

	selected, unknown := requested(req)
	for _, name := range unknown {
		report.Errors[name] = "unknown analyzer"
	}

	var c *corpus
	if err := a.guard("preprocess", func() error {
		c = newCorpus(docs, req.Options)
		return nil
	}); err != nil {
		report.Errors["preprocess"] = err.Error()
		return a.finish(report, start)
	}

	for _, name := range models.AllAnalyzers {
		if !selected[name] {
			continue
		}
		if err := ctx.Err(); err != nil {
			report.Errors[name] = err.Error()
			continue
		}
		if err := a.guard(name, func() error { return a.runAnalyzer(ctx, name, c, req, &report) }); err != nil {
			report.Errors[name] = err.Error()
		}
	}

	a.logger.Info("corpus analysis complete",
		"documents", len(docs),
		"analyzers", len(selected),
		"errors", len(report.Errors),
		"duration_ms", time.Since(start).Milliseconds())
	return a.finish(report, start)
}

func (a *Analyzer) finish(report models.CorpusReport, start time.Time) models.CorpusReport {
	if len(report.Errors) == 0 {
		report.Errors = nil
	}
	report.Duration = time.Since(start)
	report.GeneratedAt = time.Now().UTC()
	return report
}

// guard converts a panic in fn into an error
func (a *Analyzer) guard(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("analyzer panicked", "analyzer", name, "panic", fmt.Sprint(r))
			err = fmt.Errorf("%s analyzer failed: %v", name, r)
		}
	}()
	if err = fn(); err != nil {
		a.logger.Warn("analyzer failed", "analyzer", name, "error", err)
	}
	return err
}

func (a *Analyzer) runAnalyzer(ctx context.Context, name string, c *corpus, req models.AnalysisRequest, report *models.CorpusReport) error {
	opts := c.tokenizer.Options()

	switch name {
	case models.AnalyzerStats:
		stats := corpusStats(c)
		report.Stats = &stats

	case models.AnalyzerKeywords:
		words := c.allWords()
		report.Keywords = ExtractKeywords(words, opts.MaxResults, opts.MinWordFrequency)
		report.KeyTerms = ExtractKeyTerms(words, 15)

	case models.AnalyzerReadability:
		r := ReadabilityScores(c.allRawWords(), c.sentences)
		report.Readability = &r

	case models.AnalyzerSentiment:
		lex := a.lexicon
		if len(req.CustomPositive) > 0 || len(req.CustomNegative) > 0 {
			lex = lex.Merge(req.CustomPositive, req.CustomNegative)
		}
		stats := AnalyzeDocuments(c.cleaned, lex)
		report.Sentiment = &stats

	case models.AnalyzerNGrams:
		stopWords := textproc.StopWords(opts.StopWordLevel, opts.CustomStopWords...)
		report.Bigrams = GenerateCorpusNGrams(c.rawWords, 2, stopWords)
		report.Trigrams = GenerateCorpusNGrams(c.rawWords, 3, stopWords)

	case models.AnalyzerPatterns:
		p := DetectPatterns(strings.Join(c.cleaned, "\n\n"))
		report.Patterns = &p

	case models.AnalyzerTopics:
		cfg := a.topicConfig
		cfg.Preprocess = opts
		cfg.Logger = a.logger
		if req.Seed != 0 {
			cfg.Seed = req.Seed
		}
		report.Topics = topics.New(cfg).Model(ctx, c.docs, req.TopicCount)

	case models.AnalyzerSummary:
		summary := a.summarize(ctx, c, req)
		report.Summary = &summary

	default:
		return fmt.Errorf("unknown analyzer %q", name)
	}
	return nil
}

func (a *Analyzer) summarize(ctx context.Context, c *corpus, req models.AnalysisRequest) models.Summary {
	if a.summaryBackend != nil && len(c.docs) > 0 {
		summary, err := a.summaryBackend.Summarize(ctx, c.cleaned, req.SummarySize)
		if err == nil {
			return summary
		}
		a.logger.Warn("summary backend failed, using local summarizer", "error", err)
	}
	return SummarizeWithOptions(c.docs, SummaryOptions{
		SentenceCount: req.SummarySize,
		DocumentOrder: req.DocumentOrder,
		Options:       c.tokenizer.Options(),
	})
}

func corpusStats(c *corpus) models.CorpusStats {
	stats := models.CorpusStats{
		DocumentCount:  len(c.docs),
		SentenceCount:  len(c.sentences),
		ParagraphCount: c.paragraphs,
	}

	unique := make(map[string]struct{})
	letters := 0
	for i, doc := range c.docs {
		stats.CharacterCount += utf8.RuneCountInString(doc)
		stats.QuestionCount += strings.Count(doc, "?")
		stats.ExclamationCount += strings.Count(doc, "!")
		for _, w := range c.rawWords[i] {
			stats.WordCount++
			letters += utf8.RuneCountInString(w)
			unique[strings.ToLower(w)] = struct{}{}
		}
	}
	stats.UniqueWords = len(unique)
	if stats.WordCount > 0 {
		stats.AverageWordLength = round2(float64(letters) / float64(stats.WordCount))
	}
	return stats
}
