package models

import (
	"time"

	"github.com/zombar/textinsight/internal/textproc"
)

// Analysis status values
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Analysis is a stored corpus analysis job and, once complete, its report
type Analysis struct {
	ID            string          `json:"id"`
	Status        string          `json:"status"`
	DocumentCount int             `json:"documentCount"`
	Request       AnalysisRequest `json:"request"`
	Report        *CorpusReport   `json:"report,omitempty"`
	Error         string          `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// Analyzer names accepted in AnalysisRequest.Analyzers
const (
	AnalyzerStats       = "stats"
	AnalyzerKeywords    = "keywords"
	AnalyzerReadability = "readability"
	AnalyzerSentiment   = "sentiment"
	AnalyzerNGrams      = "ngrams"
	AnalyzerPatterns    = "patterns"
	AnalyzerTopics      = "topics"
	AnalyzerSummary     = "summary"
)

// AllAnalyzers lists every analyzer in the order a corpus report runs them
var AllAnalyzers = []string{
	AnalyzerStats,
	AnalyzerKeywords,
	AnalyzerReadability,
	AnalyzerSentiment,
	AnalyzerNGrams,
	AnalyzerPatterns,
	AnalyzerTopics,
	AnalyzerSummary,
}

// AnalysisRequest selects analyzers and carries their options. An empty
// Analyzers list runs all of them.
type AnalysisRequest struct {
	Analyzers      []string         `json:"analyzers,omitempty"`
	Options        textproc.Options `json:"options"`
	TopicCount     int              `json:"topicCount,omitempty"`
	Seed           int64            `json:"seed,omitempty"`
	SummarySize    int              `json:"summarySize,omitempty"`
	DocumentOrder  bool             `json:"documentOrder,omitempty"`
	CustomPositive []string         `json:"customPositive,omitempty"`
	CustomNegative []string         `json:"customNegative,omitempty"`
}

// Keyword is a ranked term with its raw count and relative weight
type Keyword struct {
	Term      string  `json:"term"`
	Frequency int     `json:"frequency"`
	Density   float64 `json:"density"` // percent of all tokens, 0-100
	Score     float64 `json:"score"`   // fraction of all tokens, 0-1
}

// NGram is a repeated phrase of n tokens
type NGram struct {
	Phrase string `json:"phrase"`
	Count  int    `json:"count"`
}

// Entity is a capitalized phrase detected in the text
type Entity struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Patterns groups everything the regex miner found
type Patterns struct {
	Emails   []string `json:"emails"`
	URLs     []string `json:"urls"`
	Phones   []string `json:"phones"`
	Dates    []string `json:"dates"`
	Entities []Entity `json:"entities"`
}

// Readability holds every readability formula for one corpus
type Readability struct {
	FleschReading        float64 `json:"fleschReading"`
	FleschKincaid        float64 `json:"fleschKincaid"`
	GunningFog           float64 `json:"gunningFog"`
	ColemanLiau          float64 `json:"colemanLiau"`
	AutomatedReadability float64 `json:"automatedReadability"`
	SMOG                 float64 `json:"smog"`
	GradeLabel           string  `json:"gradeLabel"`

	WordCount           int     `json:"wordCount"`
	SentenceCount       int     `json:"sentenceCount"`
	SyllableCount       int     `json:"syllableCount"`
	ComplexWordCount    int     `json:"complexWordCount"`
	AvgWordsPerSentence float64 `json:"avgWordsPerSentence"`
	AvgSyllablesPerWord float64 `json:"avgSyllablesPerWord"`
}

// SentimentLabel is the tri-class verdict for a piece of text
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "Positive"
	SentimentNegative SentimentLabel = "Negative"
	SentimentNeutral  SentimentLabel = "Neutral"
)

// SentimentBreakdown is the word-level sentiment of one token stream
type SentimentBreakdown struct {
	Score         float64  `json:"score"` // -1 to 1
	Magnitude     float64  `json:"magnitude"`
	PositiveWords []string `json:"positiveWords"`
	NegativeWords []string `json:"negativeWords"`
	NeutralWords  int      `json:"neutralWords"`
}

// SentimentScore is the verdict for one document
type SentimentScore struct {
	Index      int            `json:"index"`
	Text       string         `json:"text"`
	Score      float64        `json:"score"`
	Magnitude  float64        `json:"magnitude"`
	Label      SentimentLabel `json:"label"`
	Confidence float64        `json:"confidence"`
}

// SentimentStats aggregates per-document scores
type SentimentStats struct {
	Results       []SentimentScore `json:"results"`
	PositiveCount int              `json:"positiveCount"`
	NegativeCount int              `json:"negativeCount"`
	NeutralCount  int              `json:"neutralCount"`
	AverageScore  float64          `json:"averageScore"`
	MostPositive  *SentimentScore  `json:"mostPositive,omitempty"`
	MostNegative  *SentimentScore  `json:"mostNegative,omitempty"`
}

// TopicKeyword is a vocabulary term weighted by a topic centroid
type TopicKeyword struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// Topic is one cluster of documents found by topic modeling
type Topic struct {
	ID                 int            `json:"id"`
	Label              string         `json:"label"`
	Keywords           []TopicKeyword `json:"keywords"`
	Coherence          float64        `json:"coherence"`
	Score              float64        `json:"score"`
	DocumentIndices    []int          `json:"documentIndices"`
	RepresentativeDocs []int          `json:"representativeDocs"`
}

// Summary sources
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
	SourceOllama = "ollama"
)

// Summary is an extractive or remote summary of a corpus
type Summary struct {
	Summary           string   `json:"summary"`
	KeyPoints         []string `json:"keyPoints"`
	ReadabilityScore  float64  `json:"readabilityScore"`
	WordCount         int      `json:"wordCount"`
	SentenceCount     int      `json:"sentenceCount"`
	AvgSentenceLength float64  `json:"avgSentenceLength"`
	OriginalLength    int      `json:"originalLength,omitempty"`
	CompressionRatio  float64  `json:"compressionRatio,omitempty"`
	Source            string   `json:"source"`
}

// CorpusStats are the basic counts of a corpus
type CorpusStats struct {
	DocumentCount     int     `json:"documentCount"`
	CharacterCount    int     `json:"characterCount"`
	WordCount         int     `json:"wordCount"`
	SentenceCount     int     `json:"sentenceCount"`
	ParagraphCount    int     `json:"paragraphCount"`
	UniqueWords       int     `json:"uniqueWords"`
	AverageWordLength float64 `json:"averageWordLength"`
	QuestionCount     int     `json:"questionCount"`
	ExclamationCount  int     `json:"exclamationCount"`
}

// CorpusReport is the union of every analyzer's output for one corpus.
// Errors maps analyzer name to the failure that emptied its section.
type CorpusReport struct {
	Stats       *CorpusStats      `json:"stats,omitempty"`
	Keywords    []Keyword         `json:"keywords,omitempty"`
	KeyTerms    []string          `json:"keyTerms,omitempty"`
	Readability *Readability      `json:"readability,omitempty"`
	Sentiment   *SentimentStats   `json:"sentiment,omitempty"`
	Bigrams     []NGram           `json:"bigrams,omitempty"`
	Trigrams    []NGram           `json:"trigrams,omitempty"`
	Patterns    *Patterns         `json:"patterns,omitempty"`
	Topics      []Topic           `json:"topics,omitempty"`
	Summary     *Summary          `json:"summary,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
	Duration    time.Duration     `json:"durationNs"`
	GeneratedAt time.Time         `json:"generatedAt"`
}
