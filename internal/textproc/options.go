package textproc

import "strings"

// FileType identifies the markup a raw document is written in
type FileType string

const (
	FileTypeText     FileType = "text"
	FileTypeCSV      FileType = "csv"
	FileTypeJSON     FileType = "json"
	FileTypeHTML     FileType = "html"
	FileTypeMarkdown FileType = "markdown"
	FileTypeAuto     FileType = "auto"
)

// ParseFileType maps a user supplied name onto a FileType, defaulting to auto
func ParseFileType(name string) FileType {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text", "txt", "plain":
		return FileTypeText
	case "csv", "tsv":
		return FileTypeCSV
	case "json":
		return FileTypeJSON
	case "html", "htm":
		return FileTypeHTML
	case "markdown", "md":
		return FileTypeMarkdown
	default:
		return FileTypeAuto
	}
}

// StopWordLevel selects how aggressive stop-word filtering is
type StopWordLevel string

const (
	StopWordsBasic         StopWordLevel = "basic"
	StopWordsExtended      StopWordLevel = "extended"
	StopWordsComprehensive StopWordLevel = "comprehensive"
)

// Options controls tokenization. JSON names follow the dashboard option shape.
type Options struct {
	MinWordLength    int           `json:"minWordLength"`
	MinWordFrequency int           `json:"minWordFrequency"`
	MaxResults       int           `json:"maxResults"`
	ExcludeStopWords bool          `json:"excludeStopWords"`
	StopWordLevel    StopWordLevel `json:"stopWordLevel,omitempty"`
	CaseSensitive    bool          `json:"caseSensitive"`
	IncludeNumbers   bool          `json:"includeNumbers"`
	CustomStopWords  []string      `json:"customStopWords,omitempty"`
	FileType         FileType      `json:"fileType,omitempty"`
	Stem             bool          `json:"stem,omitempty"`
}

// DefaultOptions returns the options used when a caller supplies none
func DefaultOptions() Options {
	return Options{
		MinWordLength:    3,
		MinWordFrequency: 1,
		MaxResults:       50,
		ExcludeStopWords: true,
		StopWordLevel:    StopWordsBasic,
		FileType:         FileTypeAuto,
	}
}

// RawOptions returns options that keep every token: no stop-word removal and
// single-character words allowed. Sentiment and n-gram mining need the
// unfiltered stream.
func RawOptions(base Options) Options {
	base.MinWordLength = 1
	base.ExcludeStopWords = false
	base.Stem = false
	return base
}

func (o Options) normalized() Options {
	if o.MinWordLength < 1 {
		o.MinWordLength = 1
	}
	if o.MinWordFrequency < 1 {
		o.MinWordFrequency = 1
	}
	if o.StopWordLevel == "" {
		o.StopWordLevel = StopWordsBasic
	}
	if o.FileType == "" {
		o.FileType = FileTypeAuto
	}
	return o
}
