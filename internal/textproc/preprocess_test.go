package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocessEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t\n"} {
		result := Preprocess(input, DefaultOptions())
		require.NotNil(t, result.Words)
		require.NotNil(t, result.Sentences)
		require.NotNil(t, result.Paragraphs)
		assert.Empty(t, result.Words)
		assert.Empty(t, result.Sentences)
		assert.Empty(t, result.Paragraphs)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "abbreviation does not split",
			input:    "Dr. Smith said hello. The weather is nice.",
			expected: []string{"Dr. Smith said hello", "The weather is nice"},
		},
		{
			name:     "dotted abbreviations",
			input:    "I met Mr. and Mrs. Jones at 10 a.m. today. It was fun!",
			expected: []string{"I met Mr. and Mrs. Jones at 10 a.m. today", "It was fun"},
		},
		{
			name:     "mixed terminators",
			input:    "Really?! Yes. Absolutely...",
			expected: []string{"Really", "Yes", "Absolutely"},
		},
		{
			name:     "no terminator",
			input:    "a sentence without an ending",
			expected: []string{"a sentence without an ending"},
		},
		{
			name:     "empty",
			input:    "",
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitSentences(tt.input))
		})
	}
}

func TestSplitTerminated(t *testing.T) {
	got := SplitTerminated("Dr. Smith called. Prices soared at the market! Really?! No ending")
	assert.Equal(t, []Sentence{
		{Text: "Dr. Smith called", Terminator: "."},
		{Text: "Prices soared at the market", Terminator: "!"},
		{Text: "Really", Terminator: "?!"},
		{Text: "No ending"},
	}, got)
	assert.Equal(t, "Prices soared at the market!", got[1].String())
	assert.Empty(t, SplitTerminated("   "))
}

func TestSplitParagraphs(t *testing.T) {
	paragraphs := SplitParagraphs("First para.\n\nSecond para.\n \nThird.")
	assert.Equal(t, []string{"First para.", "Second para.", "Third."}, paragraphs)
}

func TestWords(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		opts     Options
		expected []string
	}{
		{
			name:     "stop words and short words",
			input:    "The cat sat on the mat",
			opts:     Options{MinWordLength: 2, ExcludeStopWords: true},
			expected: []string{"cat", "sat", "mat"},
		},
		{
			name:     "numbers dropped by default",
			input:    "In 2024 we sold 300 units",
			opts:     Options{MinWordLength: 2},
			expected: []string{"in", "we", "sold", "units"},
		},
		{
			name:     "numbers kept on request",
			input:    "In 2024 we sold 300 units",
			opts:     Options{MinWordLength: 2, IncludeNumbers: true},
			expected: []string{"in", "2024", "we", "sold", "300", "units"},
		},
		{
			name:     "custom stop words always apply",
			input:    "the widget broke the gadget",
			opts:     Options{MinWordLength: 1, CustomStopWords: []string{"Widget"}},
			expected: []string{"the", "broke", "the", "gadget"},
		},
		{
			name:     "case sensitive",
			input:    "Apple apple",
			opts:     Options{MinWordLength: 1, CaseSensitive: true},
			expected: []string{"Apple", "apple"},
		},
		{
			name:     "inner apostrophes survive",
			input:    "don't say 'quoted' words, ok?",
			opts:     Options{MinWordLength: 1},
			expected: []string{"don't", "say", "quoted", "words", "ok"},
		},
		{
			name:     "stemming",
			input:    "connections connected",
			opts:     Options{MinWordLength: 1, Stem: true},
			expected: []string{"connect", "connect"},
		},
		{
			name:     "unicode letters",
			input:    "Café naïve résumé",
			opts:     Options{MinWordLength: 1},
			expected: []string{"café", "naïve", "résumé"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Words(tt.input, tt.opts))
		})
	}
}

func TestStopWordLayers(t *testing.T) {
	basic := StopWords(StopWordsBasic)
	extended := StopWords(StopWordsExtended)
	comprehensive := StopWords(StopWordsComprehensive)

	for word := range basic {
		assert.True(t, extended.Contains(word), "extended should contain %q", word)
	}
	for word := range extended {
		assert.True(t, comprehensive.Contains(word), "comprehensive should contain %q", word)
	}

	assert.True(t, basic.Contains("The"))
	assert.False(t, basic.Contains("about"))
	assert.True(t, extended.Contains("about"))
	assert.False(t, extended.Contains("however"))
	assert.True(t, comprehensive.Contains("however"))
	assert.False(t, comprehensive.Contains("cat"))

	custom := StopWords(StopWordsBasic, "Dashboard")
	assert.True(t, custom.Contains("dashboard"))
}

func TestPreprocessWithFileType(t *testing.T) {
	opts := DefaultOptions()
	opts.FileType = FileTypeHTML

	result := Preprocess("<p>Revenue grew strongly.</p><p>Margins improved.</p><script>var tracking = 1;</script>", opts)
	assert.Equal(t, []string{"revenue", "grew", "strongly", "margins", "improved"}, result.Words)
	assert.Len(t, result.Sentences, 2)
	assert.Len(t, result.Paragraphs, 2)
}

func TestParseFileType(t *testing.T) {
	assert.Equal(t, FileTypeMarkdown, ParseFileType("MD"))
	assert.Equal(t, FileTypeCSV, ParseFileType("tsv"))
	assert.Equal(t, FileTypeHTML, ParseFileType("htm"))
	assert.Equal(t, FileTypeAuto, ParseFileType("docx"))
}
