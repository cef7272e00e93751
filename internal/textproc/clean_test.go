package textproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFileType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected FileType
	}{
		{"json object", `{"title": "Report", "score": 4}`, FileTypeJSON},
		{"json array", `["one", "two"]`, FileTypeJSON},
		{"html", "<div><p>Hello there</p></div>", FileTypeHTML},
		{"markdown heading", "# Title\n\nSome text below.", FileTypeMarkdown},
		{"markdown link", "Read the [guide](https://example.com) first.", FileTypeMarkdown},
		{"csv", "name,score\nalice,3\nbob,5", FileTypeCSV},
		{"plain text", "Just a few plain words here.", FileTypeText},
		{"broken json is text", `{"title": "Report"`, FileTypeText},
		{"empty", "", FileTypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectFileType(tt.input))
		})
	}
}

func TestCleanHTML(t *testing.T) {
	raw := `<html><head><style>body { color: red; }</style></head>
<body><h1>Quarterly Review</h1><p>Sales &amp; marketing <b>improved</b>.</p>
<script>var secret = "hidden";</script><noscript>enable js</noscript></body></html>`

	cleaned := Clean(raw, FileTypeHTML)
	assert.Contains(t, cleaned, "Quarterly Review")
	assert.Contains(t, cleaned, "Sales & marketing improved.")
	assert.NotContains(t, cleaned, "secret")
	assert.NotContains(t, cleaned, "color")
	assert.NotContains(t, cleaned, "enable js")
	assert.NotContains(t, cleaned, "<")
}

func TestCleanHTMLFallback(t *testing.T) {
	cleaned := cleanHTMLFallback(`<style>p{}</style><p>Fish &amp; chips</p>`)
	assert.Contains(t, cleaned, "Fish & chips")
	assert.NotContains(t, cleaned, "p{}")
}

func TestCleanMarkdown(t *testing.T) {
	raw := "# Heading One\n\nSome **bold** text with a [link](http://example.com/page).\n\n" +
		"- first item\n- second item\n\n> quoted line\n\n```go\nfmt.Println(\"code\")\n```\n"

	cleaned := Clean(raw, FileTypeMarkdown)
	assert.Contains(t, cleaned, "Heading One")
	assert.Contains(t, cleaned, "Some bold text with a link.")
	assert.Contains(t, cleaned, "first item")
	assert.Contains(t, cleaned, "quoted line")
	assert.NotContains(t, cleaned, "**")
	assert.NotContains(t, cleaned, "#")
	assert.NotContains(t, cleaned, "example.com")
	assert.NotContains(t, cleaned, "Println")
}

func TestCleanJSON(t *testing.T) {
	raw := `{"title": "Quarterly report", "tags": ["finance", "growth"], "active": true, "owner": null, "count": 42}`

	cleaned := Clean(raw, FileTypeJSON)
	assert.Contains(t, cleaned, "title")
	assert.Contains(t, cleaned, "Quarterly report")
	assert.Contains(t, cleaned, "finance")
	assert.Contains(t, cleaned, "42")
	assert.NotContains(t, cleaned, "true")
	assert.NotContains(t, cleaned, "null")
	assert.NotContains(t, cleaned, "{")
}

func TestCleanInvalidJSON(t *testing.T) {
	cleaned := Clean(`{"note": "half open", "ok": true`, FileTypeJSON)
	assert.Equal(t, "note half open ok", cleaned)
}

func TestCleanCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"comma", "name,comment\nalice,great product", "name comment\nalice great product"},
		{"quoted cell", "id,comment\n1,\"slow, late shipping\"", "id comment\n1 slow, late shipping"},
		{"semicolon", "a;b;c\nd;e;f", "a b c\nd e f"},
		{"tab", "a\tb\nc\td", "a b\nc d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Clean(tt.input, FileTypeCSV))
		})
	}
}

func TestCleanPlainTextTidiesWhitespace(t *testing.T) {
	cleaned := Clean("  one   two\t three\n\n\n\nfour  ", FileTypeText)
	assert.Equal(t, "one two three\n\nfour", cleaned)
}
