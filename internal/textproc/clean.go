package textproc

import (
	"bytes"
	"encoding/csv"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

var (
	htmlTagPattern      = regexp.MustCompile(`(?s)<[^>]*>`)
	htmlBlockPattern    = regexp.MustCompile(`(?is)<(script|style|noscript|template)\b.*?</(script|style|noscript|template)>`)
	htmlDetectPattern   = regexp.MustCompile(`(?i)<(!doctype|html|head|body|div|p|span|a|ul|ol|li|table|h[1-6]|br|script|style)\b[^>]*>`)
	markdownPattern     = regexp.MustCompile(`(?m)^(#{1,6}\s|\s*[-*+]\s|\s*\d+\.\s|>\s|` + "```" + `)|\*\*[^*]+\*\*|\[[^\]]+\]\([^)]+\)`)
	jsonStructPattern   = regexp.MustCompile(`[{}\[\]",:]`)
	jsonLiteralPattern  = regexp.MustCompile(`\b(true|false|null)\b`)
	csvDelimiterPattern = regexp.MustCompile(`[,;\t|]`)
	horizontalSpace     = regexp.MustCompile(`[ \t\f\v\r]+`)
	blankLines          = regexp.MustCompile(`\n\s*\n(\s*\n)*`)
)

const htmlBlockSelector = "p, div, section, article, header, footer, aside, main, nav, li, ul, ol, " +
	"table, tr, td, th, h1, h2, h3, h4, h5, h6, blockquote, pre, dd, dt, figcaption"

// Clean strips markup of the given type and returns plain prose. FileTypeAuto
// runs DetectFileType first.
func Clean(raw string, fileType FileType) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	if fileType == FileTypeAuto || fileType == "" {
		fileType = DetectFileType(raw)
	}

	var cleaned string
	switch fileType {
	case FileTypeHTML:
		cleaned = cleanHTML(raw)
	case FileTypeMarkdown:
		cleaned = cleanMarkdown(raw)
	case FileTypeJSON:
		cleaned = cleanJSON(raw)
	case FileTypeCSV:
		cleaned = cleanCSV(raw)
	default:
		cleaned = raw
	}
	return tidyWhitespace(cleaned)
}

// DetectFileType guesses the markup of raw. Detection order is JSON, HTML,
// Markdown, CSV and finally plain text.
func DetectFileType(raw string) FileType {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return FileTypeText
	}
	if (trimmed[0] == '{' || trimmed[0] == '[') && gjson.Valid(trimmed) {
		return FileTypeJSON
	}
	if htmlDetectPattern.MatchString(trimmed) {
		return FileTypeHTML
	}
	if markdownPattern.MatchString(trimmed) {
		return FileTypeMarkdown
	}
	if looksLikeCSV(trimmed) {
		return FileTypeCSV
	}
	return FileTypeText
}

// looksLikeCSV requires at least two lines that all carry the same non-zero
// number of one delimiter.
func looksLikeCSV(text string) bool {
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return false
	}
	delim := sniffDelimiter(lines[0])
	if delim == 0 {
		return false
	}
	want := strings.Count(lines[0], string(delim))
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.Count(line, string(delim)) != want {
			return false
		}
	}
	return true
}

func sniffDelimiter(line string) rune {
	best, bestCount := rune(0), 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if c := strings.Count(line, string(d)); c > bestCount {
			best, bestCount = d, c
		}
	}
	return best
}

func cleanHTML(raw string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return cleanHTMLFallback(raw)
	}
	doc.Find("script, style, noscript, template").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find(htmlBlockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n\n")
	})
	return doc.Text()
}

func cleanHTMLFallback(raw string) string {
	text := htmlBlockPattern.ReplaceAllString(raw, " ")
	text = htmlTagPattern.ReplaceAllString(text, " ")
	return html.UnescapeString(text)
}

func cleanMarkdown(raw string) string {
	src := []byte(raw)
	root := goldmark.DefaultParser().Parse(gmtext.NewReader(src))

	var b bytes.Buffer
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock, ast.KindRawHTML:
			return ast.WalkSkipChildren, nil
		}
		if !entering {
			if n.Type() == ast.TypeBlock {
				b.WriteString("\n\n")
			}
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(src))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		case *ast.AutoLink:
			b.Write(v.Label(src))
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return raw
	}
	return b.String()
}

func cleanJSON(raw string) string {
	if !gjson.Valid(raw) {
		text := jsonStructPattern.ReplaceAllString(raw, " ")
		return jsonLiteralPattern.ReplaceAllString(text, " ")
	}

	var parts []string
	var walk func(r gjson.Result)
	walk = func(r gjson.Result) {
		switch {
		case r.IsObject():
			r.ForEach(func(key, value gjson.Result) bool {
				parts = append(parts, key.Str)
				walk(value)
				return true
			})
		case r.IsArray():
			r.ForEach(func(_, value gjson.Result) bool {
				walk(value)
				return true
			})
		case r.Type == gjson.String:
			parts = append(parts, r.Str)
		case r.Type == gjson.Number:
			parts = append(parts, r.Raw)
		}
	}
	walk(gjson.Parse(raw))
	return strings.Join(parts, "\n")
}

func cleanCSV(raw string) string {
	firstLine := raw
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		firstLine = raw[:i]
	}
	delim := sniffDelimiter(firstLine)
	if delim == 0 {
		delim = ','
	}

	r := csv.NewReader(strings.NewReader(raw))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var lines []string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return csvDelimiterPattern.ReplaceAllString(raw, " ")
		}
		lines = append(lines, strings.Join(record, " "))
	}
	return strings.Join(lines, "\n")
}

// tidyWhitespace collapses runs of horizontal space and normalizes blank
// lines to a single paragraph break.
func tidyWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
