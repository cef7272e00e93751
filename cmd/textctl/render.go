package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/zombar/textinsight/internal/models"
)

var (
	headingColor  = color.New(color.FgCyan, color.Bold)
	labelColor    = color.New(color.FgWhite, color.Bold)
	positiveColor = color.New(color.FgGreen)
	negativeColor = color.New(color.FgRed)
	neutralColor  = color.New(color.FgYellow)
	errorColor    = color.New(color.FgRed, color.Bold)
	dimColor      = color.New(color.Faint)
)

func setNoColor(v bool) {
	color.NoColor = v
}

// sentimentColor picks the color of a sentiment label
func sentimentColor(label models.SentimentLabel) *color.Color {
	switch label {
	case models.SentimentPositive:
		return positiveColor
	case models.SentimentNegative:
		return negativeColor
	default:
		return neutralColor
	}
}

func heading(w io.Writer, title string) {
	headingColor.Fprintf(w, "\n== %s ==\n", title)
}

// printReport writes every populated section of report
func printReport(w io.Writer, report models.CorpusReport) {
	if report.Stats != nil {
		printStats(w, report.Stats)
	}
	if len(report.Keywords) > 0 {
		printKeywords(w, report.Keywords, report.KeyTerms)
	}
	if report.Readability != nil {
		printReadability(w, report.Readability)
	}
	if report.Sentiment != nil {
		printSentiment(w, report.Sentiment)
	}
	if len(report.Bigrams) > 0 || len(report.Trigrams) > 0 {
		printNGrams(w, report.Bigrams, report.Trigrams)
	}
	if report.Patterns != nil {
		printPatterns(w, report.Patterns)
	}
	if report.Topics != nil {
		printTopics(w, report.Topics)
	}
	if report.Summary != nil {
		printSummary(w, report.Summary)
	}
	if len(report.Errors) > 0 {
		printErrors(w, report.Errors)
	}
	dimColor.Fprintf(w, "\nanalyzed in %s\n", report.Duration)
}

func printStats(w io.Writer, s *models.CorpusStats) {
	heading(w, "Statistics")
	rows := [][2]string{
		{"Documents", fmt.Sprint(s.DocumentCount)},
		{"Characters", fmt.Sprint(s.CharacterCount)},
		{"Words", fmt.Sprint(s.WordCount)},
		{"Unique words", fmt.Sprint(s.UniqueWords)},
		{"Sentences", fmt.Sprint(s.SentenceCount)},
		{"Paragraphs", fmt.Sprint(s.ParagraphCount)},
		{"Avg word length", fmt.Sprintf("%.2f", s.AverageWordLength)},
		{"Questions", fmt.Sprint(s.QuestionCount)},
		{"Exclamations", fmt.Sprint(s.ExclamationCount)},
	}
	for _, row := range rows {
		labelColor.Fprintf(w, "  %-16s", row[0])
		fmt.Fprintf(w, " %s\n", row[1])
	}
}

func printKeywords(w io.Writer, keywords []models.Keyword, keyTerms []string) {
	heading(w, "Keywords")
	for i, kw := range keywords {
		if i == 15 {
			dimColor.Fprintf(w, "  ... %d more\n", len(keywords)-i)
			break
		}
		fmt.Fprintf(w, "  %2d. %-20s %4d  %5.2f%%\n", i+1, kw.Term, kw.Frequency, kw.Density)
	}
	if len(keyTerms) > 0 {
		labelColor.Fprint(w, "  Key terms: ")
		fmt.Fprintln(w, strings.Join(keyTerms, ", "))
	}
}

func printReadability(w io.Writer, r *models.Readability) {
	heading(w, "Readability")
	labelColor.Fprintf(w, "  %-22s", "Grade")
	fmt.Fprintf(w, " %s\n", r.GradeLabel)
	rows := []struct {
		name  string
		score float64
	}{
		{"Flesch reading ease", r.FleschReading},
		{"Flesch-Kincaid grade", r.FleschKincaid},
		{"Gunning fog", r.GunningFog},
		{"Coleman-Liau", r.ColemanLiau},
		{"ARI", r.AutomatedReadability},
		{"SMOG", r.SMOG},
	}
	for _, row := range rows {
		labelColor.Fprintf(w, "  %-22s", row.name)
		fmt.Fprintf(w, " %.2f\n", row.score)
	}
}

func printSentiment(w io.Writer, s *models.SentimentStats) {
	heading(w, "Sentiment")
	fmt.Fprintf(w, "  average %+.3f  ", s.AverageScore)
	positiveColor.Fprintf(w, "%d positive  ", s.PositiveCount)
	negativeColor.Fprintf(w, "%d negative  ", s.NegativeCount)
	neutralColor.Fprintf(w, "%d neutral\n", s.NeutralCount)
	for _, r := range s.Results {
		fmt.Fprintf(w, "  [%d] ", r.Index)
		sentimentColor(r.Label).Fprintf(w, "%-8s", r.Label)
		fmt.Fprintf(w, " %+.3f  %s\n", r.Score, truncate(r.Text, 60))
	}
}

func printNGrams(w io.Writer, bigrams, trigrams []models.NGram) {
	heading(w, "Phrases")
	for _, group := range []struct {
		name   string
		ngrams []models.NGram
	}{{"Bigrams", bigrams}, {"Trigrams", trigrams}} {
		if len(group.ngrams) == 0 {
			continue
		}
		labelColor.Fprintf(w, "  %s\n", group.name)
		for i, ng := range group.ngrams {
			if i == 10 {
				break
			}
			fmt.Fprintf(w, "    %-30s %d\n", ng.Phrase, ng.Count)
		}
	}
}

func printPatterns(w io.Writer, p *models.Patterns) {
	heading(w, "Patterns")
	for _, group := range []struct {
		name   string
		values []string
	}{
		{"Emails", p.Emails},
		{"URLs", p.URLs},
		{"Phones", p.Phones},
		{"Dates", p.Dates},
	} {
		if len(group.values) == 0 {
			continue
		}
		labelColor.Fprintf(w, "  %-8s", group.name)
		fmt.Fprintf(w, " %s\n", strings.Join(group.values, ", "))
	}
	if len(p.Entities) > 0 {
		labelColor.Fprintf(w, "  %-8s", "Entities")
		names := make([]string, 0, len(p.Entities))
		for _, e := range p.Entities {
			names = append(names, fmt.Sprintf("%s (%s, %d)", e.Text, e.Category, e.Count))
		}
		fmt.Fprintf(w, " %s\n", strings.Join(names, ", "))
	}
}

func printTopics(w io.Writer, topics []models.Topic) {
	heading(w, "Topics")
	if len(topics) == 0 {
		dimColor.Fprintln(w, "  not enough vocabulary to find topics")
		return
	}
	for _, t := range topics {
		labelColor.Fprintf(w, "  %s", t.Label)
		fmt.Fprintf(w, "  coherence %.3f  documents %v\n", t.Coherence, t.DocumentIndices)
		terms := make([]string, len(t.Keywords))
		for i, kw := range t.Keywords {
			terms[i] = kw.Term
		}
		dimColor.Fprintf(w, "    %s\n", strings.Join(terms, ", "))
	}
}

func printSummary(w io.Writer, s *models.Summary) {
	heading(w, "Summary")
	fmt.Fprintf(w, "  %s\n", s.Summary)
	for _, point := range s.KeyPoints {
		fmt.Fprintf(w, "  - %s\n", point)
	}
	dimColor.Fprintf(w, "  source %s, %d sentences\n", s.Source, s.SentenceCount)
}

func printErrors(w io.Writer, errs map[string]string) {
	heading(w, "Errors")
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		errorColor.Fprintf(w, "  %s: ", name)
		fmt.Fprintln(w, errs[name])
	}
}

// writeJSON writes v as indented JSON
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exportReport writes report to path as the same JSON the export endpoint
// serves
func exportReport(path string, report models.CorpusReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writeJSON(f, report); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
