package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/c-bata/go-prompt"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zombar/textinsight/internal/analyzer"
	"github.com/zombar/textinsight/internal/models"
	"github.com/zombar/textinsight/internal/textproc"
)

var shellCommands = []prompt.Suggest{
	{Text: "add", Description: "Add the rest of the line as a document"},
	{Text: "load", Description: "Load files as documents"},
	{Text: "list", Description: "List loaded documents"},
	{Text: "clear", Description: "Remove all documents"},
	{Text: "keywords", Description: "Top keywords of the corpus"},
	{Text: "sentiment", Description: "Sentiment of every document"},
	{Text: "topics", Description: "Cluster documents into topics [count]"},
	{Text: "summary", Description: "Extractive summary [sentences]"},
	{Text: "readability", Description: "Readability scores"},
	{Text: "help", Description: "Show this help"},
	{Text: "exit", Description: "Leave the shell"},
}

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Build a corpus interactively and analyze it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := &shell{analyzer: a.analyzer, out: cmd.OutOrStdout(), ctx: cmd.Context()}

			color.New(color.FgCyan, color.Bold).Fprintln(s.out, "textinsight shell")
			s.printHelp()

			p := prompt.New(
				func(line string) {
					if !s.execute(line) {
						os.Exit(0)
					}
				},
				completer,
				prompt.OptionPrefix("textinsight >> "),
				prompt.OptionTitle("textinsight"),
			)
			p.Run()
			return nil
		},
	}
}

func completer(d prompt.Document) []prompt.Suggest {
	if strings.Contains(d.TextBeforeCursor(), " ") {
		return nil
	}
	return prompt.FilterHasPrefix(shellCommands, d.GetWordBeforeCursor(), true)
}

// shell keeps the corpus between commands
type shell struct {
	analyzer *analyzer.Analyzer
	out      io.Writer
	ctx      context.Context
	docs     []string
}

// execute runs one line and reports whether the shell should keep going
func (s *shell) execute(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "add":
		s.add(rest)
	case "load":
		s.load(strings.Fields(rest))
	case "list":
		s.list()
	case "clear":
		s.docs = nil
		fmt.Fprintln(s.out, "Corpus cleared")
	case "keywords":
		if report, ok := s.run(models.AnalysisRequest{Analyzers: []string{models.AnalyzerKeywords}}); ok {
			printKeywords(s.out, report.Keywords, report.KeyTerms)
		}
	case "sentiment":
		if report, ok := s.run(models.AnalysisRequest{Analyzers: []string{models.AnalyzerSentiment}}); ok {
			printSentiment(s.out, report.Sentiment)
		}
	case "topics":
		count, ok := optionalInt(s.out, rest)
		if !ok {
			return true
		}
		if report, ok := s.run(models.AnalysisRequest{Analyzers: []string{models.AnalyzerTopics}, TopicCount: count}); ok {
			printTopics(s.out, report.Topics)
		}
	case "summary":
		size, ok := optionalInt(s.out, rest)
		if !ok {
			return true
		}
		if report, ok := s.run(models.AnalysisRequest{Analyzers: []string{models.AnalyzerSummary}, SummarySize: size}); ok {
			printSummary(s.out, report.Summary)
		}
	case "readability":
		if report, ok := s.run(models.AnalysisRequest{Analyzers: []string{models.AnalyzerReadability}}); ok {
			printReadability(s.out, report.Readability)
		}
	case "help":
		s.printHelp()
	case "exit", "quit":
		fmt.Fprintln(s.out, "Goodbye!")
		return false
	default:
		errorColor.Fprintf(s.out, "Unknown command: %s\n", cmd)
	}
	return true
}

func (s *shell) add(text string) {
	if text == "" {
		fmt.Fprintln(s.out, "Usage: add <text>")
		return
	}
	s.docs = append(s.docs, text)
	fmt.Fprintf(s.out, "Added document %d\n", len(s.docs))
}

func (s *shell) load(paths []string) {
	if len(paths) == 0 {
		fmt.Fprintln(s.out, "Usage: load <file> [file...]")
		return
	}
	docs, err := readDocuments(paths, nil)
	if err != nil {
		errorColor.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	s.docs = append(s.docs, docs...)
	fmt.Fprintf(s.out, "Loaded %d documents, %d in corpus\n", len(docs), len(s.docs))
}

func (s *shell) list() {
	if len(s.docs) == 0 {
		fmt.Fprintln(s.out, "Corpus is empty")
		return
	}
	for i, doc := range s.docs {
		fmt.Fprintf(s.out, "  [%d] %s\n", i, truncate(doc, 70))
	}
}

// run analyzes the corpus with default options, printing any analyzer error
func (s *shell) run(req models.AnalysisRequest) (models.CorpusReport, bool) {
	if len(s.docs) == 0 {
		fmt.Fprintln(s.out, "Corpus is empty, add or load documents first")
		return models.CorpusReport{}, false
	}
	req.Options = textproc.DefaultOptions()
	report := s.analyzer.AnalyzeCorpus(s.ctx, s.docs, req)
	if len(report.Errors) > 0 {
		printErrors(s.out, report.Errors)
		return report, false
	}
	return report, true
}

func optionalInt(w io.Writer, arg string) (int, bool) {
	if arg == "" {
		return 0, true
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 {
		errorColor.Fprintf(w, "Expected a non-negative number, got %q\n", arg)
		return 0, false
	}
	return n, true
}

func (s *shell) printHelp() {
	fmt.Fprintln(s.out, "Commands:")
	for _, c := range shellCommands {
		fmt.Fprintf(s.out, "  %-12s - %s\n", c.Text, c.Description)
	}
}
