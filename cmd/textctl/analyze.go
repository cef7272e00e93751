package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zombar/textinsight/internal/models"
	"github.com/zombar/textinsight/internal/textproc"
)

// requestFlags are the analysis settings shared by analyze and watch
type requestFlags struct {
	fileType    string
	analyzers   string
	topics      int
	seed        int64
	summarySize int
	stem        bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.fileType, "type", "auto", "Input format: auto, text, csv, json, html or markdown")
	cmd.Flags().StringVar(&f.analyzers, "analyzers", "", "Comma separated analyzers to run (default all): "+strings.Join(models.AllAnalyzers, ", "))
	cmd.Flags().IntVar(&f.topics, "topics", 0, "Number of topics, 0 picks one from the corpus size")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Topic clustering seed, 0 is random")
	cmd.Flags().IntVar(&f.summarySize, "summary-size", 0, "Sentences in the summary, 0 uses the default")
	cmd.Flags().BoolVar(&f.stem, "stem", false, "Stem words before counting")
}

func (f *requestFlags) request() (models.AnalysisRequest, error) {
	analyzers, err := parseAnalyzers(f.analyzers)
	if err != nil {
		return models.AnalysisRequest{}, err
	}
	opts := textproc.DefaultOptions()
	opts.FileType = textproc.ParseFileType(f.fileType)
	opts.Stem = f.stem
	return models.AnalysisRequest{
		Analyzers:   analyzers,
		Options:     opts,
		TopicCount:  f.topics,
		Seed:        f.seed,
		SummarySize: f.summarySize,
	}, nil
}

// parseAnalyzers splits a comma separated list, rejecting unknown names
func parseAnalyzers(list string) ([]string, error) {
	var analyzers []string
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if !slices.Contains(models.AllAnalyzers, name) {
			return nil, fmt.Errorf("unknown analyzer %q, expected one of %s", name, strings.Join(models.AllAnalyzers, ", "))
		}
		if !slices.Contains(analyzers, name) {
			analyzers = append(analyzers, name)
		}
	}
	return analyzers, nil
}

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		flags   requestFlags
		asJSON  bool
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Analyze files, or stdin when no files are given",
		Example: `  textctl analyze notes/*.md --analyzers keywords,sentiment
  cat review.txt | textctl analyze --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			docs, err := readDocuments(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				return fmt.Errorf("no text to analyze")
			}

			a.logger.Debug("analyzing corpus", "documents", len(docs), "analyzers", req.Analyzers)
			report := a.analyzer.AnalyzeCorpus(cmd.Context(), docs, req)

			if outPath != "" {
				if err := exportReport(outPath, report); err != nil {
					return err
				}
				a.logger.Info("report exported", "path", outPath)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Also write the JSON report to this file")
	return cmd
}

// readDocuments reads each path as one document, or stdin as a single
// document when paths is empty. Blank documents are dropped.
func readDocuments(paths []string, stdin io.Reader) ([]string, error) {
	if len(paths) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		if strings.TrimSpace(string(data)) == "" {
			return nil, nil
		}
		return []string{string(data)}, nil
	}

	docs := make([]string, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		if strings.TrimSpace(string(data)) != "" {
			docs = append(docs, string(data))
		}
	}
	return docs, nil
}

// readDir reads every regular, non-hidden file directly in dir, sorted by
// name
func readDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	if len(paths) == 0 {
		return nil, nil
	}
	sort.Strings(paths)
	return readDocuments(paths, nil)
}
