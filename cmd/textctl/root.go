package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zombar/textinsight/internal/analyzer"
	"github.com/zombar/textinsight/internal/config"
	"github.com/zombar/textinsight/internal/topics"
	"github.com/zombar/textinsight/pkg/logging"
)

var version = "dev"

// app holds what every subcommand shares
type app struct {
	lexiconFile string
	logLevel    string
	noColor     bool

	logger   *slog.Logger
	closer   io.Closer
	analyzer *analyzer.Analyzer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "textctl",
		Short:         "Analyze text corpora: keywords, sentiment, readability, topics and summaries",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closer != nil {
				a.closer.Close()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.lexiconFile, "lexicon", "", "YAML sentiment lexicon merged onto the built-in one (env: LEXICON_FILE)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error (env: LOG_LEVEL)")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(newAnalyzeCmd(a), newWatchCmd(a), newShellCmd(a))
	return root
}

// setup reads the environment and builds the logger and analyzer. Logs go to
// stderr so stdout stays clean for reports.
func (a *app) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.lexiconFile == "" {
		a.lexiconFile = cfg.LexiconFile
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if cfg.Log.File == "" {
		cfg.Log.Format = "text"
	}
	if a.noColor {
		setNoColor(true)
	}

	a.logger, a.closer = logging.NewWithWriter(cfg.Log, os.Stderr)

	topicCfg := topics.DefaultConfig()
	if cfg.TopicWorkers > 0 {
		topicCfg.Workers = cfg.TopicWorkers
	}
	topicCfg.Logger = a.logger

	opts := []analyzer.Option{
		analyzer.WithTopicConfig(topicCfg),
		analyzer.WithLogger(a.logger),
	}
	if a.lexiconFile != "" {
		lexicon, err := analyzer.LoadLexiconFile(a.lexiconFile)
		if err != nil {
			return fmt.Errorf("failed to load lexicon %s: %w", a.lexiconFile, err)
		}
		opts = append(opts, analyzer.WithLexicon(lexicon))
	}
	a.analyzer = analyzer.New(opts...)
	return nil
}
