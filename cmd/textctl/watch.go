package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/zombar/textinsight/internal/pipeline"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		flags requestFlags
		delay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-analyze a directory of documents whenever its files change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := flags.request()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			d := pipeline.New(pipeline.ForAnalyzer(a.analyzer, req), func(res pipeline.Result) {
				printRun(out, res)
			}, pipeline.WithDelay(delay), pipeline.WithLogger(a.logger))
			defer d.Close()

			color.New(color.FgCyan).Fprintf(out, "Watching %s, press Ctrl+C to stop\n", args[0])
			return watchDir(ctx, args[0], d, a.logger)
		},
	}

	flags.register(cmd)
	cmd.Flags().DurationVar(&delay, "delay", pipeline.DefaultDelay, "How long files must stay unchanged before re-analyzing")
	return cmd
}

// notifier is the part of the debouncer watchDir feeds
type notifier interface {
	Notify(docs []string)
}

// watchDir sends the directory's documents to n once at start and again
// after every change to a non-hidden file, until ctx is done
func watchDir(ctx context.Context, dir string, n notifier, logger *slog.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	reload := func() {
		docs, err := readDir(dir)
		if err != nil {
			logger.Warn("failed to read directory", "dir", dir, "error", err)
			return
		}
		if len(docs) == 0 {
			logger.Info("no documents to analyze", "dir", dir)
			return
		}
		n.Notify(docs)
	}
	reload()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			logger.Debug("file changed", "file", event.Name, "op", event.Op.String())
			reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", "error", err)
		}
	}
}

// relevant reports whether event changes the corpus
func relevant(event fsnotify.Event) bool {
	if strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}

// printRun prints a compact line per settled run followed by the report
func printRun(w io.Writer, res pipeline.Result) {
	headingColor.Fprintf(w, "\n#%d ", res.Generation)
	fmt.Fprintf(w, "%d documents analyzed in %s at %s\n",
		res.Documents, res.Duration.Round(time.Millisecond), time.Now().Format(time.TimeOnly))
	printReport(w, res.Report)
}
