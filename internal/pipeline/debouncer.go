// Package pipeline coalesces bursts of change notifications into single
// corpus analysis runs.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zombar/textinsight/internal/analyzer"
	"github.com/zombar/textinsight/internal/models"
)

// DefaultDelay is how long the input must stay unchanged before a run starts
const DefaultDelay = 300 * time.Millisecond

// RunFunc analyzes one snapshot of the corpus. It must return promptly once
// ctx is cancelled.
type RunFunc func(ctx context.Context, docs []string) models.CorpusReport

// Result is the outcome of the latest settled run
type Result struct {
	Generation uint64
	Documents  int
	Report     models.CorpusReport
	Duration   time.Duration
}

// Debouncer runs a RunFunc once per burst of Notify calls, always with the
// most recent input. A Notify that arrives while a run is in flight cancels
// that run; its result is never delivered.
type Debouncer struct {
	run      RunFunc
	onResult func(Result)
	delay    time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	generation uint64
	pending    []string
	timer      *time.Timer
	cancel     context.CancelFunc
	closed     bool
	wg         sync.WaitGroup
}

// Option configures a Debouncer
type Option func(*Debouncer)

// WithDelay overrides DefaultDelay
func WithDelay(d time.Duration) Option {
	return func(db *Debouncer) {
		if d > 0 {
			db.delay = d
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(db *Debouncer) { db.logger = logger }
}

// New creates a Debouncer that hands each delivered result to onResult
func New(run RunFunc, onResult func(Result), opts ...Option) *Debouncer {
	d := &Debouncer{
		run:      run,
		onResult: onResult,
		delay:    DefaultDelay,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ForAnalyzer adapts an Analyzer and a fixed request into a RunFunc
func ForAnalyzer(a *analyzer.Analyzer, req models.AnalysisRequest) RunFunc {
	return func(ctx context.Context, docs []string) models.CorpusReport {
		return a.AnalyzeCorpus(ctx, docs, req)
	}
}

// Notify records docs as the latest input and restarts the delay
func (d *Debouncer) Notify(docs []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	d.generation++
	d.pending = docs
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}

	gen := d.generation
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.closed || gen != d.generation {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	docs := d.pending
	d.wg.Add(1)
	d.mu.Unlock()

	defer d.wg.Done()
	defer cancel()

	start := time.Now()
	report := d.run(ctx, docs)
	elapsed := time.Since(start)

	d.mu.Lock()
	latest := gen == d.generation && !d.closed && ctx.Err() == nil
	if latest {
		d.cancel = nil
	}
	d.mu.Unlock()

	if !latest {
		d.logger.Debug("discarding superseded run", "generation", gen)
		return
	}
	d.logger.Debug("pipeline run complete", "generation", gen, "documents", len(docs), "duration_ms", elapsed.Milliseconds())
	if d.onResult != nil {
		d.onResult(Result{Generation: gen, Documents: len(docs), Report: report, Duration: elapsed})
	}
}

// Close stops any pending timer, cancels an in-flight run and waits for it
// to return. Later Notify calls are ignored.
func (d *Debouncer) Close() {
	d.mu.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()
	d.wg.Wait()
}
