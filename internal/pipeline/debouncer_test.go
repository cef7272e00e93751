package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zombar/textinsight/internal/analyzer"
	"github.com/zombar/textinsight/internal/models"
)

type collector struct {
	mu      sync.Mutex
	results []Result
}

func (c *collector) add(r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
}

func (c *collector) snapshot() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Result(nil), c.results...)
}

func TestDebouncerCoalescesBurst(t *testing.T) {
	var runs atomic.Int32
	var seen []string
	var seenMu sync.Mutex
	run := func(ctx context.Context, docs []string) models.CorpusReport {
		runs.Add(1)
		seenMu.Lock()
		seen = docs
		seenMu.Unlock()
		return models.CorpusReport{}
	}

	c := &collector{}
	d := New(run, c.add, WithDelay(30*time.Millisecond))
	defer d.Close()

	d.Notify([]string{"one"})
	d.Notify([]string{"one", "two"})
	d.Notify([]string{"one", "two", "three"})

	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, int32(1), runs.Load())
	results := c.snapshot()
	require.Len(t, results, 1)
	assert.Equal(t, uint64(3), results[0].Generation)
	assert.Equal(t, 3, results[0].Documents)
	seenMu.Lock()
	assert.Equal(t, []string{"one", "two", "three"}, seen)
	seenMu.Unlock()
}

func TestDebouncerCancelsSupersededRun(t *testing.T) {
	started := make(chan int, 2)
	cancelled := make(chan struct{})
	run := func(ctx context.Context, docs []string) models.CorpusReport {
		started <- len(docs)
		if len(docs) == 1 {
			<-ctx.Done()
			close(cancelled)
		}
		return models.CorpusReport{}
	}

	c := &collector{}
	d := New(run, c.add, WithDelay(10*time.Millisecond))
	defer d.Close()

	d.Notify([]string{"first"})
	select {
	case n := <-started:
		require.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("first run never started")
	}

	d.Notify([]string{"second", "input"})
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("superseded run was not cancelled")
	}

	require.Eventually(t, func() bool { return len(c.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	results := c.snapshot()
	assert.Equal(t, 2, results[0].Documents)
	assert.Equal(t, uint64(2), results[0].Generation)
}

func TestDebouncerCloseStopsPendingRun(t *testing.T) {
	var runs atomic.Int32
	run := func(ctx context.Context, docs []string) models.CorpusReport {
		runs.Add(1)
		return models.CorpusReport{}
	}

	d := New(run, nil, WithDelay(20*time.Millisecond))
	d.Notify([]string{"doc"})
	d.Close()
	d.Notify([]string{"ignored"})

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestForAnalyzer(t *testing.T) {
	run := ForAnalyzer(analyzer.New(), models.AnalysisRequest{Analyzers: []string{models.AnalyzerStats}})
	report := run(context.Background(), []string{"one short document"})
	require.NotNil(t, report.Stats)
	assert.Equal(t, 1, report.Stats.DocumentCount)
}

func TestWithDelayIgnoresNonPositive(t *testing.T) {
	d := New(nil, nil, WithDelay(0))
	assert.Equal(t, DefaultDelay, d.delay)
}
