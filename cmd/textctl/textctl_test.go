package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zombar/textinsight/internal/analyzer"
	"github.com/zombar/textinsight/internal/models"
)

func init() {
	setNoColor(true)
}

func TestParseAnalyzers(t *testing.T) {
	tests := []struct {
		input   string
		want    []string
		wantErr bool
	}{
		{"", nil, false},
		{"keywords", []string{"keywords"}, false},
		{" Keywords , sentiment,keywords ", []string{"keywords", "sentiment"}, false},
		{"keywords,,topics", []string{"keywords", "topics"}, false},
		{"keywords,bogus", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseAnalyzers(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadDocuments(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	blank := filepath.Join(dir, "blank.txt")
	require.NoError(t, os.WriteFile(a, []byte("first document"), 0o644))
	require.NoError(t, os.WriteFile(blank, []byte("  \n"), 0o644))

	docs, err := readDocuments([]string{a, blank}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"first document"}, docs)

	docs, err = readDocuments(nil, strings.NewReader("from stdin"))
	require.NoError(t, err)
	assert.Equal(t, []string{"from stdin"}, docs)

	docs, err = readDocuments(nil, strings.NewReader("   "))
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = readDocuments([]string{filepath.Join(dir, "missing.txt")}, nil)
	assert.Error(t, err)
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("second"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("first"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("skipped"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	docs, err := readDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, docs)

	empty, err := readDir(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRelevant(t *testing.T) {
	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write", fsnotify.Event{Name: "/d/a.txt", Op: fsnotify.Write}, true},
		{"create", fsnotify.Event{Name: "/d/a.txt", Op: fsnotify.Create}, true},
		{"remove", fsnotify.Event{Name: "/d/a.txt", Op: fsnotify.Remove}, true},
		{"chmod", fsnotify.Event{Name: "/d/a.txt", Op: fsnotify.Chmod}, false},
		{"hidden", fsnotify.Event{Name: "/d/.a.txt.swp", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, relevant(tt.event))
		})
	}
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recordingNotifier) Notify(docs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, docs)
}

func (r *recordingNotifier) last() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

func TestWatchDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("first"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	n := &recordingNotifier{}
	done := make(chan error, 1)
	go func() { done <- watchDir(ctx, dir, n, slog.Default()) }()

	assert.Eventually(t, func() bool { return len(n.last()) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("second"), 0o644))
	assert.Eventually(t, func() bool { return len(n.last()) == 2 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watchDir did not return after cancel")
	}
}

func TestWatchDirMissing(t *testing.T) {
	err := watchDir(context.Background(), filepath.Join(t.TempDir(), "missing"), &recordingNotifier{}, slog.Default())
	assert.Error(t, err)
}

func TestPrintReport(t *testing.T) {
	a := analyzer.New()
	report := a.AnalyzeCorpus(context.Background(), []string{
		"Solar power is wonderful. Contact info@example.com today!",
		"Wind power is terrible when the weather is calm.",
	}, models.AnalysisRequest{})
	report.Errors = map[string]string{"topics": "boom"}

	var buf bytes.Buffer
	printReport(&buf, report)
	out := buf.String()

	for _, want := range []string{
		"== Statistics ==", "== Keywords ==", "== Readability ==", "== Sentiment ==",
		"== Patterns ==", "info@example.com", "== Summary ==", "== Errors ==", "topics: boom",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "\x1b[", "colors should be disabled")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short text", truncate("short \n  text", 20))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestShellExecute(t *testing.T) {
	var out bytes.Buffer
	s := &shell{analyzer: analyzer.New(), out: &out, ctx: context.Background()}

	steps := []struct {
		line     string
		contains string
		cont     bool
	}{
		{"keywords", "Corpus is empty", true},
		{"add Solar panels convert sunlight into clean electricity.", "Added document 1", true},
		{"add Solar farms produce clean electricity for cities.", "Added document 2", true},
		{"list", "[1] Solar farms", true},
		{"keywords", "solar", true},
		{"sentiment", "== Sentiment ==", true},
		{"readability", "Flesch reading ease", true},
		{"summary 1", "== Summary ==", true},
		{"topics x", "Expected a non-negative number", true},
		{"bogus", "Unknown command: bogus", true},
		{"clear", "Corpus cleared", true},
		{"list", "Corpus is empty", true},
		{"exit", "Goodbye!", false},
	}

	for _, step := range steps {
		out.Reset()
		cont := s.execute(step.line)
		assert.Equal(t, step.cont, cont, step.line)
		assert.Contains(t, out.String(), step.contains, step.line)
	}
}

func TestShellLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("loaded text"), 0o644))

	var out bytes.Buffer
	s := &shell{analyzer: analyzer.New(), out: &out, ctx: context.Background()}

	assert.True(t, s.execute("load "+path))
	assert.Equal(t, []string{"loaded text"}, s.docs)
	assert.Contains(t, out.String(), "Loaded 1 documents")

	out.Reset()
	s.execute("load " + filepath.Join(dir, "missing.txt"))
	assert.Contains(t, out.String(), "Error:")
}

func TestAnalyzeCommand(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	outPath := filepath.Join(t.TempDir(), "report.json")

	var stdout bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"analyze", "--json", "--analyzers", "keywords,stats", "--out", outPath})
	cmd.SetIn(strings.NewReader("the cat sat on the mat and the cat slept"))
	cmd.SetOut(&stdout)

	require.NoError(t, cmd.Execute())

	var report models.CorpusReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &report))
	require.NotEmpty(t, report.Keywords)
	assert.Equal(t, "cat", report.Keywords[0].Term)
	assert.Equal(t, 2, report.Keywords[0].Frequency)
	require.NotNil(t, report.Stats)
	assert.Nil(t, report.Sentiment)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var exported models.CorpusReport
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Equal(t, report.Keywords, exported.Keywords)
}

func TestAnalyzeCommandErrors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		stdin string
	}{
		{"unknown analyzer", []string{"analyze", "--analyzers", "nope"}, "text"},
		{"empty input", []string{"analyze"}, "   "},
		{"missing file", []string{"analyze", "/nonexistent/file.txt"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", "error")
			cmd := newRootCmd()
			cmd.SetArgs(tt.args)
			cmd.SetIn(strings.NewReader(tt.stdin))
			cmd.SetOut(&bytes.Buffer{})
			assert.Error(t, cmd.Execute())
		})
	}
}
