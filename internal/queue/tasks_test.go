package queue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zombar/textinsight/internal/analyzer"
	"github.com/zombar/textinsight/internal/database"
	"github.com/zombar/textinsight/internal/metrics"
	"github.com/zombar/textinsight/internal/models"
	"github.com/zombar/textinsight/internal/textproc"
)

// setupTestWorker returns a worker backed by a temporary database that is
// never connected to Redis
func setupTestWorker(t *testing.T) (*Worker, *database.DB) {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate())

	w := &Worker{
		db:       db,
		analyzer: analyzer.New(),
		metrics:  metrics.New("test", prometheus.NewRegistry()),
		logger:   slog.Default(),
	}
	return w, db
}

func createPending(t *testing.T, db *database.DB, id string, req models.AnalysisRequest) {
	t.Helper()
	require.NoError(t, db.CreateAnalysis(context.Background(), &models.Analysis{
		ID:            id,
		DocumentCount: 2,
		Request:       req,
	}))
}

func TestHandleAnalyzeCorpus(t *testing.T) {
	w, db := setupTestWorker(t)
	ctx := context.Background()

	opts := textproc.DefaultOptions()
	opts.MinWordLength = 2
	req := models.AnalysisRequest{
		Analyzers: []string{models.AnalyzerKeywords, models.AnalyzerStats},
		Options:   opts,
	}
	createPending(t, db, "job-1", req)

	task, err := newAnalyzeCorpusTask(ctx, "job-1", []string{"the cat sat on the mat", "the dog sat on the log"}, req)
	require.NoError(t, err)
	require.NoError(t, w.handleAnalyzeCorpus(ctx, task))

	got, err := db.GetAnalysis(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.Report)
	require.NotEmpty(t, got.Report.Keywords)
	assert.Equal(t, "sat", got.Report.Keywords[0].Term)
	assert.Equal(t, 2, got.Report.Keywords[0].Frequency)
	require.NotNil(t, got.Report.Stats)
	assert.Equal(t, 2, got.Report.Stats.DocumentCount)

	assert.Equal(t, 2.0, testutil.ToFloat64(w.metrics.DocumentsProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(w.metrics.AnalysesTotal.WithLabelValues(models.AnalyzerKeywords, metrics.StatusOK)))
}

func TestHandleAnalyzeCorpusCompressedDocuments(t *testing.T) {
	w, db := setupTestWorker(t)
	ctx := context.Background()

	docs := make([]string, 40)
	for i := range docs {
		docs[i] = strings.Repeat("Solar panels convert sunlight into electricity for homes. ", 40)
	}
	req := models.AnalysisRequest{Analyzers: []string{models.AnalyzerStats}}
	createPending(t, db, "job-big", req)

	task, err := newAnalyzeCorpusTask(ctx, "job-big", docs, req)
	require.NoError(t, err)
	require.NoError(t, w.handleAnalyzeCorpus(ctx, task))

	got, err := db.GetAnalysis(ctx, "job-big")
	require.NoError(t, err)
	require.NotNil(t, got.Report.Stats)
	assert.Equal(t, 40, got.Report.Stats.DocumentCount)
}

func TestHandleAnalyzeCorpusErrors(t *testing.T) {
	tests := []struct {
		name           string
		setup          func(t *testing.T, db *database.DB)
		task           func(t *testing.T) *asynq.Task
		ctx            func() context.Context
		skipRetry      bool
		expectedStatus string
	}{
		{
			name:  "invalid payload",
			setup: func(t *testing.T, db *database.DB) {},
			task: func(t *testing.T) *asynq.Task {
				return asynq.NewTask(TypeAnalyzeCorpus, []byte(`{not json`))
			},
			ctx:       context.Background,
			skipRetry: true,
		},
		{
			name: "corrupt compressed documents",
			setup: func(t *testing.T, db *database.DB) {
				createPending(t, db, "job-x", models.AnalysisRequest{})
			},
			task: func(t *testing.T) *asynq.Task {
				data, err := json.Marshal(AnalyzeCorpusPayload{AnalysisID: "job-x", CompressedDocuments: "!!!"})
				require.NoError(t, err)
				return asynq.NewTask(TypeAnalyzeCorpus, data)
			},
			ctx:            context.Background,
			skipRetry:      true,
			expectedStatus: models.StatusFailed,
		},
		{
			name:  "analysis deleted while queued",
			setup: func(t *testing.T, db *database.DB) {},
			task: func(t *testing.T) *asynq.Task {
				task, err := newAnalyzeCorpusTask(context.Background(), "job-x", []string{"hello world"}, models.AnalysisRequest{})
				require.NoError(t, err)
				return task
			},
			ctx:       context.Background,
			skipRetry: true,
		},
		{
			name: "context cancelled",
			setup: func(t *testing.T, db *database.DB) {
				createPending(t, db, "job-x", models.AnalysisRequest{})
			},
			task: func(t *testing.T) *asynq.Task {
				task, err := newAnalyzeCorpusTask(context.Background(), "job-x", []string{"hello world"}, models.AnalysisRequest{})
				require.NoError(t, err)
				return task
			},
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			expectedStatus: models.StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, db := setupTestWorker(t)
			tt.setup(t, db)

			err := w.handleAnalyzeCorpus(tt.ctx(), tt.task(t))
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry), "skip retry: %v", err)

			if tt.expectedStatus != "" {
				got, err := db.GetAnalysis(context.Background(), "job-x")
				require.NoError(t, err)
				assert.Equal(t, tt.expectedStatus, got.Status)
				assert.NotEmpty(t, got.Error)
			}
		})
	}
}

func TestCompressDocuments(t *testing.T) {
	tests := []struct {
		name string
		docs []string
	}{
		{"empty", []string{}},
		{"single", []string{"Hello, World!"}},
		{"unicode", []string{"Café, naïve, 日本語", "emoji 🎉"}},
		{"many", strings.Split(strings.Repeat("doc,", 500), ",")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := compressDocuments(tt.docs)
			require.NoError(t, err)
			assert.NotEmpty(t, encoded)

			decoded, err := decompressDocuments(encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.docs, decoded)
		})
	}
}

func TestDecompressDocumentsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{"not base64", "!!!"},
		{"not snappy", "aGVsbG8gd29ybGQ="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decompressDocuments(tt.encoded)
			assert.Error(t, err)
		})
	}
}

func BenchmarkCompressDocuments(b *testing.B) {
	docs := make([]string, 100)
	for i := range docs {
		docs[i] = strings.Repeat("Benchmark corpus text with repeated words. ", 50)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = compressDocuments(docs)
	}
}
