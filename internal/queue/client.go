package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/textinsight/internal/models"
)

// Task type and queue names
const (
	TypeAnalyzeCorpus = "textinsight:analyze_corpus"

	QueueAnalysis = "analysis"
)

// AnalyzeCorpusPayload is the payload of an analyze_corpus task. Large
// corpora travel in CompressedDocuments instead of Documents.
type AnalyzeCorpusPayload struct {
	AnalysisID          string                 `json:"analysis_id"`
	Documents           []string               `json:"documents,omitempty"`
	CompressedDocuments string                 `json:"compressed_documents,omitempty"`
	Request             models.AnalysisRequest `json:"request"`
	// Tracing and timing fields
	TraceID    string `json:"trace_id,omitempty"`
	SpanID     string `json:"span_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"` // Unix timestamp in nanoseconds
}

// Docs returns the payload's documents, decompressing them if needed
func (p AnalyzeCorpusPayload) Docs() ([]string, error) {
	if p.CompressedDocuments == "" {
		return p.Documents, nil
	}
	return decompressDocuments(p.CompressedDocuments)
}

// Client wraps the Asynq client for enqueueing tasks
type Client struct {
	client *asynq.Client
}

// ClientConfig contains configuration for the queue client
type ClientConfig struct {
	RedisAddr string
}

// NewClient creates a new queue client
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr}),
	}
}

// EnqueueAnalyzeCorpus queues a corpus analysis. The analysis ID doubles as
// the task ID so a job cannot be queued twice.
func (c *Client) EnqueueAnalyzeCorpus(ctx context.Context, analysisID string, docs []string, req models.AnalysisRequest) (string, error) {
	task, err := newAnalyzeCorpusTask(ctx, analysisID, docs, req)
	if err != nil {
		return "", err
	}

	opts := []asynq.Option{
		asynq.MaxRetry(3),
		asynq.Timeout(10 * time.Minute),
		asynq.Queue(QueueAnalysis),
		asynq.Retention(7 * 24 * time.Hour),
	}

	info, err := c.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue analyze corpus task: %w", err)
	}
	return info.ID, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.client.Close()
}

func newAnalyzeCorpusTask(ctx context.Context, analysisID string, docs []string, req models.AnalysisRequest) (*asynq.Task, error) {
	payload := AnalyzeCorpusPayload{
		AnalysisID: analysisID,
		Request:    req,
		EnqueuedAt: time.Now().UnixNano(),
	}

	if documentsSize(docs) > compressThreshold {
		compressed, err := compressDocuments(docs)
		if err != nil {
			return nil, err
		}
		payload.CompressedDocuments = compressed
	} else {
		payload.Documents = docs
	}

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()
		payload.TraceID = spanCtx.TraceID().String()
		payload.SpanID = spanCtx.SpanID().String()

		span.AddEvent("task_enqueued", trace.WithAttributes(
			attribute.String("task.type", TypeAnalyzeCorpus),
			attribute.String("analysis_id", analysisID),
			attribute.Int("documents.count", len(docs)),
			attribute.Bool("documents.compressed", payload.CompressedDocuments != ""),
			attribute.Int64("enqueued_at", payload.EnqueuedAt),
		))
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}
	return asynq.NewTask(TypeAnalyzeCorpus, payloadBytes, asynq.TaskID(analysisID)), nil
}
