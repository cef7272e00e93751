package queue

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zombar/textinsight/internal/database"
)

// compressThreshold is the corpus size in bytes above which task payloads
// carry snappy compressed documents
const compressThreshold = 64 << 10

// handleAnalyzeCorpus runs a queued corpus analysis and stores its report
func (w *Worker) handleAnalyzeCorpus(ctx context.Context, t *asynq.Task) error {
	var payload AnalyzeCorpusPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("invalid task payload: %v: %w", err, asynq.SkipRetry)
	}
	analysisID := payload.AnalysisID

	docs, err := payload.Docs()
	if err != nil {
		w.failAnalysis(ctx, analysisID, err)
		return fmt.Errorf("invalid documents for analysis %s: %v: %w", analysisID, err, asynq.SkipRetry)
	}

	queueWaitTime := queueWait(payload.EnqueuedAt, time.Now())
	w.logger.Info("processing corpus analysis",
		"analysis_id", analysisID,
		"documents", len(docs),
		"analyzers", payload.Request.Analyzers,
		"queue_wait_seconds", queueWaitTime.Seconds(),
	)

	ctx = restoreTraceContext(ctx, payload)
	ctx, span := otel.Tracer("textinsight").Start(ctx, "asynq.task.process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("task.type", TypeAnalyzeCorpus),
			attribute.String("analysis.id", analysisID),
			attribute.Int("documents.count", len(docs)),
			attribute.Float64("queue.wait_time_seconds", queueWaitTime.Seconds()),
			attribute.Int64("enqueued_at", payload.EnqueuedAt),
		),
	)
	defer span.End()
	span.AddEvent("task_processing_started", trace.WithAttributes(
		attribute.Float64("wait_time_seconds", queueWaitTime.Seconds()),
	))

	report := w.analyzer.AnalyzeCorpus(ctx, docs, payload.Request)
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis interrupted")
		if isFinalAttempt(ctx) {
			w.failAnalysis(ctx, analysisID, err)
		}
		return fmt.Errorf("analysis %s interrupted: %w", analysisID, err)
	}

	if w.metrics != nil {
		w.metrics.ObserveReport("queued", payload.Request, len(docs), report)
	}
	span.SetAttributes(
		attribute.Int("topics.count", len(report.Topics)),
		attribute.Int("analyzer.errors", len(report.Errors)),
	)

	if err := w.db.CompleteAnalysis(ctx, analysisID, &report); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to store report")
		if errors.Is(err, database.ErrNotFound) {
			// Deleted while queued; nothing to retry.
			w.logger.Warn("analysis removed before completion", "analysis_id", analysisID)
			return fmt.Errorf("analysis %s: %v: %w", analysisID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to store report for analysis %s: %w", analysisID, err)
	}

	w.logger.Info("corpus analysis stored",
		"analysis_id", analysisID,
		"topics", len(report.Topics),
		"errors", len(report.Errors),
		"duration_ms", report.Duration.Milliseconds(),
	)
	return nil
}

// failAnalysis marks the analysis failed. The write outlives ctx so a timed
// out task still records why.
func (w *Worker) failAnalysis(ctx context.Context, analysisID string, cause error) {
	if analysisID == "" {
		return
	}
	if err := w.db.FailAnalysis(context.WithoutCancel(ctx), analysisID, cause.Error()); err != nil {
		w.logger.Error("failed to mark analysis failed", "analysis_id", analysisID, "error", err)
	}
}

// isFinalAttempt reports whether asynq will not retry the task in ctx.
// Outside asynq every attempt is final.
func isFinalAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}

// restoreTraceContext links ctx to the span that enqueued the task
func restoreTraceContext(ctx context.Context, payload AnalyzeCorpusPayload) context.Context {
	if payload.TraceID == "" || payload.SpanID == "" {
		return ctx
	}
	traceID, err := trace.TraceIDFromHex(payload.TraceID)
	if err != nil {
		return ctx
	}
	spanID, err := trace.SpanIDFromHex(payload.SpanID)
	if err != nil {
		return ctx
	}
	remoteSpanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.ContextWithRemoteSpanContext(ctx, remoteSpanCtx)
}

// queueWait is how long a task enqueued at enqueuedAt (unix nanos) waited
// until now
func queueWait(enqueuedAt int64, now time.Time) time.Duration {
	if enqueuedAt <= 0 {
		return 0
	}
	wait := now.Sub(time.Unix(0, enqueuedAt))
	if wait < 0 {
		return 0
	}
	return wait
}

func documentsSize(docs []string) int {
	n := 0
	for _, doc := range docs {
		n += len(doc)
	}
	return n
}

// compressDocuments snappy compresses the JSON encoded documents and base64
// encodes the result for transport inside the JSON payload
func compressDocuments(docs []string) (string, error) {
	var buf bytes.Buffer
	writer := snappy.NewBufferedWriter(&buf)
	if err := json.NewEncoder(writer).Encode(docs); err != nil {
		return "", fmt.Errorf("failed to encode documents: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to compress documents: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decompressDocuments(encoded string) ([]string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	var docs []string
	if err := json.NewDecoder(snappy.NewReader(bytes.NewReader(raw))).Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to decompress documents: %w", err)
	}
	return docs, nil
}
