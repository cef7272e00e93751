package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zombar/textinsight/internal/models"
)

func setupSpanRecorder(t *testing.T) (*tracetest.SpanRecorder, trace.Tracer) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })
	return recorder, tp.Tracer("test")
}

// TestTraceContextPropagation_Enqueue tests that trace context is captured when enqueuing tasks
func TestTraceContextPropagation_Enqueue(t *testing.T) {
	recorder, tracer := setupSpanRecorder(t)

	ctx, span := tracer.Start(context.Background(), "api.analyze")
	parent := span.SpanContext()

	task, err := newAnalyzeCorpusTask(ctx, "trace-1", []string{"Sample text for analysis"}, models.AnalysisRequest{})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	span.End()

	var payload AnalyzeCorpusPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("Failed to unmarshal payload: %v", err)
	}

	if payload.TraceID != parent.TraceID().String() {
		t.Errorf("TraceID mismatch: got %s, want %s", payload.TraceID, parent.TraceID())
	}
	if payload.SpanID != parent.SpanID().String() {
		t.Errorf("SpanID mismatch: got %s, want %s", payload.SpanID, parent.SpanID())
	}
	if payload.EnqueuedAt == 0 {
		t.Error("EnqueuedAt was not set")
	}

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("Expected 1 span, got %d", len(ended))
	}
	found := false
	for _, event := range ended[0].Events() {
		if event.Name == "task_enqueued" {
			found = true
		}
	}
	if !found {
		t.Error("task_enqueued event not recorded on the enqueuing span")
	}
}

// TestTraceContextPropagation_Extract tests that workers can rebuild the enqueuing span context
func TestTraceContextPropagation_Extract(t *testing.T) {
	_, tracer := setupSpanRecorder(t)

	_, parentSpan := tracer.Start(context.Background(), "test-enqueue")
	parent := parentSpan.SpanContext()
	parentSpan.End()

	tests := []struct {
		name        string
		payload     AnalyzeCorpusPayload
		expectValid bool
	}{
		{
			name: "valid ids",
			payload: AnalyzeCorpusPayload{
				TraceID: parent.TraceID().String(),
				SpanID:  parent.SpanID().String(),
			},
			expectValid: true,
		},
		{name: "missing ids", payload: AnalyzeCorpusPayload{}},
		{name: "bad trace id", payload: AnalyzeCorpusPayload{TraceID: "xyz", SpanID: parent.SpanID().String()}},
		{name: "bad span id", payload: AnalyzeCorpusPayload{TraceID: parent.TraceID().String(), SpanID: "xyz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := restoreTraceContext(context.Background(), tt.payload)
			sc := trace.SpanContextFromContext(ctx)

			if sc.IsValid() != tt.expectValid {
				t.Fatalf("Expected valid=%v, got %v", tt.expectValid, sc.IsValid())
			}
			if !tt.expectValid {
				return
			}
			if !sc.IsRemote() {
				t.Error("Restored span context should be remote")
			}
			if sc.TraceID() != parent.TraceID() || sc.SpanID() != parent.SpanID() {
				t.Errorf("Restored %s/%s, want %s/%s", sc.TraceID(), sc.SpanID(), parent.TraceID(), parent.SpanID())
			}
		})
	}
}

// TestE2ETraceFlow_AnalyzeCorpus follows one trace from the enqueuing span into the worker
func TestE2ETraceFlow_AnalyzeCorpus(t *testing.T) {
	recorder, tracer := setupSpanRecorder(t)
	w, db := setupTestWorker(t)

	ctx, parentSpan := tracer.Start(context.Background(), "api.analyze",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	createPending(t, db, "trace-e2e", models.AnalysisRequest{})
	task, err := newAnalyzeCorpusTask(ctx, "trace-e2e", []string{"Sample text for analysis."}, models.AnalysisRequest{Analyzers: []string{models.AnalyzerStats}})
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	parentSpan.End()

	// Worker runs with a fresh context, as asynq would
	if err := w.handleAnalyzeCorpus(context.Background(), task); err != nil {
		t.Fatalf("Task failed: %v", err)
	}

	var workerSpan sdktrace.ReadOnlySpan
	for _, span := range recorder.Ended() {
		if span.Name() == "asynq.task.process" {
			workerSpan = span
		}
	}
	if workerSpan == nil {
		t.Fatal("asynq.task.process span not recorded")
	}
	if workerSpan.SpanKind() != trace.SpanKindConsumer {
		t.Errorf("Expected consumer span, got %v", workerSpan.SpanKind())
	}
	if workerSpan.SpanContext().TraceID() != parentSpan.SpanContext().TraceID() {
		t.Errorf("Worker span has different TraceID: got %s, want %s",
			workerSpan.SpanContext().TraceID(), parentSpan.SpanContext().TraceID())
	}
	if workerSpan.Parent().SpanID() != parentSpan.SpanContext().SpanID() {
		t.Errorf("Worker span parent mismatch: got %s, want %s",
			workerSpan.Parent().SpanID(), parentSpan.SpanContext().SpanID())
	}
}

// TestE2ETraceFlowWithRealAsynq enqueues through a real client (requires Redis)
func TestE2ETraceFlowWithRealAsynq(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	_, tracer := setupSpanRecorder(t)

	client := asynq.NewClient(asynq.RedisClientOpt{Addr: "localhost:6379", DialTimeout: 200 * time.Millisecond})
	queueClient := &Client{client: client}
	defer queueClient.Close()

	ctx, span := tracer.Start(context.Background(), "api.analyze")
	defer span.End()

	analysisID := "test-analysis-real-" + time.Now().Format("20060102150405.000000")
	taskID, err := queueClient.EnqueueAnalyzeCorpus(ctx, analysisID, []string{"Sample text for real Asynq test"}, models.AnalysisRequest{})
	if err != nil {
		t.Skipf("Could not connect to Redis: %v", err)
	}
	if taskID != analysisID {
		t.Errorf("Expected task ID %s, got %s", analysisID, taskID)
	}
}
