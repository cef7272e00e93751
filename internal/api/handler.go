package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zombar/textinsight/internal/analyzer"
	"github.com/zombar/textinsight/internal/database"
	"github.com/zombar/textinsight/internal/metrics"
	"github.com/zombar/textinsight/internal/models"
	"github.com/zombar/textinsight/internal/remote"
	"github.com/zombar/textinsight/internal/textproc"
	"github.com/zombar/textinsight/pkg/logging"
	"github.com/zombar/textinsight/pkg/tracing"
)

const maxBodyBytes = 32 << 20

// Enqueuer queues corpus analyses for a worker
type Enqueuer interface {
	EnqueueAnalyzeCorpus(ctx context.Context, analysisID string, docs []string, req models.AnalysisRequest) (string, error)
}

// RemoteClient calls the remote sentiment and summary services
type RemoteClient interface {
	Sentiment(ctx context.Context, texts []string, custom *remote.Lexicons) (models.SentimentStats, error)
	Summarize(ctx context.Context, texts []string, sentences int) (models.Summary, error)
}

// Handler handles HTTP requests
type Handler struct {
	db          *database.DB
	analyzer    *analyzer.Analyzer
	queueClient Enqueuer
	remote      RemoteClient
	metrics     *metrics.Metrics
	logger      *slog.Logger
	mux         *http.ServeMux
}

// Option configures a Handler
type Option func(*Handler)

// WithQueue sends POST /api/analyze through q instead of running inline
func WithQueue(q Enqueuer) Option {
	return func(h *Handler) { h.queueClient = q }
}

// WithRemote enables the /api/remote endpoints
func WithRemote(c RemoteClient) Option {
	return func(h *Handler) { h.remote = c }
}

// WithMetrics records inline analyses in m
func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// NewHandler creates a new API handler with CORS support and metrics
func NewHandler(db *database.DB, a *analyzer.Analyzer, opts ...Option) http.Handler {
	h := newHandler(db, a, opts...)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition"},
	})
	return c.Handler(h.mux)
}

func newHandler(db *database.DB, a *analyzer.Analyzer, opts ...Option) *Handler {
	h := &Handler{
		db:       db,
		analyzer: a,
		logger:   slog.Default(),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.setupRoutes()
	return h
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	h.mux.Handle("GET /metrics", promhttp.Handler())
	h.mux.HandleFunc("GET /health", h.handleHealth)

	h.mux.HandleFunc("POST /api/analyze", h.handleAnalyze)
	h.mux.HandleFunc("GET /api/jobs/{id}", h.handleJobStatus)
	h.mux.HandleFunc("GET /api/analyses", h.handleListAnalyses)
	h.mux.HandleFunc("GET /api/analyses/{id}", h.handleGetAnalysis)
	h.mux.HandleFunc("DELETE /api/analyses/{id}", h.handleDeleteAnalysis)
	h.mux.HandleFunc("GET /api/analyses/{id}/export", h.handleExport)

	h.mux.HandleFunc("POST /api/preprocess", h.handlePreprocess)
	for path, section := range singleAnalyzers {
		h.mux.HandleFunc("POST /api/"+path, h.singleAnalyzerHandler(section))
	}

	h.mux.HandleFunc("POST /api/remote/sentiment", h.handleRemoteSentiment)
	h.mux.HandleFunc("POST /api/remote/summarize", h.handleRemoteSummarize)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	mode := "inline"
	if h.queueClient != nil {
		mode = "queued"
	}
	respondJSON(w, map[string]string{
		"status": "ok",
		"mode":   mode,
		"time":   time.Now().Format(time.RFC3339),
	}, http.StatusOK)
}

// analyzeRequest is the body of every analysis endpoint. Text is shorthand
// for a single document.
type analyzeRequest struct {
	Documents []string `json:"documents"`
	Text      string   `json:"text,omitempty"`
	models.AnalysisRequest
}

// decodeAnalyzeRequest reads the body onto default options, so a request
// only names the options it changes
func decodeAnalyzeRequest(w http.ResponseWriter, r *http.Request) ([]string, models.AnalysisRequest, error) {
	body := analyzeRequest{AnalysisRequest: models.AnalysisRequest{Options: textproc.DefaultOptions()}}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, models.AnalysisRequest{}, fmt.Errorf("invalid request body: %w", err)
	}

	docs := body.Documents
	if strings.TrimSpace(body.Text) != "" {
		docs = append(docs, body.Text)
	}
	nonEmpty := 0
	for _, doc := range docs {
		if strings.TrimSpace(doc) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return nil, models.AnalysisRequest{}, errors.New("documents or text is required")
	}
	if body.TopicCount < 0 || body.SummarySize < 0 {
		return nil, models.AnalysisRequest{}, errors.New("topicCount and summarySize must not be negative")
	}
	return docs, body.AnalysisRequest, nil
}

// handleAnalyze queues a corpus analysis, or runs it inline when no queue is
// configured
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	docs, req, err := decodeAnalyzeRequest(w, r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	analysis := &models.Analysis{
		ID:            uuid.NewString(),
		Status:        models.StatusPending,
		DocumentCount: len(docs),
		Request:       req,
	}
	tracing.SetSpanAttributes(ctx,
		attribute.String("analysis.id", analysis.ID),
		attribute.Int("documents.count", len(docs)),
	)

	if h.queueClient != nil {
		h.enqueueAnalysis(w, r, analysis, docs)
		return
	}

	runCtx, span := tracing.StartSpan(ctx, "analysis.run",
		attribute.String("analysis.id", analysis.ID),
		attribute.Int("documents.count", len(docs)),
	)
	report := h.analyzer.AnalyzeCorpus(runCtx, docs, req)
	span.SetAttributes(attribute.Int("analyzer.errors", len(report.Errors)))
	span.End()
	if h.metrics != nil {
		h.metrics.ObserveReport("inline", req, len(docs), report)
	}

	analysis.Status = models.StatusCompleted
	analysis.Report = &report

	saveCtx, saveSpan := tracing.StartSpan(ctx, "database.save_analysis", attribute.String("analysis.id", analysis.ID))
	err = h.db.CreateAnalysis(saveCtx, analysis)
	tracing.RecordError(saveCtx, err)
	saveSpan.End()
	if err != nil {
		h.serverError(w, r, fmt.Errorf("failed to save analysis: %w", err))
		return
	}

	respondJSON(w, analysis, http.StatusCreated)
}

func (h *Handler) enqueueAnalysis(w http.ResponseWriter, r *http.Request, analysis *models.Analysis, docs []string) {
	ctx := r.Context()
	if err := h.db.CreateAnalysis(ctx, analysis); err != nil {
		h.serverError(w, r, fmt.Errorf("failed to save analysis: %w", err))
		return
	}

	taskID, err := h.queueClient.EnqueueAnalyzeCorpus(ctx, analysis.ID, docs, analysis.Request)
	if err != nil {
		if failErr := h.db.FailAnalysis(context.WithoutCancel(ctx), analysis.ID, err.Error()); failErr != nil {
			h.logger.Error("failed to mark analysis failed", "analysis_id", analysis.ID, "error", failErr)
		}
		h.serverError(w, r, fmt.Errorf("failed to enqueue analysis: %w", err))
		return
	}

	respondJSON(w, map[string]any{
		"job_id":  analysis.ID,
		"task_id": taskID,
		"status":  "queued",
		"message": "Analysis queued for processing",
	}, http.StatusAccepted)
}

// handleJobStatus reports the state of a queued analysis and its report
// once complete
func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	analysis, err := h.db.GetAnalysis(r.Context(), jobID)
	if errors.Is(err, database.ErrNotFound) {
		respondJSON(w, map[string]any{
			"job_id":  jobID,
			"status":  "not_found",
			"message": "Analysis not found",
		}, http.StatusNotFound)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	response := map[string]any{
		"job_id":     jobID,
		"status":     analysis.Status,
		"created_at": analysis.CreatedAt,
		"updated_at": analysis.UpdatedAt,
	}
	switch analysis.Status {
	case models.StatusCompleted:
		response["analysis"] = analysis
	case models.StatusFailed:
		response["error"] = analysis.Error
	}
	respondJSON(w, response, http.StatusOK)
}

// handleListAnalyses handles listing all analyses with pagination
func (h *Handler) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit := 10
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = min(l, 500)
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	analyses, err := h.db.ListAnalyses(r.Context(), limit, offset)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	respondJSON(w, analyses, http.StatusOK)
}

// handleGetAnalysis retrieves a specific analysis
func (h *Handler) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.db.GetAnalysis(r.Context(), r.PathValue("id"))
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	respondJSON(w, analysis, http.StatusOK)
}

// handleDeleteAnalysis deletes a specific analysis
func (h *Handler) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteAnalysis(r.Context(), r.PathValue("id")); err != nil {
		h.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExport downloads a completed analysis' report as JSON
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	analysis, err := h.db.GetAnalysis(r.Context(), id)
	if err != nil {
		h.storeError(w, r, err)
		return
	}
	if analysis.Status != models.StatusCompleted || analysis.Report == nil {
		respondError(w, fmt.Sprintf("analysis is %s", analysis.Status), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="analysis-%s.json"`, id))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(analysis.Report)
}

// storeError maps database errors to responses
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, err.Error(), http.StatusNotFound)
		return
	}
	h.serverError(w, r, err)
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
	tracing.RecordError(r.Context(), err)
	respondError(w, err.Error(), http.StatusInternalServerError)
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, map[string]string{"error": message}, statusCode)
}
