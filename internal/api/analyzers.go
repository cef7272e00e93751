package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zombar/textinsight/internal/models"
	"github.com/zombar/textinsight/internal/remote"
	"github.com/zombar/textinsight/internal/textproc"
	"github.com/zombar/textinsight/pkg/logging"
	"github.com/zombar/textinsight/pkg/tracing"
)

// section runs one analyzer and picks its part of the report
type section struct {
	analyzer string
	pick     func(models.CorpusReport) any
}

// singleAnalyzers maps an /api/<path> endpoint to the analyzer it runs
var singleAnalyzers = map[string]section{
	"stats": {models.AnalyzerStats, func(r models.CorpusReport) any { return r.Stats }},
	"keywords": {models.AnalyzerKeywords, func(r models.CorpusReport) any {
		return map[string]any{"keywords": r.Keywords, "keyTerms": r.KeyTerms}
	}},
	"readability": {models.AnalyzerReadability, func(r models.CorpusReport) any { return r.Readability }},
	"sentiment":   {models.AnalyzerSentiment, func(r models.CorpusReport) any { return r.Sentiment }},
	"ngrams": {models.AnalyzerNGrams, func(r models.CorpusReport) any {
		return map[string]any{"bigrams": r.Bigrams, "trigrams": r.Trigrams}
	}},
	"patterns":  {models.AnalyzerPatterns, func(r models.CorpusReport) any { return r.Patterns }},
	"topics":    {models.AnalyzerTopics, func(r models.CorpusReport) any { return map[string]any{"topics": emptyIfNil(r.Topics)} }},
	"summarize": {models.AnalyzerSummary, func(r models.CorpusReport) any { return r.Summary }},
}

func emptyIfNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// singleAnalyzerHandler runs one analyzer synchronously without storing
// anything
func (h *Handler) singleAnalyzerHandler(s section) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, req, err := decodeAnalyzeRequest(w, r)
		if err != nil {
			respondError(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Analyzers = []string{s.analyzer}
		tracing.SetSpanAttributes(r.Context(),
			attribute.String("analyzer", s.analyzer),
			attribute.Int("documents.count", len(docs)),
		)

		report := h.analyzer.AnalyzeCorpus(r.Context(), docs, req)
		if h.metrics != nil {
			h.metrics.ObserveReport("inline", req, len(docs), report)
		}
		if msg, failed := report.Errors[s.analyzer]; failed {
			h.serverError(w, r, errors.New(msg))
			return
		}
		respondJSON(w, s.pick(report), http.StatusOK)
	}
}

// handlePreprocess returns the words, sentences and paragraphs of each
// document
func (h *Handler) handlePreprocess(w http.ResponseWriter, r *http.Request) {
	docs, req, err := decodeAnalyzeRequest(w, r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	tokenizer := textproc.NewTokenizer(req.Options)
	results := make([]textproc.Result, len(docs))
	for i, doc := range docs {
		results[i] = tokenizer.Preprocess(doc)
	}
	respondJSON(w, map[string]any{
		"options": tokenizer.Options(),
		"results": results,
	}, http.StatusOK)
}

type remoteRequest struct {
	Documents      []string `json:"documents"`
	Text           string   `json:"text,omitempty"`
	CustomPositive []string `json:"customPositive,omitempty"`
	CustomNegative []string `json:"customNegative,omitempty"`
	SummarySize    int      `json:"summarySize,omitempty"`
}

func decodeRemoteRequest(w http.ResponseWriter, r *http.Request) (remoteRequest, error) {
	var body remoteRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		return body, fmt.Errorf("invalid request body: %w", err)
	}
	if strings.TrimSpace(body.Text) != "" {
		body.Documents = append(body.Documents, body.Text)
	}
	if len(body.Documents) == 0 {
		return body, errors.New("documents or text is required")
	}
	return body, nil
}

// handleRemoteSentiment scores documents with the remote sentiment service
func (h *Handler) handleRemoteSentiment(w http.ResponseWriter, r *http.Request) {
	if h.remote == nil {
		respondError(w, "remote services are not configured", http.StatusServiceUnavailable)
		return
	}
	body, err := decodeRemoteRequest(w, r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var custom *remote.Lexicons
	if len(body.CustomPositive) > 0 || len(body.CustomNegative) > 0 {
		custom = &remote.Lexicons{Positive: body.CustomPositive, Negative: body.CustomNegative}
	}
	stats, err := h.remote.Sentiment(r.Context(), body.Documents, custom)
	if err != nil {
		h.remoteError(w, r, err)
		return
	}
	respondJSON(w, stats, http.StatusOK)
}

// handleRemoteSummarize summarizes documents with the remote summary service
func (h *Handler) handleRemoteSummarize(w http.ResponseWriter, r *http.Request) {
	if h.remote == nil {
		respondError(w, "remote services are not configured", http.StatusServiceUnavailable)
		return
	}
	body, err := decodeRemoteRequest(w, r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.remote.Summarize(r.Context(), body.Documents, body.SummarySize)
	if err != nil {
		h.remoteError(w, r, err)
		return
	}
	respondJSON(w, summary, http.StatusOK)
}

// remoteError maps a remote failure to 502, 504 or 503 when the service has
// no URL
func (h *Handler) remoteError(w http.ResponseWriter, r *http.Request, err error) {
	tracing.RecordError(r.Context(), err)

	if errors.Is(err, remote.ErrNotConfigured) {
		respondError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	var serviceErr *remote.ServiceError
	if !errors.As(err, &serviceErr) {
		h.serverError(w, r, err)
		return
	}

	status := serviceErr.HTTPStatus()
	logging.HTTPErrorLogger(h.logger, status, err, r)
	respondJSON(w, map[string]any{
		"error":     serviceErr.Error(),
		"service":   serviceErr.Service,
		"kind":      serviceErr.Kind,
		"retryable": serviceErr.Retryable(),
	}, status)
}
