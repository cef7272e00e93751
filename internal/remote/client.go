// Package remote talks to external sentiment and summarization services and
// normalizes their responses.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zombar/textinsight/internal/models"
)

const (
	DefaultTimeout = 30 * time.Second

	ServiceSentiment = "sentiment"
	ServiceSummary   = "summary"

	maxResponseBytes = 8 << 20
)

// Lexicons carries caller supplied sentiment words
type Lexicons struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

type request struct {
	Texts          []string  `json:"texts"`
	CustomLexicons *Lexicons `json:"custom_lexicons,omitempty"`
	MaxSentences   int       `json:"max_sentences,omitempty"`
}

// Observer is told the outcome of every remote call
type Observer func(service string, err error, elapsed time.Duration)

// Client calls the remote sentiment and summary services
type Client struct {
	SentimentURL string
	SummaryURL   string

	httpClient *http.Client
	observer   Observer
	logger     *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the instrumented default client. nil keeps the
// default.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout overrides DefaultTimeout. It sets the timeout on a copy, so a
// client passed to WithHTTPClient is left as it was.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// WithObserver registers a callback for call outcomes, used for metrics
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New creates a client. Either URL may be empty, in which case calls to that
// service fail with ErrNotConfigured.
func New(sentimentURL, summaryURL string, opts ...Option) *Client {
	c := &Client{
		SentimentURL: sentimentURL,
		SummaryURL:   summaryURL,
		httpClient:   defaultHTTPClient(),
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// ErrNotConfigured is returned when the service URL is empty
var ErrNotConfigured = errors.New("remote service not configured")

// Sentiment scores texts remotely. custom may be nil.
func (c *Client) Sentiment(ctx context.Context, texts []string, custom *Lexicons) (stats models.SentimentStats, err error) {
	defer c.observe(ServiceSentiment, time.Now(), &err)

	body, err := c.post(ctx, ServiceSentiment, c.SentimentURL, request{Texts: texts, CustomLexicons: custom})
	if err != nil {
		return models.SentimentStats{}, err
	}
	resp, err := DecodeSentiment(body)
	if err != nil {
		return models.SentimentStats{}, c.finish(ServiceSentiment, &ServiceError{Service: ServiceSentiment, Kind: KindMalformed, Err: err})
	}
	return NormalizeSentiment(resp), nil
}

// Summarize asks the summary service for at most sentences sentences. It
// satisfies analyzer.SummaryBackend.
func (c *Client) Summarize(ctx context.Context, texts []string, sentences int) (summary models.Summary, err error) {
	defer c.observe(ServiceSummary, time.Now(), &err)

	body, err := c.post(ctx, ServiceSummary, c.SummaryURL, request{Texts: texts, MaxSentences: sentences})
	if err != nil {
		return models.Summary{}, err
	}
	resp, err := DecodeSummary(body)
	if err != nil {
		return models.Summary{}, c.finish(ServiceSummary, &ServiceError{Service: ServiceSummary, Kind: KindMalformed, Err: err})
	}
	return NormalizeSummary(resp), nil
}

func (c *Client) observe(service string, start time.Time, err *error) {
	if c.observer != nil {
		c.observer(service, *err, time.Since(start))
	}
}

func (c *Client) post(ctx context.Context, service, url string, payload request) ([]byte, error) {
	start := time.Now()
	if url == "" {
		return nil, &ServiceError{Service: service, Kind: KindTransport, Err: ErrNotConfigured}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", service, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", service, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.finish(service, transportError(service, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.finish(service, transportError(service, err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.finish(service, &ServiceError{
			Service:    service,
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", truncate(string(body), 200)),
		})
	}

	c.logger.Debug("remote call complete", "service", service, "status", resp.StatusCode, "bytes", len(body), "duration_ms", time.Since(start).Milliseconds())
	return body, nil
}

func (c *Client) finish(service string, err *ServiceError) error {
	c.logger.Warn("remote call failed", "service", service, "kind", err.Kind, "status", err.StatusCode, "error", err.Err)
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
