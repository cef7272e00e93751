package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kaptinlin/jsonrepair"
	"github.com/ollama/ollama/api"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zombar/textinsight/internal/analyzer"
	"github.com/zombar/textinsight/internal/models"
)

const (
	DefaultModel   = "gpt-oss:20b"
	DefaultTimeout = 360 * time.Second

	// maxPromptChars bounds the corpus text sent to the model
	maxPromptChars = 24000
)

// Client wraps the Ollama API client
type Client struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a new Ollama client
func New(ollamaURL, model string) (*Client, error) {
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	if model == "" {
		model = DefaultModel
	}

	baseURL, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	return &Client{
		client:  api.NewClient(baseURL, httpClient),
		model:   model,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}, nil
}

// GenerateResponse generates a response from the LLM
func (c *Client) GenerateResponse(ctx context.Context, prompt string) (string, error) {
	c.logger.Debug("sending ollama request", "model", c.model, "timeout", c.timeout)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &api.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: new(bool), // false
	}

	var response strings.Builder
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		response.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		c.logger.Warn("ollama generation failed", "model", c.model, "error", err)
		return "", fmt.Errorf("generation failed: %w", err)
	}

	result := strings.TrimSpace(response.String())
	c.logger.Debug("ollama response received", "chars", len(result))
	return result, nil
}

// Summarize asks the model for an extractive style summary of texts. It
// satisfies analyzer.SummaryBackend.
func (c *Client) Summarize(ctx context.Context, texts []string, sentences int) (models.Summary, error) {
	if sentences <= 0 {
		sentences = 3
	}
	corpus := strings.Join(texts, "\n\n")
	originalLength := utf8.RuneCountInString(corpus)
	corpus = promptCorpus(corpus)

	prompt := fmt.Sprintf(`Summarize the following documents.

Requirements:
- Write at most %d sentences
- Use simple, clear language
- Do NOT provide meta-commentary (e.g., "the text has...", "these documents discuss...")
- List up to 5 key points as short phrases

Return ONLY a JSON object with fields: summary (string), key_points (array of strings).

Documents:
%s

JSON:`, sentences, corpus)

	response, err := c.GenerateResponse(ctx, prompt)
	if err != nil {
		return models.Summary{}, err
	}

	summary, err := parseSummary(response)
	if err != nil {
		return models.Summary{}, err
	}
	summary.OriginalLength = originalLength
	if originalLength > 0 {
		ratio := float64(utf8.RuneCountInString(summary.Summary)) / float64(originalLength)
		summary.CompressionRatio = float64(int(ratio*100+0.5)) / 100
	}
	return summary, nil
}

// promptCorpus replaces invalid UTF-8 and cuts corpus to at most
// maxPromptChars bytes on a rune boundary
func promptCorpus(corpus string) string {
	corpus = strings.ToValidUTF8(corpus, "\uFFFD")
	if len(corpus) <= maxPromptChars {
		return corpus
	}
	end := maxPromptChars
	for end > 0 && !utf8.RuneStart(corpus[end]) {
		end--
	}
	return corpus[:end]
}

type summaryPayload struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
}

// parseSummary extracts the JSON object from a model response, repairing
// truncated or sloppy JSON when a plain decode fails.
func parseSummary(response string) (models.Summary, error) {
	start := strings.Index(response, "{")
	if start < 0 {
		return models.Summary{}, fmt.Errorf("no JSON object found in response")
	}
	raw := response[start:]
	if end := strings.LastIndex(raw, "}"); end >= 0 {
		raw = raw[:end+1]
	}

	var payload summaryPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return models.Summary{}, fmt.Errorf("failed to parse summary JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
			return models.Summary{}, fmt.Errorf("failed to parse repaired summary JSON: %w", err)
		}
	}

	payload.Summary = strings.TrimSpace(payload.Summary)
	if payload.Summary == "" {
		return models.Summary{}, fmt.Errorf("model returned an empty summary")
	}

	keyPoints := []string{}
	for _, p := range payload.KeyPoints {
		if p = strings.TrimSpace(p); p != "" {
			keyPoints = append(keyPoints, p)
		}
	}
	if len(keyPoints) > 5 {
		keyPoints = keyPoints[:5]
	}

	r := analyzer.ReadabilityOf(payload.Summary)
	return models.Summary{
		Summary:           payload.Summary,
		KeyPoints:         keyPoints,
		ReadabilityScore:  r.FleschReading,
		WordCount:         r.WordCount,
		SentenceCount:     r.SentenceCount,
		AvgSentenceLength: r.AvgWordsPerSentence,
		Source:            models.SourceOllama,
	}, nil
}
