// Package config loads service settings from the environment and optional
// .env files.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"

	"github.com/zombar/textinsight/pkg/logging"
)

// Config holds every setting of the server and CLI
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`
	// DBPath is a SQLite file path or a Postgres DSN
	DBPath string `env:"DB_PATH" envDefault:"textinsight.db"`

	// RedisAddr enables the asynq queue. Empty runs analyses inline.
	RedisAddr         string `env:"REDIS_ADDR"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY" envDefault:"4"`
	RunWorker         bool   `env:"RUN_WORKER" envDefault:"true"`

	UseOllama   bool   `env:"USE_OLLAMA" envDefault:"false"`
	OllamaURL   string `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	OllamaModel string `env:"OLLAMA_MODEL" envDefault:"llama3.2"`

	SentimentURL  string        `env:"SENTIMENT_SERVICE_URL"`
	SummaryURL    string        `env:"SUMMARY_SERVICE_URL"`
	RemoteTimeout time.Duration `env:"REMOTE_TIMEOUT" envDefault:"30s"`

	LexiconFile  string `env:"LEXICON_FILE"`
	TopicWorkers int    `env:"TOPIC_WORKERS" envDefault:"0"`

	ServiceName  string `env:"SERVICE_NAME" envDefault:"textinsight"`
	OTLPEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	Log logging.Config
}

// Load reads files (default ".env") into the environment, skipping files
// that do not exist, then parses and validates the environment. Variables
// already set win over file values.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var result *multierror.Error

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		result = multierror.Append(result, fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Port))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		result = multierror.Append(result, errors.New("DB_PATH is required"))
	}
	if c.WorkerConcurrency < 1 {
		result = multierror.Append(result, fmt.Errorf("WORKER_CONCURRENCY must be positive, got %d", c.WorkerConcurrency))
	}
	if c.RemoteTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("REMOTE_TIMEOUT must be positive, got %s", c.RemoteTimeout))
	}
	if c.TopicWorkers < 0 {
		result = multierror.Append(result, fmt.Errorf("TOPIC_WORKERS must not be negative, got %d", c.TopicWorkers))
	}

	for name, value := range map[string]string{
		"SENTIMENT_SERVICE_URL": c.SentimentURL,
		"SUMMARY_SERVICE_URL":   c.SummaryURL,
	} {
		if value == "" {
			continue
		}
		if err := validateURL(value); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.UseOllama {
		if err := validateURL(c.OllamaURL); err != nil {
			result = multierror.Append(result, fmt.Errorf("OLLAMA_URL: %w", err))
		}
		if c.OllamaModel == "" {
			result = multierror.Append(result, errors.New("OLLAMA_MODEL is required when USE_OLLAMA is set"))
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		result = multierror.Append(result, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format))
	}

	return result.ErrorOrNil()
}

// QueueEnabled reports whether analyses go through the asynq queue
func (c *Config) QueueEnabled() bool {
	return c.RedisAddr != ""
}

func validateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}
