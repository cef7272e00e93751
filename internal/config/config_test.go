package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "textinsight.db", cfg.DBPath)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, 30*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.QueueEnabled())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REMOTE_TIMEOUT", "5s")
	t.Setenv("SUMMARY_SERVICE_URL", "http://summary:8000/summarize")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("LOG_FILE", "/var/log/textinsight.log")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.QueueEnabled())
	assert.Equal(t, 5*time.Second, cfg.RemoteTimeout)
	assert.Equal(t, "http://summary:8000/summarize", cfg.SummaryURL)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "/var/log/textinsight.log", cfg.Log.File)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TOPIC_WORKERS=2\nOLLAMA_MODEL=mistral\n"), 0o600))

	// Values already in the environment take precedence over the file.
	t.Setenv("OLLAMA_MODEL", "llama3.2")
	t.Setenv("TOPIC_WORKERS", "")
	os.Unsetenv("TOPIC_WORKERS")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.TopicWorkers)
	assert.Equal(t, "llama3.2", cfg.OllamaModel)
}

func TestLoadInvalidValue(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "many")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Port:              "8080",
			DBPath:            "textinsight.db",
			WorkerConcurrency: 1,
			RemoteTimeout:     time.Second,
			OllamaURL:         "http://localhost:11434",
			OllamaModel:       "llama3.2",
		}
	}

	tests := []struct {
		name         string
		mutate       func(c *Config)
		expectErrors int
	}{
		{"valid", func(c *Config) {}, 0},
		{"bad port", func(c *Config) { c.Port = "http" }, 1},
		{"port out of range", func(c *Config) { c.Port = "70000" }, 1},
		{"empty db path", func(c *Config) { c.DBPath = " " }, 1},
		{"bad remote url", func(c *Config) { c.SentimentURL = "sentiment:8000" }, 1},
		{"ftp url", func(c *Config) { c.SummaryURL = "ftp://summary/x" }, 1},
		{"ollama without model", func(c *Config) { c.UseOllama = true; c.OllamaModel = "" }, 1},
		{"ollama disabled ignores url", func(c *Config) { c.OllamaURL = "::" }, 0},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, 1},
		{
			"several problems",
			func(c *Config) {
				c.Port = ""
				c.WorkerConcurrency = 0
				c.RemoteTimeout = 0
				c.TopicWorkers = -1
			},
			4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			cfg.Log.Format = "json"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.expectErrors == 0 {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var merr *multierror.Error
			require.ErrorAs(t, err, &merr)
			assert.Len(t, merr.Errors, tt.expectErrors)
		})
	}
}
