package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zombar/textinsight/internal/analyzer"
	"github.com/zombar/textinsight/internal/api"
	"github.com/zombar/textinsight/internal/config"
	"github.com/zombar/textinsight/internal/database"
	"github.com/zombar/textinsight/internal/metrics"
	"github.com/zombar/textinsight/internal/ollama"
	"github.com/zombar/textinsight/internal/queue"
	"github.com/zombar/textinsight/internal/remote"
	"github.com/zombar/textinsight/internal/topics"
	"github.com/zombar/textinsight/pkg/logging"
	"github.com/zombar/textinsight/pkg/tracing"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	var (
		port      = flag.String("port", cfg.Port, "Server port (env: PORT)")
		dbPath    = flag.String("db", cfg.DBPath, "SQLite file path or Postgres DSN (env: DB_PATH)")
		redisAddr = flag.String("redis", cfg.RedisAddr, "Redis address for the analysis queue, empty runs inline (env: REDIS_ADDR)")
		useOllama = flag.Bool("use-ollama", cfg.UseOllama, "Summarize with Ollama (env: USE_OLLAMA)")
		runWorker = flag.Bool("worker", cfg.RunWorker, "Run the queue worker in this process (env: RUN_WORKER)")
	)
	flag.Parse()
	cfg.Port, cfg.DBPath, cfg.RedisAddr, cfg.UseOllama, cfg.RunWorker = *port, *dbPath, *redisAddr, *useOllama, *runWorker

	logger, logCloser := logging.New(cfg.Log)
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("textinsight service initializing", "version", version)

	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.InitTracer(cfg.ServiceName, cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("failed to initialize tracer, continuing without tracing", "error", err)
		} else {
			defer func() {
				if err := tp.Shutdown(context.Background()); err != nil {
					logger.Error("error shutting down tracer", "error", err)
				}
			}()
			logger.Info("tracing initialized", "endpoint", cfg.OTLPEndpoint)
		}
	}

	db, err := database.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	m := metrics.New("textinsight", nil)
	if err := m.RegisterDB(db.Conn(), "textinsight"); err != nil {
		logger.Warn("failed to register database metrics", "error", err)
	}

	remoteClient := remote.New(cfg.SentimentURL, cfg.SummaryURL,
		remote.WithTimeout(cfg.RemoteTimeout),
		remote.WithObserver(m.ObserveRemote),
		remote.WithLogger(logger),
	)

	textAnalyzer, err := newAnalyzer(cfg, remoteClient, logger)
	if err != nil {
		logger.Error("failed to initialize analyzer", "error", err)
		os.Exit(1)
	}

	opts := []api.Option{
		api.WithRemote(remoteClient),
		api.WithMetrics(m),
		api.WithLogger(logger),
	}

	var worker *queue.Worker
	if cfg.QueueEnabled() {
		queueClient := queue.NewClient(queue.ClientConfig{RedisAddr: cfg.RedisAddr})
		defer queueClient.Close()
		opts = append(opts, api.WithQueue(queueClient))
		logger.Info("analysis queue enabled", "redis", cfg.RedisAddr)

		if cfg.RunWorker {
			worker = queue.NewWorker(queue.WorkerConfig{
				RedisAddr:   cfg.RedisAddr,
				Concurrency: cfg.WorkerConcurrency,
				Logger:      logger,
			}, db, textAnalyzer, m)
			if err := worker.Start(); err != nil {
				logger.Error("failed to start queue worker", "error", err)
				os.Exit(1)
			}
		}
	} else {
		logger.Info("no Redis configured, running analyses inline")
	}

	apiHandler := api.NewHandler(db, textAnalyzer, opts...)

	// Tracing wraps logging so request logs carry the trace ID
	handler := tracing.HTTPMiddleware(cfg.ServiceName)(
		logging.HTTPLoggingMiddleware(logger)(apiHandler),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // inline analyses of large corpora
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("textinsight service starting",
			"port", cfg.Port,
			"database_driver", db.Driver(),
			"queue_enabled", cfg.QueueEnabled(),
			"ollama_enabled", cfg.UseOllama,
			"sentiment_service", cfg.SentimentURL,
			"summary_service", cfg.SummaryURL,
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if worker != nil {
		worker.Shutdown()
	}

	logger.Info("server stopped")
}

// newAnalyzer builds the analyzer from cfg. Ollama takes the summary
// backend over the remote summary service when both are configured.
func newAnalyzer(cfg *config.Config, remoteClient *remote.Client, logger *slog.Logger) (*analyzer.Analyzer, error) {
	topicCfg := topics.DefaultConfig()
	if cfg.TopicWorkers > 0 {
		topicCfg.Workers = cfg.TopicWorkers
	}
	topicCfg.Logger = logger

	opts := []analyzer.Option{
		analyzer.WithTopicConfig(topicCfg),
		analyzer.WithLogger(logger),
	}

	if cfg.LexiconFile != "" {
		lexicon, err := analyzer.LoadLexiconFile(cfg.LexiconFile)
		if err != nil {
			return nil, err
		}
		logger.Info("sentiment lexicon loaded", "file", cfg.LexiconFile, "words", lexicon.Len())
		opts = append(opts, analyzer.WithLexicon(lexicon))
	}

	switch {
	case cfg.UseOllama:
		ollamaClient, err := ollama.New(cfg.OllamaURL, cfg.OllamaModel)
		if err != nil {
			logger.Warn("failed to initialize Ollama client, falling back to local summaries",
				"error", err,
				"ollama_url", cfg.OllamaURL,
				"ollama_model", cfg.OllamaModel,
			)
			break
		}
		logger.Info("Ollama client initialized", "model", cfg.OllamaModel, "url", cfg.OllamaURL)
		opts = append(opts, analyzer.WithSummaryBackend(ollamaClient))
	case cfg.SummaryURL != "":
		opts = append(opts, analyzer.WithSummaryBackend(remoteClient))
	}

	return analyzer.New(opts...), nil
}
