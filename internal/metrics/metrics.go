// Package metrics exposes Prometheus collectors for corpus analysis.
package metrics

import (
	"database/sql"
	"errors"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zombar/textinsight/internal/models"
	"github.com/zombar/textinsight/internal/remote"
)

// Status label values
const (
	StatusOK    = "ok"
	StatusError = "error"

	OutcomeSuccess = "success"
)

// Metrics holds the business metrics of one service
type Metrics struct {
	AnalysesTotal      *prometheus.CounterVec
	AnalysisDuration   *prometheus.HistogramVec
	DocumentsProcessed prometheus.Counter
	TopicsDiscovered   prometheus.Counter
	RemoteRequests     *prometheus.CounterVec
	RemoteDuration     *prometheus.HistogramVec

	registerer prometheus.Registerer
}

// New registers the collectors with reg, or the default registerer when reg
// is nil.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analyzer runs by analyzer and status.",
		}, []string{"analyzer", "status"}),
		AnalysisDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of a corpus analysis.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"mode"}),
		DocumentsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_processed_total",
			Help:      "Documents passed through corpus analysis.",
		}),
		TopicsDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topics_discovered_total",
			Help:      "Topics returned by topic modeling.",
		}),
		RemoteRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Remote service calls by service and outcome.",
		}, []string{"service", "outcome"}),
		RemoteDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "Latency of remote service calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service"}),
		registerer: reg,
	}
}

// ObserveReport records one finished corpus analysis. mode tells inline,
// queued and CLI runs apart.
func (m *Metrics) ObserveReport(mode string, req models.AnalysisRequest, documents int, report models.CorpusReport) {
	m.AnalysisDuration.WithLabelValues(mode).Observe(report.Duration.Seconds())
	m.DocumentsProcessed.Add(float64(documents))
	m.TopicsDiscovered.Add(float64(len(report.Topics)))

	names := req.Analyzers
	if len(names) == 0 {
		names = models.AllAnalyzers
	}
	for _, name := range names {
		label := name
		if !slices.Contains(models.AllAnalyzers, name) {
			label = "unknown"
		}
		status := StatusOK
		if _, failed := report.Errors[name]; failed {
			status = StatusError
		}
		m.AnalysesTotal.WithLabelValues(label, status).Inc()
	}
}

// ObserveRemote matches remote.Observer. Failures are labeled with their
// ServiceError kind.
func (m *Metrics) ObserveRemote(service string, err error, elapsed time.Duration) {
	m.RemoteDuration.WithLabelValues(service).Observe(elapsed.Seconds())
	m.RemoteRequests.WithLabelValues(service, Outcome(err)).Inc()
}

// Outcome maps a remote call error to its metric label
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if errors.Is(err, remote.ErrNotConfigured) {
		return "not_configured"
	}
	var serviceErr *remote.ServiceError
	if errors.As(err, &serviceErr) {
		return string(serviceErr.Kind)
	}
	return StatusError
}

// RegisterDB exports connection pool statistics for db
func (m *Metrics) RegisterDB(db *sql.DB, name string) error {
	return m.registerer.Register(collectors.NewDBStatsCollector(db, name))
}
