// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/edurag-go/internal/ingest"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// ingestRunsTotal counts completed ingestion runs, partitioned by source
	// type and outcome: "ok" or "error".
	ingestRunsTotal *prometheus.CounterVec

	// ingestDurationSeconds records the wall-clock duration of each
	// ingestion run, partitioned by source type.
	ingestDurationSeconds *prometheus.HistogramVec

	// ingestChunksTotal counts chunk dispositions across all runs,
	// partitioned by source type and disposition: "inserted" or "skipped".
	ingestChunksTotal *prometheus.CounterVec

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, handler name, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		ingestRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edurag",
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Total number of ingestion runs completed, partitioned by source type and outcome.",
		}, []string{"source_type", "outcome"}),

		ingestDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "edurag",
			Subsystem: "ingest",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of ingestion runs.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"source_type"}),

		ingestChunksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edurag",
			Subsystem: "ingest",
			Name:      "chunks_total",
			Help:      "Chunk dispositions across ingestion runs, partitioned by source type and disposition.",
		}, []string{"source_type", "disposition"}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "edurag",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "edurag",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// instrument wraps h so every request increments httpRequestsTotal and
// observes httpDurationSeconds under the given handler name.
func (s *Server) instrument(name string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h.ServeHTTP(rw, r)
		s.metrics.httpRequestsTotal.WithLabelValues(r.Method, name, strconv.Itoa(rw.status)).Inc()
		s.metrics.httpDurationSeconds.WithLabelValues(r.Method, name).Observe(time.Since(start).Seconds())
	})
}

// observeIngest records the metrics for one completed ingestion run.
func (s *Server) observeIngest(res *ingest.Result) {
	outcome := "ok"
	if res.Failed() {
		outcome = "error"
	}
	s.metrics.ingestRunsTotal.WithLabelValues(res.SourceType, outcome).Inc()
	s.metrics.ingestDurationSeconds.WithLabelValues(res.SourceType).Observe(res.Elapsed.Seconds())
	s.metrics.ingestChunksTotal.WithLabelValues(res.SourceType, "inserted").Add(float64(len(res.InsertedIDs)))
	s.metrics.ingestChunksTotal.WithLabelValues(res.SourceType, "skipped").Add(float64(res.SkippedCount))
}
