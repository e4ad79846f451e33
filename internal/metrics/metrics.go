// Package metrics exposes Prometheus counters for the RPC surface and
// the check pipeline, served on a dedicated HTTP port.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hsn0918/plagiarism/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds every collector the service records into.
type Metrics struct {
	registry *prometheus.Registry

	RPCRequestsTotal    *prometheus.CounterVec
	RPCRequestDuration  *prometheus.HistogramVec
	RPCRequestsInFlight prometheus.Gauge
	RPCErrorsTotal      *prometheus.CounterVec

	ChecksTotal      *prometheus.CounterVec
	CheckDuration    prometheus.Histogram
	DocumentsIndexed *prometheus.CounterVec

	VectorQueriesTotal  *prometheus.CounterVec
	VectorQueryDuration *prometheus.HistogramVec
}

// New builds the collector set on a private registry so tests can hold
// independent instances.
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: registry,
		RPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "rpc_requests_total",
			Help:        "Total number of RPC requests",
			ConstLabels: constLabels,
		}, []string{"method", "status"}),
		RPCRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "rpc_request_duration_seconds",
			Help:        "Duration of RPC requests in seconds",
			ConstLabels: constLabels,
			Buckets:     []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"method"}),
		RPCRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "rpc_requests_in_flight",
			Help:        "Number of RPC requests currently being processed",
			ConstLabels: constLabels,
		}),
		RPCErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "rpc_errors_total",
			Help:        "Total number of RPC errors",
			ConstLabels: constLabels,
		}, []string{"method", "code"}),
		ChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "plagiarism_checks_total",
			Help: "Total number of plagiarism checks performed",
		}, []string{"severity"}),
		CheckDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "plagiarism_check_duration_seconds",
			Help:    "Duration of plagiarism checks in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		DocumentsIndexed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "documents_indexed_total",
			Help: "Total number of documents indexed",
		}, []string{"status"}),
		VectorQueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vector_queries_total",
			Help: "Total number of vector store queries",
		}, []string{"operation"}),
		VectorQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vector_query_duration_seconds",
			Help:    "Duration of vector store queries in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
	}

	registry.MustRegister(
		m.RPCRequestsTotal,
		m.RPCRequestDuration,
		m.RPCRequestsInFlight,
		m.RPCErrorsTotal,
		m.ChecksTotal,
		m.CheckDuration,
		m.DocumentsIndexed,
		m.VectorQueriesTotal,
		m.VectorQueryDuration,
	)

	return m
}

// ObserveRPC records one finished RPC.
func (m *Metrics) ObserveRPC(method, status string, duration time.Duration) {
	m.RPCRequestsTotal.WithLabelValues(method, status).Inc()
	m.RPCRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveCheck records a completed plagiarism check.
func (m *Metrics) ObserveCheck(severity string, duration time.Duration) {
	m.ChecksTotal.WithLabelValues(severity).Inc()
	m.CheckDuration.Observe(duration.Seconds())
}

// ObserveVectorQuery records one vector store operation.
func (m *Metrics) ObserveVectorQuery(operation string, duration time.Duration) {
	m.VectorQueriesTotal.WithLabelValues(operation).Inc()
	m.VectorQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Server serves /metrics and /health on its own port, off the RPC
// listener.
type Server struct {
	srv *http.Server
}

// NewServer builds the scrape endpoint for m on the given port.
func NewServer(m *Metrics, port int) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background until Stop.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.GetLogger().Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.GetLogger().Info("metrics server started", zap.String("addr", s.srv.Addr))
}

// Stop shuts the scrape endpoint down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
