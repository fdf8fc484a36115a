// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

// Package observability provides HTTP endpoints for metrics and health
// checks, plus the Prometheus metrics the plugin host records.
package observability

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"
)

// ReadinessChecker returns whether the host is ready to serve invocations.
type ReadinessChecker func() bool

// Metrics contains the Prometheus metrics recorded by the plugin host.
type Metrics struct {
	// LoadsTotal counts plugin load attempts by plugin and status.
	LoadsTotal *prometheus.CounterVec

	// InvocationsTotal counts boundary calls into plugin code by plugin,
	// operation (prompt, list_models) and status.
	InvocationsTotal *prometheus.CounterVec

	// InvocationSeconds observes boundary call durations.
	InvocationSeconds *prometheus.HistogramVec
}

// NewMetrics creates and registers the host metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptdeck_plugin_loads_total",
				Help: "Total number of plugin load attempts by plugin and status",
			},
			[]string{"plugin", "status"},
		),
		InvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "promptdeck_plugin_invocations_total",
				Help: "Total number of plugin invocations by plugin, operation and status",
			},
			[]string{"plugin", "operation", "status"},
		),
		InvocationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "promptdeck_plugin_invocation_seconds",
				Help:    "Duration of plugin invocations by plugin and operation",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms .. ~82s
			},
			[]string{"plugin", "operation"},
		),
	}

	reg.MustRegister(m.LoadsTotal)
	reg.MustRegister(m.InvocationsTotal)
	reg.MustRegister(m.InvocationSeconds)

	return m
}

// RecordLoad increments the load counter. Nil-safe so callers without
// metrics configured need no guard.
func (m *Metrics) RecordLoad(plugin, status string) {
	if m == nil {
		return
	}
	m.LoadsTotal.WithLabelValues(plugin, status).Inc()
}

// RecordInvocation increments the invocation counter and observes its
// duration. Nil-safe.
func (m *Metrics) RecordInvocation(plugin, operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.InvocationsTotal.WithLabelValues(plugin, operation, status).Inc()
	m.InvocationSeconds.WithLabelValues(plugin, operation).Observe(d.Seconds())
}

// Server provides HTTP endpoints for observability (metrics and health
// probes).
type Server struct {
	addr       string
	listener   net.Listener
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
	isReady    ReadinessChecker
	running    atomic.Bool
}

// NewServer creates a new observability server.
// addr is a "host:port" listen address, e.g. "127.0.0.1:9200".
func NewServer(addr string, readinessChecker ReadinessChecker) *Server {
	// Own registry to avoid polluting the global one.
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry),
		isReady:  readinessChecker,
	}
}

// Metrics returns the host metrics for recording application events.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Start begins serving observability endpoints. It returns an error
// channel that receives any error from the HTTP server after it starts;
// the channel is closed when the server stops gracefully.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.With("addr", s.addr).Wrap(err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/healthz/liveness", s.handleLiveness)
	mux.HandleFunc("/healthz/readiness", s.handleReadiness)

	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	slog.Info("observability server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts down the observability server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			// Restore running state so the server can be stopped again.
			s.running.Store(true)
			return oops.With("operation", "shutdown_observability_server").Wrap(err)
		}
	}

	slog.Info("observability server stopped")
	return nil
}

// Addr returns the address the server is listening on, or "" if not
// running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable
	w.Write([]byte("ok\n"))
}

func (s *Server) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.isReady != nil && !s.isReady() {
		w.WriteHeader(http.StatusServiceUnavailable)
		//nolint:errcheck // health check write error is acceptable
		w.Write([]byte("not ready\n"))
		return
	}
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // health check write error is acceptable
	w.Write([]byte("ok\n"))
}
