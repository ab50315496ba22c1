// Package metrics exposes Prometheus metrics for record backends and the
// consistency errors of a records.Manager.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ruteri/record-store/interfaces"
	"github.com/ruteri/record-store/records"
)

// MetricsServer serves the metrics of its own registry on /metrics.
type MetricsServer struct {
	registry *prometheus.Registry
	recorder *Recorder
	srv      *http.Server
}

// New creates a metrics server listening on addr. Metric names are prefixed
// with namespace.
func New(namespace, addr string) (*MetricsServer, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}

	recorder, err := NewRecorder(namespace, registry)
	if err != nil {
		return nil, err
	}

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return &MetricsServer{
		registry: registry,
		recorder: recorder,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Recorder returns the recorder registered with the server.
func (s *MetricsServer) Recorder() *Recorder {
	return s.recorder
}

// Registry returns the server's registry.
func (s *MetricsServer) Registry() *prometheus.Registry {
	return s.registry
}

// Handler returns the HTTP handler serving /metrics.
func (s *MetricsServer) Handler() http.Handler {
	return s.srv.Handler
}

// Addr returns the address the server listens on.
func (s *MetricsServer) Addr() string {
	return s.srv.Addr
}

func (s *MetricsServer) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Recorder records backend operations and consistency errors.
type Recorder struct {
	operations  *prometheus.CounterVec
	durations   *prometheus.HistogramVec
	consistency *prometheus.CounterVec
}

// NewRecorder creates a recorder and registers its collectors with reg.
func NewRecorder(namespace string, reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "operations_total",
				Help:      "Total number of record backend operations",
			},
			[]string{"backend", "operation", "result"},
		),
		durations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "operation_duration_seconds",
				Help:      "Record backend operation duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"backend", "operation"},
		),
		consistency: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consistency_errors_total",
				Help:      "Mismatches and partial failures observed between local and remote backends",
			},
			[]string{"operation", "kind"},
		),
	}

	for _, c := range []prometheus.Collector{r.operations, r.durations, r.consistency} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveError counts err under operation if it is a mismatch or a partial
// failure. Other errors are ignored.
func (r *Recorder) ObserveError(operation string, err error) {
	switch {
	case err == nil:
	case errors.Is(err, records.ErrMismatch):
		r.consistency.WithLabelValues(operation, "mismatch").Inc()
	case errors.Is(err, records.ErrPartialFailure):
		r.consistency.WithLabelValues(operation, "partial_failure").Inc()
	}
}

// Instrument wraps backend so that every call is counted and timed.
// Path is forwarded when the backend stores plain files.
func (r *Recorder) Instrument(backend interfaces.RecordBackend) interfaces.RecordBackend {
	inner := &instrumentedBackend{next: backend, rec: r}
	if p, ok := backend.(pather); ok {
		return &instrumentedFileBackend{instrumentedBackend: inner, pather: p}
	}
	return inner
}

func (r *Recorder) observe(backend, operation string, start time.Time, err error) {
	r.operations.WithLabelValues(backend, operation, resultLabel(err)).Inc()
	r.durations.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, interfaces.ErrRecordNotFound):
		return "not_found"
	case errors.Is(err, interfaces.ErrRecordExists):
		return "exists"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
