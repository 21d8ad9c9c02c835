// Package metrics exposes pipeline counters on a private prometheus
// registry, optionally served over HTTP for long-lived follow runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jlif/jlif/internal/logging"
)

// Namespace for all metrics
const namespace = "jlif"

// Record kinds used as label values.
const (
	KindJSON = "json"
	KindText = "text"
)

// Collector provides a central place for all pipeline metrics. All observe
// methods are safe to call on a nil receiver, so the hot path needs no
// conditional wiring when metrics are disabled.
type Collector struct {
	LinesRead         prometheus.Counter
	RecordsEmitted    *prometheus.CounterVec
	RecordsSuppressed prometheus.Counter
	BufferOverflows   prometheus.Counter
	LinesDiscarded    prometheus.Counter
	BufferSize        prometheus.Gauge

	registry *prometheus.Registry
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{registry: registry}

	c.LinesRead = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "input",
		Name:      "lines_read_total",
		Help:      "Total number of input lines consumed",
	})
	c.RecordsEmitted = promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "output",
		Name:      "records_emitted_total",
		Help:      "Total number of records written to the sink by kind",
	}, []string{"kind"})
	c.RecordsSuppressed = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "output",
		Name:      "records_suppressed_total",
		Help:      "Total number of records suppressed by the filter",
	})
	c.BufferOverflows = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "buffer",
		Name:      "overflows_total",
		Help:      "Total number of buffer overflow drain cycles",
	})
	c.LinesDiscarded = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "buffer",
		Name:      "lines_discarded_total",
		Help:      "Total number of buffered lines discarded at end of stream",
	})
	c.BufferSize = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "buffer",
		Name:      "size_lines",
		Help:      "Number of lines currently held in the pending buffer",
	})

	return c
}

// Registry returns the private registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveLine counts one consumed input line.
func (c *Collector) ObserveLine() {
	if c == nil {
		return
	}
	c.LinesRead.Inc()
}

// ObserveEmitted counts one record written to the sink.
func (c *Collector) ObserveEmitted(kind string) {
	if c == nil {
		return
	}
	c.RecordsEmitted.WithLabelValues(kind).Inc()
}

// ObserveSuppressed counts one record suppressed by the filter.
func (c *Collector) ObserveSuppressed() {
	if c == nil {
		return
	}
	c.RecordsSuppressed.Inc()
}

// ObserveOverflow counts one overflow drain cycle.
func (c *Collector) ObserveOverflow() {
	if c == nil {
		return
	}
	c.BufferOverflows.Inc()
}

// ObserveDiscarded counts lines dropped at end of stream.
func (c *Collector) ObserveDiscarded(n int) {
	if c == nil || n == 0 {
		return
	}
	c.LinesDiscarded.Add(float64(n))
}

// SetBufferSize records the current pending-buffer depth.
func (c *Collector) SetBufferSize(n int) {
	if c == nil {
		return
	}
	c.BufferSize.Set(float64(n))
}

// Serve exposes /metrics and /healthz on addr in the background. The caller
// shuts the returned server down.
func (c *Collector) Serve(addr string, logger *logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()
	return srv
}
