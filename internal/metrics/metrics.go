// Package metrics exposes Prometheus instrumentation for request
// execution. Each Collector owns a private registry so several clients can
// coexist in one process.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for RequestsTotal.
const (
	OutcomeOK               = "ok"
	OutcomeStopped          = "stopped"
	OutcomeTransportError   = "transport_error"
	OutcomeTooManyRedirects = "too_many_redirects"
	OutcomeRedirectLoop     = "redirect_loop"
	OutcomeInvalid          = "invalid"
)

// Collector holds all Prometheus metrics for hopper. A nil *Collector is
// valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	HopsTotal       *prometheus.CounterVec
	RedirectsTotal  *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	RequestsActive  prometheus.Gauge
}

// New creates a Collector and registers its metrics.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hopper",
				Name:      "requests_total",
				Help:      "Executed requests by outcome",
			},
			[]string{"outcome"},
		),
		HopsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hopper",
				Name:      "hops_total",
				Help:      "HTTP exchanges by response status, redirects included",
			},
			[]string{"status"},
		),
		RedirectsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hopper",
				Name:      "redirects_total",
				Help:      "Redirect policy decisions by action",
			},
			[]string{"action"},
		),
		RequestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "hopper",
				Name:      "request_duration_seconds",
				Help:      "Time to a terminal response across all hops",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
			},
		),
		RequestsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "hopper",
				Name:      "requests_in_flight",
				Help:      "Requests currently executing",
			},
		),
	}
}

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Begin marks a request as in flight.
func (c *Collector) Begin() {
	if c == nil {
		return
	}
	c.RequestsActive.Inc()
}

// ObserveHop counts one exchange with the given status.
func (c *Collector) ObserveHop(status int) {
	if c == nil {
		return
	}
	c.HopsTotal.WithLabelValues(strconv.Itoa(status)).Inc()
}

// ObserveRedirect counts one policy decision.
func (c *Collector) ObserveRedirect(action string) {
	if c == nil {
		return
	}
	c.RedirectsTotal.WithLabelValues(action).Inc()
}

// End records a finished request started with Begin.
func (c *Collector) End(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.RequestsActive.Dec()
	c.RequestsTotal.WithLabelValues(outcome).Inc()
	c.RequestDuration.Observe(d.Seconds())
}

// WriteTextfile writes the current metrics in the text exposition format,
// for pickup by a node_exporter textfile collector. A nil Collector writes
// nothing.
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, c.registry)
}
