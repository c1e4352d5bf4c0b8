// Package metrics defines the Prometheus collectors the scheduler reports to.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector groups the scheduler's collectors. A nil *Collector is valid and
// records nothing.
type Collector struct {
	submitted *prometheus.CounterVec
	finished  *prometheus.CounterVec
	inFlight  prometheus.Gauge
	duration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		submitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bogflow_submissions_total",
				Help: "Total number of submitted signatures and chains.",
			},
			[]string{"work"},
		),
		finished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bogflow_invocations_finished_total",
				Help: "Total number of service invocations that reached a terminal state.",
			},
			[]string{"service", "state"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "bogflow_handles_in_flight",
				Help: "Number of submitted handles that are still pending.",
			},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bogflow_invocation_duration_seconds",
				Help:    "Service invocation duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"service"},
		),
	}
	reg.MustRegister(c.submitted, c.finished, c.inFlight, c.duration)
	return c
}

// Submitted records a submission and marks its handle as in flight.
func (c *Collector) Submitted(work string) {
	if c == nil {
		return
	}
	c.submitted.WithLabelValues(work).Inc()
	c.inFlight.Inc()
}

// HandleDone marks a handle as no longer in flight.
func (c *Collector) HandleDone() {
	if c == nil {
		return
	}
	c.inFlight.Dec()
}

// Invoked records one finished service invocation.
func (c *Collector) Invoked(service, state string, d time.Duration) {
	if c == nil {
		return
	}
	c.finished.WithLabelValues(service, state).Inc()
	c.duration.WithLabelValues(service).Observe(d.Seconds())
}
