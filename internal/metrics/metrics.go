// Package metrics exposes Prometheus instrumentation for the job
// scheduler and the lookup cache.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snooow1029/paper-master/internal/jobs"
)

// Metrics holds the collectors and implements jobs.Observer so the
// scheduler reports lifecycle transitions directly.
type Metrics struct {
	registry *prometheus.Registry

	jobsSubmitted *prometheus.CounterVec
	jobsFinished  *prometheus.CounterVec
	jobsRunning   prometheus.Gauge
	jobDuration   *prometheus.HistogramVec
}

// New creates and registers the collectors on a private registry, so
// multiple instances (e.g. in tests) never collide.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		jobsSubmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papermaster_jobs_submitted_total",
				Help: "Jobs accepted by the scheduler, by type",
			},
			[]string{"type"},
		),
		jobsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papermaster_jobs_finished_total",
				Help: "Jobs that reached a terminal status, by type and status",
			},
			[]string{"type", "status"},
		),
		jobsRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "papermaster_jobs_running",
				Help: "Jobs currently executing",
			},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "papermaster_job_duration_seconds",
				Help:    "Wall-clock job duration from start to terminal status",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"type"},
		),
	}

	m.registry.MustRegister(m.jobsSubmitted)
	m.registry.MustRegister(m.jobsFinished)
	m.registry.MustRegister(m.jobsRunning)
	m.registry.MustRegister(m.jobDuration)

	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// JobSubmitted implements jobs.Observer.
func (m *Metrics) JobSubmitted(jobType string) {
	m.jobsSubmitted.WithLabelValues(jobType).Inc()
}

// JobStarted implements jobs.Observer.
func (m *Metrics) JobStarted(jobType string) {
	m.jobsRunning.Inc()
}

// JobFinished implements jobs.Observer.
func (m *Metrics) JobFinished(jobType string, status jobs.Status, elapsed time.Duration) {
	m.jobsRunning.Dec()
	m.jobsFinished.WithLabelValues(jobType, string(status)).Inc()
	m.jobDuration.WithLabelValues(jobType).Observe(elapsed.Seconds())
}
