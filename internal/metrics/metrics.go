// Package metrics provides Prometheus metrics for the crawl pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// MetricsNamespace is the namespace for all crawler metrics.
	MetricsNamespace = "eventcrawl"
)

// Metrics holds all Prometheus metrics for the crawler.
type Metrics struct {
	// Target metrics
	TargetsVisitedTotal *prometheus.CounterVec
	TargetsSweptTotal   *prometheus.CounterVec

	// Event metrics
	EventsIngestedTotal  *prometheus.CounterVec
	EventsRefreshedTotal *prometheus.CounterVec
	RejectionsTotal      *prometheus.CounterVec

	// Error containment metrics
	CapabilityFailuresTotal *prometheus.CounterVec
	CapabilityAbortsTotal   *prometheus.CounterVec

	// Run metrics
	RunsTotal          *prometheus.CounterVec
	RunDurationSeconds prometheus.Histogram
}

// NewMetrics creates and registers all crawler metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		TargetsVisitedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Name:      "targets_visited_total",
				Help:      "Total number of targets visited",
			},
			[]string{"city", "kind"},
		),
		TargetsSweptTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Name:      "targets_swept_total",
				Help:      "Total number of targets expired by the sweep",
			},
			[]string{"city"},
		),
		EventsIngestedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Name:      "events_ingested_total",
				Help:      "Total number of events ingested into the catalog",
			},
			[]string{"city"},
		),
		EventsRefreshedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Name:      "events_refreshed_total",
				Help:      "Total number of catalog events refreshed from revisits",
			},
			[]string{"city"},
		),
		RejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Name:      "rejections_total",
				Help:      "Total number of candidate events rejected by classification",
			},
			[]string{"city", "reason"},
		),
		CapabilityFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Name:      "capability_failures_total",
				Help:      "Total number of scraper capability failures",
			},
			[]string{"capability"},
		),
		CapabilityAbortsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Name:      "capability_aborts_total",
				Help:      "Total number of city cycles aborted by a capability threshold breach",
			},
			[]string{"capability"},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: MetricsNamespace,
				Name:      "runs_total",
				Help:      "Total number of crawl runs",
			},
			[]string{"status"},
		),
		RunDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: MetricsNamespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of complete crawl runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~2.3h
			},
		),
	}
}

// RecordTargetVisited records a visited target.
func (m *Metrics) RecordTargetVisited(city, kind string) {
	m.TargetsVisitedTotal.WithLabelValues(city, kind).Inc()
}

// RecordTargetsSwept records targets expired by a sweep.
func (m *Metrics) RecordTargetsSwept(city string, count int64) {
	m.TargetsSweptTotal.WithLabelValues(city).Add(float64(count))
}

// RecordEventIngested records a new catalog event.
func (m *Metrics) RecordEventIngested(city string) {
	m.EventsIngestedTotal.WithLabelValues(city).Inc()
}

// RecordEventRefreshed records a catalog event updated from a revisit.
func (m *Metrics) RecordEventRefreshed(city string) {
	m.EventsRefreshedTotal.WithLabelValues(city).Inc()
}

// RecordRejection records a classification rejection.
func (m *Metrics) RecordRejection(city, reason string) {
	m.RejectionsTotal.WithLabelValues(city, reason).Inc()
}

// RecordCapabilityFailure records a scraper capability failure.
func (m *Metrics) RecordCapabilityFailure(capability string) {
	m.CapabilityFailuresTotal.WithLabelValues(capability).Inc()
}

// RecordCapabilityAbort records a cycle aborted by a threshold breach.
func (m *Metrics) RecordCapabilityAbort(capability string) {
	m.CapabilityAbortsTotal.WithLabelValues(capability).Inc()
}

// RecordRun records a completed crawl run.
func (m *Metrics) RecordRun(failed bool, durationSeconds float64) {
	status := "success"
	if failed {
		status = "failure"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDurationSeconds.Observe(durationSeconds)
}
