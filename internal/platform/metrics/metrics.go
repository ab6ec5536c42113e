package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the worker's prometheus collectors behind a private registry
// so tests can construct isolated instances.
type Metrics struct {
	registry *prometheus.Registry

	IngestionRuns       prometheus.Counter
	TransitionRuns      prometheus.Counter
	MatchesTransitioned prometheus.Counter
	MatchesRetried      prometheus.Counter
	MatchesSkipped      prometheus.Counter
	StatFailures        prometheus.Counter
	UpstreamErrors      prometheus.Counter
	TransitionDuration  prometheus.Histogram
}

func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(registry)
	constLabels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		registry: registry,
		IngestionRuns: factory.NewCounter(prometheus.CounterOpts{
			Name:        "footystats_ingestion_runs_total",
			Help:        "Completed ingestion pipeline runs.",
			ConstLabels: constLabels,
		}),
		TransitionRuns: factory.NewCounter(prometheus.CounterOpts{
			Name:        "footystats_transition_runs_total",
			Help:        "Completed future-to-past transition runs.",
			ConstLabels: constLabels,
		}),
		MatchesTransitioned: factory.NewCounter(prometheus.CounterOpts{
			Name:        "footystats_matches_transitioned_total",
			Help:        "Matches moved from the future to the past store.",
			ConstLabels: constLabels,
		}),
		MatchesRetried: factory.NewCounter(prometheus.CounterOpts{
			Name:        "footystats_matches_retried_total",
			Help:        "Due matches left in the future store for the next run.",
			ConstLabels: constLabels,
		}),
		MatchesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name:        "footystats_matches_skipped_total",
			Help:        "Due matches skipped because of missing league or team data.",
			ConstLabels: constLabels,
		}),
		StatFailures: factory.NewCounter(prometheus.CounterOpts{
			Name:        "footystats_statistic_failures_total",
			Help:        "Per-match statistic recomputations that failed and were isolated.",
			ConstLabels: constLabels,
		}),
		UpstreamErrors: factory.NewCounter(prometheus.CounterOpts{
			Name:        "footystats_upstream_errors_total",
			Help:        "Failed requests against the football data provider.",
			ConstLabels: constLabels,
		}),
		TransitionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "footystats_transition_run_duration_seconds",
			Help:        "Wall-clock duration of a transition run.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
