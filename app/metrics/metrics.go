// Package metrics exposes pipeline counters on the Prometheus registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intelwatch_runs_total",
		Help: "Completed runs by terminal status.",
	}, []string{"status"})

	SourcesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intelwatch_sources_processed_total",
		Help: "Source tasks by outcome.",
	}, []string{"outcome"})

	ItemsClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intelwatch_items_classified_total",
		Help: "Documents by change-detection state.",
	}, []string{"state"})

	ReasoningCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intelwatch_reasoning_calls_total",
		Help: "Reasoning service attempts by result.",
	}, []string{"result"})

	EventsExtracted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intelwatch_events_extracted_total",
		Help: "Validated events by type.",
	}, []string{"type"})

	BriefDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intelwatch_brief_deliveries_total",
		Help: "Brief email deliveries by result.",
	}, []string{"result"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "intelwatch_run_duration_seconds",
		Help:    "Wall-clock duration of completed runs.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// Handler serves the registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
