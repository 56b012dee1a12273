// Package metrics exposes Prometheus instrumentation for relationship
// extraction. Collectors register with the default registry and are served
// by the web package on /metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ritzau/relgraph/pkg/tracker"
)

// Fetch outcomes used as the "result" label.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Extraction modes used as the "mode" label.
const (
	ModeTraversal = "traversal"
	ModeBulk      = "bulk"
)

var (
	// fetchesTotal counts issue fetches by outcome.
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relgraph",
		Subsystem: "extract",
		Name:      "fetches_total",
		Help:      "Issue fetches performed during extraction, by result",
	}, []string{"result"})

	extractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "relgraph",
		Subsystem: "extract",
		Name:      "duration_seconds",
		Help:      "Wall time of a complete extraction",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"mode"})

	// issuesExtracted records the size of each returned graph.
	issuesExtracted = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "relgraph",
		Subsystem: "extract",
		Name:      "issues",
		Help:      "Number of issues in each extracted graph",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"mode"})
)

// FetchResult classifies a fetch error into a result label.
func FetchResult(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, tracker.ErrNotFound):
		return ResultNotFound
	default:
		return ResultError
	}
}

// RecordFetch counts one fetch outcome.
func RecordFetch(err error) {
	fetchesTotal.WithLabelValues(FetchResult(err)).Inc()
}

// RecordExtraction observes one finished extraction.
func RecordExtraction(mode string, elapsed time.Duration, issues int) {
	extractionDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	issuesExtracted.WithLabelValues(mode).Observe(float64(issues))
}

var (
	sseSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relgraph",
		Subsystem: "sse",
		Name:      "subscribers",
		Help:      "Open server-sent event subscriptions, by topic",
	}, []string{"topic"})

	ssePublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relgraph",
		Subsystem: "sse",
		Name:      "events_published_total",
		Help:      "Events published, by topic",
	}, []string{"topic"})

	// sseDropped counts events not delivered because a subscriber lagged.
	sseDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relgraph",
		Subsystem: "sse",
		Name:      "events_dropped_total",
		Help:      "Events dropped for slow subscribers, by topic",
	}, []string{"topic"})
)

// SubscriberAdded counts a new subscription to topic.
func SubscriberAdded(topic string) { sseSubscribers.WithLabelValues(topic).Inc() }

// SubscriberRemoved counts a closed subscription to topic.
func SubscriberRemoved(topic string) { sseSubscribers.WithLabelValues(topic).Dec() }

// EventPublished counts one published event.
func EventPublished(topic string) { ssePublished.WithLabelValues(topic).Inc() }

// EventDropped counts one event a subscriber did not receive.
func EventDropped(topic string) { sseDropped.WithLabelValues(topic).Inc() }
