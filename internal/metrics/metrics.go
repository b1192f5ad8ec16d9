// Package metrics defines the Prometheus collectors for the webhook and
// catalog sync paths.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application's Prometheus collectors. A nil *Metrics is
// valid and records nothing, so tests can pass nil.
type Metrics struct {
	webhookEventsTotal  *prometheus.CounterVec
	webhookDuration     *prometheus.HistogramVec
	catalogSyncTotal    *prometheus.CounterVec
	catalogSyncDuration prometheus.Histogram
}

// New registers the collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		webhookEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sacredflow",
			Subsystem: "webhooks",
			Name:      "events_total",
			Help:      "Total number of Square webhook deliveries by outcome.",
		}, []string{"status", "duplicate"}),

		webhookDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sacredflow",
			Subsystem: "webhooks",
			Name:      "processing_duration_seconds",
			Help:      "Duration of webhook intake processing in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),

		catalogSyncTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sacredflow",
			Subsystem: "catalog",
			Name:      "sync_total",
			Help:      "Total number of catalog sync passes by result.",
		}, []string{"result"}),

		catalogSyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sacredflow",
			Subsystem: "catalog",
			Name:      "sync_duration_seconds",
			Help:      "Duration of catalog sync passes in seconds.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// RecordWebhookEvent records one webhook delivery outcome.
func (m *Metrics) RecordWebhookEvent(status string, duplicate bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	dup := "false"
	if duplicate {
		dup = "true"
	}
	m.webhookEventsTotal.WithLabelValues(status, dup).Inc()
	m.webhookDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

// RecordCatalogSync records one sync pass.
func (m *Metrics) RecordCatalogSync(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.catalogSyncTotal.WithLabelValues(result).Inc()
	m.catalogSyncDuration.Observe(elapsed.Seconds())
}
