// Package metrics defines the Prometheus metrics for the dashboard service.
//
// Everything is registered with the default registry and served on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
)

var (
	// PollsTotal counts dashboard polls by result.
	PollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherdash_polls_total",
			Help: "Dashboard polls of the alerts endpoint by result.",
		},
		[]string{"result"},
	)

	// ActiveAlerts is the size of the latest snapshot.
	ActiveAlerts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "weatherdash_active_alerts",
			Help: "Alerts in the latest snapshot by kind.",
		},
		[]string{"kind"},
	)

	// NewAlertsTotal counts identities seen for the first time (or again
	// after disappearing).
	NewAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherdash_new_alerts_total",
			Help: "Alert identities that appeared in a poll, by kind.",
		},
		[]string{"kind"},
	)

	WarningSoundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherdash_warning_sounds_total",
			Help: "Warning sounds triggered.",
		},
	)

	// UpstreamFetchSeconds times outbound fetches: NWS endpoints and the
	// dashboard poll.
	UpstreamFetchSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherdash_upstream_fetch_duration_seconds",
			Help:    "Duration of outbound alert fetches in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"endpoint", "result"},
	)

	ZoneCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatherdash_zone_cache_entries",
			Help: "Forecast zones held in the geometry cache, failed lookups included.",
		},
	)

	StreamDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherdash_stream_dropped_total",
			Help: "Stream events skipped because a subscriber buffer was full.",
		},
	)

	HistoryDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherdash_history_dropped_total",
			Help: "Alert history events dropped because the writer queue was full.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		PollsTotal,
		ActiveAlerts,
		NewAlertsTotal,
		WarningSoundsTotal,
		UpstreamFetchSeconds,
		ZoneCacheEntries,
		StreamDroppedTotal,
		HistoryDroppedTotal,
	)
}

func RecordPoll(result string) {
	PollsTotal.WithLabelValues(result).Inc()
}

// RecordSnapshot updates gauges and counters after a successful poll.
func RecordSnapshot(total, polygons, warnings, newPolygons, newWarnings int) {
	ActiveAlerts.WithLabelValues("all").Set(float64(total))
	ActiveAlerts.WithLabelValues("polygon").Set(float64(polygons))
	ActiveAlerts.WithLabelValues("warning").Set(float64(warnings))
	NewAlertsTotal.WithLabelValues("polygon").Add(float64(newPolygons))
	NewAlertsTotal.WithLabelValues("warning").Add(float64(newWarnings))
}

func RecordUpstreamFetch(endpoint string, d time.Duration, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	UpstreamFetchSeconds.WithLabelValues(endpoint, result).Observe(d.Seconds())
}
