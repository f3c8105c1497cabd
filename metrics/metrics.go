package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SyncMetrics tracks the sync pipeline. The zero value is usable and
// records nothing until Register is called, which keeps tests and
// metric-less wiring free of a registry.
type SyncMetrics struct {
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	degradedFetches *prometheus.CounterVec
	lastSuccess     prometheus.Gauge

	registerOnce sync.Once
}

// Register registers the sync metrics with the given registry. If registry
// is nil, this is a no-op. Subsequent calls after the first are no-ops.
func (m *SyncMetrics) Register(registry prometheus.Registerer) {
	if registry == nil {
		return
	}

	m.registerOnce.Do(func() {
		factory := promauto.With(registry)

		m.runsTotal = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ratingboard_sync_runs_total",
			Help: "Total number of sync pipeline runs by outcome",
		}, []string{"status"})

		m.runDuration = factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ratingboard_sync_run_duration_seconds",
			Help:    "Wall-clock duration of sync pipeline runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		})

		m.degradedFetches = factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ratingboard_sync_degraded_fetches_total",
			Help: "Rating fetches that degraded to an empty history because the provider response lacked the expected gzip marker",
		}, []string{"category"})

		m.lastSuccess = factory.NewGauge(prometheus.GaugeOpts{
			Name: "ratingboard_sync_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful sync run",
		})
	})
}

func (m *SyncMetrics) ObserveRun(success bool, duration time.Duration) {
	if m == nil || m.runsTotal == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDuration.Observe(duration.Seconds())
	if success {
		m.lastSuccess.SetToCurrentTime()
	}
}

func (m *SyncMetrics) DegradedFetchInc(category string) {
	if m == nil || m.degradedFetches == nil {
		return
	}
	m.degradedFetches.WithLabelValues(category).Inc()
}
