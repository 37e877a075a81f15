package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taxjar"

// Failure stages reported on SyncMetrics.Failures.
const (
	StageFetch   = "fetch"
	StageStore   = "store"
	StagePublish = "publish"
)

// SyncMetrics holds Prometheus metrics for the rate sync loop.
type SyncMetrics struct {
	RatesFetched    prometheus.Counter
	RatesSkipped    prometheus.Counter
	EventsPublished prometheus.Counter
	Failures        *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	LastSuccess     prometheus.Gauge
}

// NewSyncMetrics creates the sync metrics and registers them on reg.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	factory := promauto.With(reg)
	subsystem := "sync"

	return &SyncMetrics{
		RatesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rates_fetched_total",
			Help:      "Summary rates returned by the API",
		}),
		RatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rates_skipped_total",
			Help:      "Summary rates skipped because their fingerprint was unchanged",
		}),
		EventsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "events_published_total",
			Help:      "Rate events accepted by at least one publisher",
		}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "failures_total",
			Help:      "Sync failures by stage",
		}, []string{"stage"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "run_duration_seconds",
			Help:      "Duration of a full sync pass",
			Buckets:   prometheus.DefBuckets,
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last sync pass without errors",
		}),
	}
}

// ObserveRun records the duration of a pass and, when ok, its completion time.
func (m *SyncMetrics) ObserveRun(start time.Time, ok bool) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(time.Since(start).Seconds())
	if ok {
		m.LastSuccess.SetToCurrentTime()
	}
}

// Fail increments the failure counter for stage.
func (m *SyncMetrics) Fail(stage string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(stage).Inc()
}
