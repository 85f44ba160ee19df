package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// location update pipeline.
type Metrics struct {
	UpdatesTotal     *prometheus.CounterVec // labels: trigger={scheduled,forced}, outcome={live,cached,error}
	UpdateDuration   prometheus.Histogram
	CacheFallbacks   prometheus.Counter
	SchedulerRunning prometheus.Gauge
	LastSuccessTime  prometheus.Gauge

	// Position acquisition metrics.
	PositionRequests *prometheus.CounterVec // labels: outcome={success,timeout,denied,unavailable}

	// Geocoding metrics.
	GeocodeRequests *prometheus.CounterVec   // labels: provider={google,nominatim}, outcome={success,error,empty}
	GeocodeDuration *prometheus.HistogramVec // labels: provider={google,nominatim}
	GeocodeCache    *prometheus.CounterVec   // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		UpdatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "locationd",
			Name:      "updates_total",
			Help:      "Update pipeline runs by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		UpdateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "locationd",
			Name:      "update_duration_seconds",
			Help:      "Duration of a complete acquire-resolve-store pipeline run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 15, 30},
		}),
		CacheFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "locationd",
			Name:      "cache_fallback_total",
			Help:      "Pipeline runs served from the fresh snapshot cache.",
		}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "locationd",
			Name:      "scheduler_running",
			Help:      "1 when the update scheduler is active, 0 when stopped.",
		}),
		LastSuccessTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "locationd",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful update.",
		}),
		PositionRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "locationd",
			Name:      "position_requests_total",
			Help:      "Position fix attempts by outcome.",
		}, []string{"outcome"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "locationd",
			Name:      "geocode_requests_total",
			Help:      "Geocoding provider requests by provider and outcome.",
		}, []string{"provider", "outcome"}),
		GeocodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "locationd",
			Name:      "geocode_duration_seconds",
			Help:      "Geocoding provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "locationd",
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.UpdatesTotal,
		m.UpdateDuration,
		m.CacheFallbacks,
		m.SchedulerRunning,
		m.LastSuccessTime,
		m.PositionRequests,
		m.GeocodeRequests,
		m.GeocodeDuration,
		m.GeocodeCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		UpdatesTotal:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "locationd", Name: "updates_total"}, []string{"trigger", "outcome"}),
		UpdateDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "locationd", Name: "update_duration_seconds"}),
		CacheFallbacks:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "locationd", Name: "cache_fallback_total"}),
		SchedulerRunning: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "locationd", Name: "scheduler_running"}),
		LastSuccessTime:  prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "locationd", Name: "last_success_timestamp_seconds"}),
		PositionRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "locationd", Name: "position_requests_total"}, []string{"outcome"}),
		GeocodeRequests:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "locationd", Name: "geocode_requests_total"}, []string{"provider", "outcome"}),
		GeocodeDuration:  prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "locationd", Name: "geocode_duration_seconds"}, []string{"provider"}),
		GeocodeCache:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "locationd", Name: "geocode_cache_total"}, []string{"result"}),
	}
}
