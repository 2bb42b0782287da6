package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hazard_fusion"

// Metrics holds the Prometheus counters and histograms for the fusion service.
type Metrics struct {
	Cycles           *prometheus.CounterVec // labels: outcome={success,error}
	CycleDuration    prometheus.Histogram
	ReportsFetched   prometheus.Counter
	MalformedReports prometheus.Counter

	Clusters        *prometheus.CounterVec // labels: outcome={processed,skipped}
	AlertsCreated   prometheus.Counter
	AlertsUpdated   prometheus.Counter
	ReportsVerified prometheus.Counter

	// Cache and outbound lookups.
	CacheLookups         *prometheus.CounterVec // labels: result={hit,miss}
	RegionLookups        *prometheus.CounterVec // labels: outcome={success,error,empty,circuit_open}
	RegionLookupDuration prometheus.Histogram
	AlertsPublished      *prometheus.CounterVec // labels: outcome={success,error}
}

func newMetrics() *Metrics {
	return &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Fusion cycles run, by outcome.",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a complete fusion cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ReportsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_fetched_total",
			Help:      "Reports read from the repository.",
		}),
		MalformedReports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_reports_total",
			Help:      "Pending reports excluded from clustering because of missing or invalid fields.",
		}),
		Clusters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clusters_total",
			Help:      "Clusters discovered, by whether they cleared the confidence gate.",
		}, []string{"outcome"}),
		AlertsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_created_total",
			Help:      "New alerts created.",
		}),
		AlertsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_updated_total",
			Help:      "Existing alerts strengthened by a merged cluster.",
		}),
		ReportsVerified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_verified_total",
			Help:      "Reports marked verified.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by result.",
		}, []string{"result"}),
		RegionLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_lookups_total",
			Help:      "Reverse geocoding lookups by outcome.",
		}, []string{"outcome"}),
		RegionLookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "region_lookup_duration_seconds",
			Help:      "Mapbox reverse geocoding request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		AlertsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_published_total",
			Help:      "Alert events published to subscribers, by outcome.",
		}, []string{"outcome"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Cycles,
		m.CycleDuration,
		m.ReportsFetched,
		m.MalformedReports,
		m.Clusters,
		m.AlertsCreated,
		m.AlertsUpdated,
		m.ReportsVerified,
		m.CacheLookups,
		m.RegionLookups,
		m.RegionLookupDuration,
		m.AlertsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid "already registered"
// panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
