package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard service.
type Metrics struct {
	LoginAttempts  *prometheus.CounterVec // labels: outcome={success,invalid,lockout}
	ActiveSessions prometheus.Gauge

	// Cache metrics.
	CacheOps       *prometheus.CounterVec // labels: namespace={model,data}, op={save,load,cleanup,clear}, result={ok,miss,expired,error}
	CacheSizeBytes prometheus.Gauge

	// Weather provider metrics.
	WeatherFetches       *prometheus.CounterVec // labels: outcome={success,error}
	WeatherFetchDuration prometheus.Histogram
	WeatherMemoization   *prometheus.CounterVec // labels: result={hit,miss}

	// Risk and alerting metrics.
	RiskAssessments *prometheus.CounterVec // labels: level={low,moderate,high,critical}
	AlertsPublished prometheus.Counter
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_dashboard",
			Name:      "active_sessions",
			Help:      "Number of authenticated sessions currently held in the session store.",
		}),
		CacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "cache_operations_total",
			Help:      "Cache operations by namespace, operation, and result.",
		}, []string{"namespace", "op", "result"}),
		CacheSizeBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_dashboard",
			Name:      "cache_size_bytes",
			Help:      "Total size of live cache entries as of the last stats scan.",
		}),
		WeatherFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "weather_fetches_total",
			Help:      "Upstream weather API fetches by outcome.",
		}, []string{"outcome"}),
		WeatherFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_dashboard",
			Name:      "weather_fetch_duration_seconds",
			Help:      "Duration of a complete geocode plus current-conditions fetch.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		WeatherMemoization: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "weather_memoization_total",
			Help:      "Weather memoization lookups by result.",
		}, []string{"result"}),
		RiskAssessments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "risk_assessments_total",
			Help:      "Storm risk assessments by level.",
		}, []string{"level"}),
		AlertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "alerts_published_total",
			Help:      "Storm alerts published to the alert topic.",
		}),
	}

	prometheus.MustRegister(
		m.LoginAttempts,
		m.ActiveSessions,
		m.CacheOps,
		m.CacheSizeBytes,
		m.WeatherFetches,
		m.WeatherFetchDuration,
		m.WeatherMemoization,
		m.RiskAssessments,
		m.AlertsPublished,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		LoginAttempts:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_dashboard", Name: "login_attempts_total"}, []string{"outcome"}),
		ActiveSessions:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_dashboard", Name: "active_sessions"}),
		CacheOps:             prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_dashboard", Name: "cache_operations_total"}, []string{"namespace", "op", "result"}),
		CacheSizeBytes:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "weather_dashboard", Name: "cache_size_bytes"}),
		WeatherFetches:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_dashboard", Name: "weather_fetches_total"}, []string{"outcome"}),
		WeatherFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "weather_dashboard", Name: "weather_fetch_duration_seconds"}),
		WeatherMemoization:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_dashboard", Name: "weather_memoization_total"}, []string{"result"}),
		RiskAssessments:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "weather_dashboard", Name: "risk_assessments_total"}, []string{"level"}),
		AlertsPublished:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "weather_dashboard", Name: "alerts_published_total"}),
	}
}
