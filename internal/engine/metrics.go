package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: время запроса к сайту (включая ретраи)
	SiteQueryDuration *prometheus.HistogramVec

	// Errors: деградации сайтов по причинам
	SiteQueryFailures *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker сайта (0 - closed, 1 - half-open, 2 - open)
	CircuitBreakerState *prometheus.GaugeVec

	// Reachability: 1 если сайт online по последней проверке связности
	SiteOnline *prometheus.GaugeVec

	// Traffic: ответы виджета по режимам
	OverviewResponses *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		SiteQueryDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "overview_site_query_duration_seconds",
			Help:    "Histogram of per-site query latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"site_id", "status"}),

		SiteQueryFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "overview_site_query_failures_total",
			Help: "Total number of failed site queries by reason.",
		}, []string{"site_id", "reason"}), // reason: timeout, circuit_open, rate_limit, backend

		CircuitBreakerState: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "overview_circuit_breaker_state",
			Help: "Current state of the per-site circuit breaker (0=closed, 1=half-open, 2=open).",
		}, []string{"site_id"}),

		SiteOnline: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "overview_site_online",
			Help: "Whether the site was online at the last connectivity check.",
		}, []string{"site_id"}),

		OverviewResponses: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "overview_responses_total",
			Help: "Total number of generated overview responses.",
		}, []string{"render_mode", "status"}),
	}
}
