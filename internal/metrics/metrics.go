package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Login-link metrics

	LinksCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "authlink",
		Name:      "links_created_total",
		Help:      "Total login links created.",
	})

	LinksConsumedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authlink",
		Name:      "links_consumed_total",
		Help:      "Total login link consumption attempts, by outcome.",
	}, []string{"outcome"})

	ConsumeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "authlink",
		Name:      "consume_duration_seconds",
		Help:      "Duration of link consumption, lookup and verification included.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	})

	UsageCounterPurgedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "authlink",
		Name:      "usage_counter_purged_total",
		Help:      "Total expired usage-counter entries removed by the janitor.",
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "authlink",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authlink",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

// Consumption outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeInvalid = "invalid"
	OutcomeExpired = "expired"
	OutcomeError   = "error"
)

func Register() {
	prometheus.MustRegister(
		LinksCreatedTotal,
		LinksConsumedTotal,
		ConsumeDuration,
		UsageCounterPurgedTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

func NewServer(addr string, liveness, readiness http.HandlerFunc) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", liveness)
	mux.HandleFunc("/readyz", readiness)
	return &http.Server{Addr: addr, Handler: mux}
}
