// Package metrics exposes the pipeline counters on a private Prometheus
// registry. A nil *Registry is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg             *prometheus.Registry
	FetchTotal      *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	Validations     *prometheus.CounterVec
	Escalations     *prometheus.CounterVec
	Anomalies       *prometheus.CounterVec
	SearchDuration  *prometheus.HistogramVec
	CacheSuppressed *prometheus.CounterVec
	PriceUpdates    *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	fetchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "product_filter_fetch_total",
		Help: "Marketplace fetches by source and outcome.",
	}, []string{"source", "outcome"})
	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "product_filter_fetch_duration_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "product_filter_validations_total",
		Help: "Validation verdicts by category and reason.",
	}, []string{"category", "reason"})
	escalations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "product_filter_escalations_total",
	}, []string{"category"})
	anomalies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "product_filter_anomalies_total",
	}, []string{"category", "kind"})
	searchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "product_filter_search_duration_seconds",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"category"})
	suppressed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "product_filter_cache_suppressed_total",
	}, []string{"category"})
	priceUpdates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "product_filter_price_updates_total",
	}, []string{"category"})

	r.MustRegister(fetchTotal, fetchDuration, validations, escalations, anomalies, searchDuration, suppressed, priceUpdates)
	return &Registry{
		reg:             r,
		FetchTotal:      fetchTotal,
		FetchDuration:   fetchDuration,
		Validations:     validations,
		Escalations:     escalations,
		Anomalies:       anomalies,
		SearchDuration:  searchDuration,
		CacheSuppressed: suppressed,
		PriceUpdates:    priceUpdates,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// -----------------------------------------------------------------------------

func (r *Registry) ObserveFetch(source string, err error, took time.Duration) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.FetchTotal.WithLabelValues(source, outcome).Inc()
	r.FetchDuration.WithLabelValues(source).Observe(took.Seconds())
}

func (r *Registry) ObserveValidation(category, reason string) {
	if r == nil {
		return
	}
	r.Validations.WithLabelValues(category, reason).Inc()
}

func (r *Registry) ObserveEscalations(category string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.Escalations.WithLabelValues(category).Add(float64(n))
}

func (r *Registry) ObserveAnomaly(category, kind string) {
	if r == nil {
		return
	}
	r.Anomalies.WithLabelValues(category, kind).Inc()
}

func (r *Registry) ObserveSearch(category string, took time.Duration) {
	if r == nil {
		return
	}
	r.SearchDuration.WithLabelValues(category).Observe(took.Seconds())
}

func (r *Registry) ObserveSuppressed(category string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.CacheSuppressed.WithLabelValues(category).Add(float64(n))
}

func (r *Registry) ObservePriceUpdate(category string) {
	if r == nil {
		return
	}
	r.PriceUpdates.WithLabelValues(category).Inc()
}
