package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCounters(t *testing.T) {
	r := NewRegistry()

	r.ObserveFetch("wb", nil, time.Second)
	r.ObserveFetch("wb", errors.New("timeout"), time.Second)
	r.ObserveFetch("wb", nil, time.Second)
	r.ObserveValidation("videocards", "accessory")
	r.ObserveEscalations("videocards", 3)
	r.ObserveEscalations("videocards", 0)
	r.ObserveSuppressed("videocards", 2)

	if got := testutil.ToFloat64(r.FetchTotal.WithLabelValues("wb", "ok")); got != 2 {
		t.Errorf("fetch ok = %v; want 2", got)
	}
	if got := testutil.ToFloat64(r.FetchTotal.WithLabelValues("wb", "error")); got != 1 {
		t.Errorf("fetch error = %v; want 1", got)
	}
	if got := testutil.ToFloat64(r.Validations.WithLabelValues("videocards", "accessory")); got != 1 {
		t.Errorf("validations = %v; want 1", got)
	}
	if got := testutil.ToFloat64(r.Escalations.WithLabelValues("videocards")); got != 3 {
		t.Errorf("escalations = %v; want 3", got)
	}
	if got := testutil.ToFloat64(r.CacheSuppressed.WithLabelValues("videocards")); got != 2 {
		t.Errorf("suppressed = %v; want 2", got)
	}
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	r.ObserveFetch("wb", nil, time.Second)
	r.ObserveValidation("c", "r")
	r.ObserveEscalations("c", 1)
	r.ObserveAnomaly("c", "zscore")
	r.ObserveSearch("c", time.Second)
	r.ObserveSuppressed("c", 1)
	r.ObservePriceUpdate("c")
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRegistry()
	r.ObserveAnomaly("processors", "iqr")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), `product_filter_anomalies_total{category="processors",kind="iqr"} 1`) {
		t.Errorf("metrics output missing anomaly counter:\n%s", rec.Body.String())
	}
}
