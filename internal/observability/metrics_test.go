package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestMiddlewareRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewHTTPCollector(reg)
	if err != nil {
		t.Fatalf("NewHTTPCollector: %v", err)
	}

	r := chi.NewRouter()
	r.Use(collector.Middleware)
	r.Get("/v1/groundstations/{id}/slots", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/groundstations/gs-1/slots", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if got := testutil.ToFloat64(collector.Requests.WithLabelValues("GET", "/v1/groundstations/{id}/slots", "200")); got != 1 {
		t.Fatalf("api_requests_total = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "api_request_duration_seconds", map[string]string{
		"method": "GET",
		"route":  "/v1/groundstations/{id}/slots",
	}); count != 1 {
		t.Fatalf("api_request_duration_seconds sample_count = %d, want 1", count)
	}
}

func TestMiddlewareRecordsErrorCode(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := NewHTTPCollector(reg)
	if err != nil {
		t.Fatalf("NewHTTPCollector: %v", err)
	}

	r := chi.NewRouter()
	r.Use(collector.Middleware)
	r.Post("/v1/rules", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/rules", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if got := testutil.ToFloat64(collector.Requests.WithLabelValues("POST", "/v1/rules", "400")); got != 1 {
		t.Fatalf("api_requests_total error label = %v, want 1", got)
	}
}

func TestMetricsHandlerExposesEngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpCollector, err := NewHTTPCollector(reg)
	if err != nil {
		t.Fatalf("NewHTTPCollector: %v", err)
	}
	engine, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("NewEngineCollector: %v", err)
	}

	engine.RecomputeObserved("gs-1", 25*time.Millisecond)
	engine.SlotsCreated(4)
	engine.SlotsRetired(2)
	engine.SetInventory(7, 3)
	httpCollector.Requests.WithLabelValues("GET", "/v1/rules", "200").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	httpCollector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	for _, metric := range []string{
		"api_requests_total",
		"engine_recompute_duration_seconds",
		"engine_operational_slots_created_total",
		"engine_operational_slots_retired_total",
		"engine_availability_slots",
		"engine_compatibility_pairs",
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("expected %q in /metrics output", metric)
		}
	}
	if got := testutil.ToFloat64(engine.SlotsCreatedTotal); got != 4 {
		t.Fatalf("slots created counter = %v, want 4", got)
	}
	if got := testutil.ToFloat64(engine.SlotsRetiredTotal); got != 2 {
		t.Fatalf("slots retired counter = %v, want 2", got)
	}
}

func TestDuplicateRegistrationIsReused(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewEngineCollector(reg); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	second, err := NewEngineCollector(reg)
	if err != nil {
		t.Fatalf("second registration must reuse collectors: %v", err)
	}
	second.SlotsCreated(1)
	if got := testutil.ToFloat64(second.SlotsCreatedTotal); got != 1 {
		t.Fatalf("reused counter = %v, want 1", got)
	}
}

func histogramSampleCount(t *testing.T, gatherer prometheus.Gatherer, name string, labels map[string]string) uint64 {
	t.Helper()

	metrics, err := gatherer.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			if matchLabels(m.GetLabel(), labels) && m.GetHistogram() != nil {
				return m.GetHistogram().GetSampleCount()
			}
		}
	}
	return 0
}

func matchLabels(got []*dto.LabelPair, want map[string]string) bool {
	if len(got) < len(want) {
		return false
	}
	matched := 0
	for _, lp := range got {
		if val, ok := want[lp.GetName()]; ok && val == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}
