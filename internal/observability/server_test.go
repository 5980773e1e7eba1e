package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"ai-script-adherence-service/internal/observability/metrics"
)

func TestMux_Health(t *testing.T) {
	mux := newMux(prometheus.NewRegistry(), nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("unexpected healthz response: %d %q", rec.Code, rec.Body.String())
	}
}

func TestMux_Readiness(t *testing.T) {
	ready := false
	mux := newMux(prometheus.NewRegistry(), func() bool { return ready })

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before ready, got %d", rec.Code)
	}

	ready = true
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 when ready, got %d", rec.Code)
	}
}

func TestMux_MetricsFromRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.RecordFragmentCorrected()

	mux := newMux(reg, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "ai_script_adherence_fragments_corrected_total 1") {
		t.Errorf("expected fragments counter in metrics output")
	}
}

func TestHTTPMiddleware_UsesRoutePattern(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(HTTPMiddleware(m))
	r.Post("/v1/evaluations/{topic}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/evaluations/unknown", nil))

	got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodPost, "/v1/evaluations/{topic}", "404"))
	if got != 1 {
		t.Errorf("expected request counted under route pattern, got %v", got)
	}
}
