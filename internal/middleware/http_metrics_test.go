package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/state", "/state"},
		{"/state/config", "/state/config"},
		{"/state/active-scene", "/state/active-scene"},
		{"/scenes", "/scenes"},
		{"/scenes/a1b2", "/scenes/{id}"},
		{"/scenes/a1b2/duplicate", "/scenes/{id}/duplicate"},
		{"/scenes/a1b2/players", "/scenes/{id}/players"},
		{"/scenes/a1b2/mobs", "/scenes/{id}/mobs"},
		{"/scenes/a1b2/mobs/c3d4", "/scenes/{id}/mobs/{mobId}"},
		{"/scenes/a1b2/players/c3d4", "/scenes/{id}/players/{playerId}"},
		{"/scenes/a1b2/ships/c3d4", "/scenes/{id}/ships/{shipId}"},
		{"/scenes/a1b2/tracks/c3d4", "/scenes/{id}/tracks/{trackId}"},
		{"/players/by-name/Aria", "/players/by-name/{characterName}"},
		{"/players/by-token/eyJhbGc", "/players/by-token/{token}"},
		{"/presets/mobs", "/presets/{type}"},
		{"/presets/mobs/c3d4", "/presets/{type}/{id}"},
		{"/items", "/items"},
		{"/items/c3d4", "/items/{id}"},
		{"/assets/images", "/assets/images"},
		{"/assets/audio", "/assets/audio"},
		{"/assets/images/map.png", "/assets/{type}/{name}"},
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/unknown/route", "/unknown/route"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// counterValue extracts the value of a counter with the given label values.
func counterValue(t *testing.T, c *prometheus.CounterVec, labels prometheus.Labels) float64 {
	t.Helper()
	m := &dto.Metric{}
	counter, err := c.GetMetricWith(labels)
	if err != nil {
		t.Fatalf("GetMetricWith: %v", err)
	}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestHTTPMetrics_RecordsRequest(t *testing.T) {
	metrics := NewMetrics()
	handler := HTTPMetrics(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))

	r := httptest.NewRequest(http.MethodPatch, "/scenes/abc123/mobs/def456", strings.NewReader(`{"hpDelta":-3}`))
	r.Header.Set("Content-Length", "14")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	got := counterValue(t, metrics.httpRequestsTotal, prometheus.Labels{
		"method": "PATCH",
		"path":   "/scenes/{id}/mobs/{mobId}",
		"status": "200",
	})
	if got != 1 {
		t.Errorf("requests_total = %v, want 1", got)
	}
}

func TestHTTPMetrics_SkipsHealthEndpoints(t *testing.T) {
	metrics := NewMetrics()
	handler := HTTPMetrics(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/health", "/ready"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	got := counterValue(t, metrics.httpRequestsTotal, prometheus.Labels{
		"method": "GET",
		"path":   "/health",
		"status": "200",
	})
	if got != 0 {
		t.Errorf("health endpoint should not be recorded, got %v", got)
	}
}

func TestHTTPMetrics_CarriesContextThroughChain(t *testing.T) {
	metrics := NewMetrics()

	// Logging writer sits under the metrics writer. Error codes set by the
	// handler must reach it through carryContext forwarding.
	var sawCode string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		UpdateResponseContext(w, SetErrorCode(r.Context(), "not_found"))
		w.WriteHeader(http.StatusNotFound)
	})

	capture := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)
			if rw.ctx != nil {
				sawCode = GetErrorCode(rw.ctx)
			}
		})
	}

	handler := capture(HTTPMetrics(metrics)(inner))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/scenes/missing", nil))

	if sawCode != "not_found" {
		t.Errorf("error code did not propagate through metrics writer, got %q", sawCode)
	}
}

func TestMetrics_Register(t *testing.T) {
	metrics := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// Double registration should fail.
	if err := metrics.Register(reg); err == nil {
		t.Error("expected duplicate registration error")
	}
}
