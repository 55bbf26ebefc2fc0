package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func newCORSHandler(cfg CORSConfig) http.Handler {
	return CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORS_DisabledWhenNoOrigins(t *testing.T) {
	handler := newCORSHandler(CORSConfig{})

	r := httptest.NewRequest(http.MethodGet, "/state", nil)
	r.Header.Set("Origin", "http://192.168.1.10:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Errorf("got status %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS headers, got Allow-Origin %q", got)
	}
}

func TestCORS_AllowsListedOrigin(t *testing.T) {
	cfg := DefaultCORSConfig([]string{"http://192.168.1.10:5173"})
	handler := newCORSHandler(cfg)

	r := httptest.NewRequest(http.MethodGet, "/state", nil)
	r.Header.Set("Origin", "http://192.168.1.10:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Errorf("got status %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://192.168.1.10:5173" {
		t.Errorf("Allow-Origin = %q", got)
	}
}

func TestCORS_RejectsUnlistedOrigin(t *testing.T) {
	cfg := DefaultCORSConfig([]string{"http://192.168.1.10:5173"})
	handler := newCORSHandler(cfg)

	r := httptest.NewRequest(http.MethodGet, "/state", nil)
	r.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusForbidden {
		t.Errorf("got status %d, want 403", rec.Code)
	}
}

func TestCORS_SameOriginRequestPasses(t *testing.T) {
	cfg := DefaultCORSConfig([]string{"http://192.168.1.10:5173"})
	handler := newCORSHandler(cfg)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("got status %d, want 200", rec.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	cfg := DefaultCORSConfig([]string{"http://192.168.1.10:5173"})
	handler := newCORSHandler(cfg)

	r := httptest.NewRequest(http.MethodOptions, "/scenes", nil)
	r.Header.Set("Origin", "http://192.168.1.10:5173")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusNoContent {
		t.Errorf("got status %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("expected Allow-Methods header on preflight")
	}
	if got := rec.Header().Get("Access-Control-Max-Age"); got != "300" {
		t.Errorf("Max-Age = %q, want 300", got)
	}
}
