package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	if captured == "" {
		t.Fatal("expected request ID in context")
	}
	if _, err := uuid.Parse(captured); err != nil {
		t.Errorf("generated request ID is not a UUID: %q", captured)
	}
	if got := rec.Header().Get(RequestIDHeader); got != captured {
		t.Errorf("response header %q does not match context value %q", got, captured)
	}
}

func TestRequestID_ReusesIncomingHeader(t *testing.T) {
	var captured string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = GetRequestID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/state", nil)
	r.Header.Set(RequestIDHeader, "gm-client-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if captured != "gm-client-42" {
		t.Errorf("got %q, want incoming header value", captured)
	}
	if got := rec.Header().Get(RequestIDHeader); got != "gm-client-42" {
		t.Errorf("response header = %q, want echoed value", got)
	}
}

func TestGetRequestID_EmptyContext(t *testing.T) {
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}
