package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// normalizePath converts paths with dynamic segments to route patterns to
// prevent cardinality explosion in metrics. This maps paths like
// /scenes/123/mobs/456 to /scenes/{id}/mobs/{mobId}.
func normalizePath(path string) string {
	// Exact matches for static routes (no normalization needed)
	staticRoutes := map[string]bool{
		"/":                   true,
		"/state":              true,
		"/state/config":       true,
		"/state/active-scene": true,
		"/scenes":             true,
		"/items":              true,
		"/assets/images":      true,
		"/assets/audio":       true,
		"/health":             true,
		"/ready":              true,
		"/metrics":            true,
	}

	if staticRoutes[path] {
		return path
	}

	// /scenes/{id}/... patterns
	if strings.HasPrefix(path, "/scenes/") {
		parts := strings.Split(path, "/")
		if len(parts) >= 3 && parts[2] != "" {
			// /scenes/{id}
			if len(parts) == 3 {
				return "/scenes/{id}"
			}
			// /scenes/{id}/duplicate, /scenes/{id}/players, etc.
			if len(parts) == 4 {
				switch parts[3] {
				case "duplicate", "players", "mobs", "ships", "tracks":
					return "/scenes/{id}/" + parts[3]
				}
			}
			// /scenes/{id}/mobs/{mobId} and siblings
			if len(parts) == 5 && parts[4] != "" {
				switch parts[3] {
				case "mobs":
					return "/scenes/{id}/mobs/{mobId}"
				case "players":
					return "/scenes/{id}/players/{playerId}"
				case "ships":
					return "/scenes/{id}/ships/{shipId}"
				case "tracks":
					return "/scenes/{id}/tracks/{trackId}"
				}
			}
		}
	}

	// /players/by-name/{characterName}, /players/by-token/{token}
	if strings.HasPrefix(path, "/players/") {
		parts := strings.Split(path, "/")
		if len(parts) == 4 && parts[3] != "" {
			switch parts[2] {
			case "by-name":
				return "/players/by-name/{characterName}"
			case "by-token":
				return "/players/by-token/{token}"
			}
		}
	}

	// /presets/{type} and /presets/{type}/{id}
	if strings.HasPrefix(path, "/presets/") {
		parts := strings.Split(path, "/")
		if len(parts) == 3 && parts[2] != "" {
			return "/presets/{type}"
		}
		if len(parts) == 4 && parts[3] != "" {
			return "/presets/{type}/{id}"
		}
	}

	// /items/{id}
	if strings.HasPrefix(path, "/items/") {
		parts := strings.Split(path, "/")
		if len(parts) == 3 && parts[2] != "" {
			return "/items/{id}"
		}
	}

	// /assets/{type} and /assets/{type}/{name}
	if strings.HasPrefix(path, "/assets/") {
		parts := strings.Split(path, "/")
		if len(parts) == 3 && parts[2] != "" {
			return "/assets/{type}"
		}
		if len(parts) == 4 && parts[3] != "" {
			return "/assets/{type}/{name}"
		}
	}

	// Fallback: return as-is for unknown patterns
	return path
}

// metricsResponseWriter wraps http.ResponseWriter to capture status code and
// response size.
type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int64
	wroteHeader bool
}

// WriteHeader captures the status code before writing it.
func (mrw *metricsResponseWriter) WriteHeader(code int) {
	if mrw.wroteHeader {
		return
	}
	mrw.statusCode = code
	mrw.wroteHeader = true
	mrw.ResponseWriter.WriteHeader(code)
}

// Write captures the response size and writes the data.
func (mrw *metricsResponseWriter) Write(b []byte) (int, error) {
	n, err := mrw.ResponseWriter.Write(b)
	mrw.size += int64(n)
	return n, err
}

// carryContext forwards error-code context to the wrapped writer so that the
// logging middleware sees codes set after WriteHeader.
func (mrw *metricsResponseWriter) carryContext(ctx context.Context) {
	UpdateResponseContext(mrw.ResponseWriter, ctx)
}

// newMetricsResponseWriter creates a new metricsResponseWriter with default
// 200 status.
func newMetricsResponseWriter(w http.ResponseWriter) *metricsResponseWriter {
	return &metricsResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// HTTPMetrics is a middleware that records HTTP request metrics.
// It captures duration, request/response sizes, and request counts.
// Health check endpoints (/health, /ready) are excluded from metrics.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			mrw := newMetricsResponseWriter(w)

			// Get request size from Content-Length header
			requestSize := int64(0)
			if contentLength := r.Header.Get("Content-Length"); contentLength != "" {
				if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil {
					requestSize = size
				}
			}

			next.ServeHTTP(mrw, r)

			duration := time.Since(start).Seconds()
			normalizedPath := normalizePath(r.URL.Path)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizedPath,
				strconv.Itoa(mrw.statusCode),
				duration,
				requestSize,
				mrw.size,
			)
		})
	}
}
