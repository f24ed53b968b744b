package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	middleware := SecurityHeaders(false)(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	middleware.ServeHTTP(w, req)

	headers := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'",
	}
	for name, want := range headers {
		if got := w.Header().Get(name); got != want {
			t.Errorf("Expected %s '%s', got '%s'", name, want, got)
		}
	}

	// HSTS requires both the flag and TLS
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("Expected no HSTS header over plain HTTP, got '%s'", got)
	}
}

func TestMaxRequestSize(t *testing.T) {
	t.Parallel()

	middleware := MaxRequestSize(16)(okHandler())

	t.Run("small body passes", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("POST", "/", strings.NewReader("small"))
		w := httptest.NewRecorder()
		middleware.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 64)))
		w := httptest.NewRecorder()
		middleware.ServeHTTP(w, req)

		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("Expected status 413, got %d", w.Code)
		}
	})
}

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{name: "GET skips validation", method: "GET", wantStatus: http.StatusOK},
		{name: "POST with JSON", method: "POST", contentType: "application/json", wantStatus: http.StatusOK},
		{name: "POST with charset", method: "POST", contentType: "application/json; charset=utf-8", wantStatus: http.StatusOK},
		{name: "POST without content type", method: "POST", wantStatus: http.StatusBadRequest},
		{name: "POST with wrong content type", method: "POST", contentType: "text/plain", wantStatus: http.StatusUnsupportedMediaType},
		{name: "PATCH with wrong content type", method: "PATCH", contentType: "application/xml", wantStatus: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			middleware := ContentType(okHandler())

			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			middleware.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	middleware := CORS("https://portal.clinic.test")(okHandler())

	t.Run("allowed origin", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "https://portal.clinic.test")
		w := httptest.NewRecorder()
		middleware.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://portal.clinic.test" {
			t.Errorf("Expected allowed origin header, got '%s'", got)
		}
	})

	t.Run("default dev origin", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		middleware.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Expected dev origin to be allowed, got '%s'", got)
		}
	})

	t.Run("unknown origin", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		middleware.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Expected unknown origin to be rejected, got '%s'", got)
		}
	})
}
