package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestIsAllowedOrigin(t *testing.T) {
	extension := []string{"chrome-extension://*"}
	both := []string{"chrome-extension://*", "https://labelpadega.app"}

	tests := []struct {
		origin  string
		allowed []string
		want    bool
	}{
		{"chrome-extension://abcdefg12345", []string{"chrome-extension://abcdefg12345"}, true},
		{"chrome-extension://abcdefg12345", extension, true},
		{"chrome-extension://abcdefg12345", []string{"chrome-*"}, true},
		{"https://labelpadega.app", both, true},
		{"https://labelpadega.app.evil.com", both, false},
		{"https://chrome-extension.evil.com", extension, false},
		{"http://evil.com", extension, false},
		{"", extension, false},
		{"chrome-extension://abcdefg12345", nil, false},
	}

	for _, tt := range tests {
		if got := isAllowedOrigin(tt.origin, tt.allowed); got != tt.want {
			t.Errorf("isAllowedOrigin(%q, %v) = %v, want %v", tt.origin, tt.allowed, got, tt.want)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(CORSMiddleware([]string{"chrome-extension://*"}))
	router.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })
	router.POST("/test", func(c *gin.Context) { c.String(http.StatusOK, "OK") })

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantCORS   bool
	}{
		{"allowed origin", http.MethodGet, "chrome-extension://abcdefg12345", http.StatusOK, true},
		{"allowed preflight", http.MethodOptions, "chrome-extension://abcdefg12345", http.StatusNoContent, true},
		{"disallowed origin", http.MethodGet, "http://evil.com", http.StatusOK, false},
		{"disallowed preflight", http.MethodOptions, "http://evil.com", http.StatusNoContent, false},
		{"no origin", http.MethodGet, "", http.StatusOK, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}

			h := w.Header()
			if !tt.wantCORS {
				if got := h.Get("Access-Control-Allow-Origin"); got != "" {
					t.Errorf("Access-Control-Allow-Origin = %q, want unset", got)
				}
				return
			}
			if got := h.Get("Access-Control-Allow-Origin"); got != tt.origin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.origin)
			}
			if h.Get("Access-Control-Allow-Credentials") != "true" {
				t.Errorf("Access-Control-Allow-Credentials not set to true")
			}
			if h.Get("Vary") != "Origin" {
				t.Errorf("Vary = %q, want Origin", h.Get("Vary"))
			}
			for _, name := range []string{"Access-Control-Allow-Methods", "Access-Control-Allow-Headers", "Access-Control-Max-Age"} {
				if h.Get(name) == "" {
					t.Errorf("%s not set", name)
				}
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.ErrorLevel)
	router := gin.New()
	router.Use(Recovery(zap.New(core)))
	router.GET("/boom", func(c *gin.Context) {
		panic("label parser exploded")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if body["error"] != "internal server error" {
		t.Errorf("error = %q, want internal server error", body["error"])
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Errorf("panic was not logged")
	}
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(RequestLogger(zap.New(core)))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, path := range []string{"/ok", "/missing"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("logged %d entries, want 2", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel {
		t.Errorf("2xx logged at %v, want info", entries[0].Level)
	}
	if entries[1].Level != zapcore.WarnLevel {
		t.Errorf("4xx logged at %v, want warn", entries[1].Level)
	}
	if got := entries[1].ContextMap()["path"]; got != "/missing" {
		t.Errorf("path field = %v, want /missing", got)
	}
}

func TestIPRateLimiter(t *testing.T) {
	t.Run("rejects requests over the burst", func(t *testing.T) {
		limiter := NewIPRateLimiter(8, time.Minute)
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return now }

		// 8 a minute gives a burst of 2
		for i := 0; i < 2; i++ {
			if !limiter.Allow("10.0.0.1") {
				t.Fatalf("request %d rejected, want allowed", i+1)
			}
		}
		if limiter.Allow("10.0.0.1") {
			t.Error("third request allowed, want rejected")
		}
		if !limiter.Allow("10.0.0.2") {
			t.Error("other IP rejected, want its own bucket")
		}

		now = now.Add(15 * time.Second)
		if !limiter.Allow("10.0.0.1") {
			t.Error("request after refill rejected, want allowed")
		}
	})

	t.Run("sweep drops idle visitors", func(t *testing.T) {
		limiter := NewIPRateLimiter(60, time.Minute)
		now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return now }

		limiter.Allow("10.0.0.1")
		now = now.Add(50 * time.Second)
		limiter.Allow("10.0.0.2")
		now = now.Add(20 * time.Second)

		if remaining := limiter.Sweep(); remaining != 1 {
			t.Errorf("Sweep() = %d, want 1", remaining)
		}
	})

	t.Run("middleware answers 429", func(t *testing.T) {
		gin.SetMode(gin.TestMode)

		limiter := NewIPRateLimiter(1, time.Minute)
		router := gin.New()
		router.Use(limiter.Middleware())
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		codes := make([]int, 0, 2)
		for i := 0; i < 2; i++ {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = "192.0.2.7:1234"
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}

		if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
			t.Errorf("status codes = %v, want [200 429]", codes)
		}
	})
}
