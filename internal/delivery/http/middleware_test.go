package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/barease/backend/internal/logging"
)

func TestIsAllowedOrigin(t *testing.T) {
	tests := []struct {
		name           string
		origin         string
		allowedOrigins []string
		want           bool
	}{
		{
			name:           "exact match",
			origin:         "https://menu.barease.jp",
			allowedOrigins: []string{"https://menu.barease.jp"},
			want:           true,
		},
		{
			name:           "wildcard match",
			origin:         "https://menu.barease.jp",
			allowedOrigins: []string{"https://*.barease.jp"},
			want:           true,
		},
		{
			name:           "multiple allowed origins - matches first",
			origin:         "https://menu.barease.jp",
			allowedOrigins: []string{"https://*.barease.jp", "http://localhost:3000"},
			want:           true,
		},
		{
			name:           "multiple allowed origins - matches second",
			origin:         "http://localhost:3000",
			allowedOrigins: []string{"https://*.barease.jp", "http://localhost:3000"},
			want:           true,
		},
		{
			name:           "no match",
			origin:         "http://evil.com",
			allowedOrigins: []string{"https://*.barease.jp"},
			want:           false,
		},
		{
			name:           "empty origin",
			origin:         "",
			allowedOrigins: []string{"https://*.barease.jp"},
			want:           false,
		},
		{
			name:           "empty allowed list",
			origin:         "https://menu.barease.jp",
			allowedOrigins: []string{},
			want:           false,
		},
		{
			name:           "wildcard needs the suffix",
			origin:         "https://menu.barease.jp.evil.com",
			allowedOrigins: []string{"https://*.barease.jp"},
			want:           false,
		},
		{
			name:           "partial wildcard match",
			origin:         "https://menu.barease.jp",
			allowedOrigins: []string{"https://menu.*"},
			want:           true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isAllowedOrigin(tt.origin, tt.allowedOrigins)
			if got != tt.want {
				t.Errorf("isAllowedOrigin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		origin         string
		allowedOrigins []string
		method         string
		wantStatus     int
		checkHeaders   bool
		wantCORS       bool
	}{
		{
			name:           "allowed origin - GET request",
			origin:         "https://menu.barease.jp",
			allowedOrigins: []string{"https://*.barease.jp"},
			method:         "GET",
			wantStatus:     http.StatusOK,
			checkHeaders:   true,
			wantCORS:       true,
		},
		{
			name:           "allowed origin - OPTIONS request",
			origin:         "https://menu.barease.jp",
			allowedOrigins: []string{"https://*.barease.jp"},
			method:         "OPTIONS",
			wantStatus:     http.StatusNoContent,
			checkHeaders:   true,
			wantCORS:       true,
		},
		{
			name:           "disallowed origin",
			origin:         "http://evil.com",
			allowedOrigins: []string{"https://*.barease.jp"},
			method:         "GET",
			wantStatus:     http.StatusOK,
			checkHeaders:   true,
			wantCORS:       false,
		},
		{
			name:           "no origin header",
			origin:         "",
			allowedOrigins: []string{"https://*.barease.jp"},
			method:         "GET",
			wantStatus:     http.StatusOK,
			checkHeaders:   true,
			wantCORS:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup router
			router := gin.New()
			router.Use(CORSMiddleware(tt.allowedOrigins))
			router.GET("/test", func(c *gin.Context) {
				c.String(http.StatusOK, "OK")
			})

			// Create request
			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			// Record response
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			// Check status
			if w.Code != tt.wantStatus {
				t.Errorf("Status = %d, want %d", w.Code, tt.wantStatus)
			}

			// Check CORS headers
			if tt.checkHeaders {
				corsHeader := w.Header().Get("Access-Control-Allow-Origin")
				if tt.wantCORS {
					if corsHeader != tt.origin {
						t.Errorf("Access-Control-Allow-Origin = %s, want %s", corsHeader, tt.origin)
					}
					if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
						t.Errorf("Access-Control-Allow-Credentials not set to true")
					}
				} else {
					if corsHeader != "" {
						t.Errorf("Access-Control-Allow-Origin should not be set for disallowed origin, got %s", corsHeader)
					}
				}
			}
		})
	}
}

func TestCORSMiddleware_PreflightRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(CORSMiddleware([]string{"https://*.barease.jp"}))
	router.POST("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	// Create preflight request
	req := httptest.NewRequest("OPTIONS", "/test", nil)
	req.Header.Set("Origin", "https://menu.barease.jp")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Should return 204 No Content
	if w.Code != http.StatusNoContent {
		t.Errorf("Preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}

	// Check CORS headers
	if w.Header().Get("Access-Control-Allow-Origin") != "https://menu.barease.jp" {
		t.Errorf("Access-Control-Allow-Origin not set correctly")
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Errorf("Access-Control-Allow-Methods not set")
	}
	if w.Header().Get("Access-Control-Allow-Headers") == "" {
		t.Errorf("Access-Control-Allow-Headers not set")
	}
	if w.Header().Get("Access-Control-Max-Age") == "" {
		t.Errorf("Access-Control-Max-Age not set")
	}
}

func TestVerifySignature(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	ts := now.UnixMilli()
	body := []byte(`{"itemId":"a"}`)
	valid := Sign("secret", ts, body)

	tests := []struct {
		name      string
		signature string
		timestamp string
		payload   []byte
		want      bool
	}{
		{"valid", valid, strconv.FormatInt(ts, 10), body, true},
		{"uppercase hex", strings.ToUpper(valid), strconv.FormatInt(ts, 10), body, true},
		{"tampered body", valid, strconv.FormatInt(ts, 10), []byte(`{"itemId":"b"}`), false},
		{"missing signature", "", strconv.FormatInt(ts, 10), body, false},
		{"missing timestamp", valid, "", body, false},
		{"non numeric timestamp", valid, "yesterday", body, false},
		{"not hex", "zz" + valid[2:], strconv.FormatInt(ts, 10), body, false},
		{"timestamp mismatch", valid, strconv.FormatInt(ts+1, 10), body, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VerifySignature("secret", tt.signature, tt.timestamp, tt.payload, 5*time.Minute, now)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("rejects timestamps outside the skew window", func(t *testing.T) {
		old := now.Add(-6 * time.Minute).UnixMilli()
		sig := Sign("secret", old, body)
		assert.False(t, VerifySignature("secret", sig, strconv.FormatInt(old, 10), body, 5*time.Minute, now))

		future := now.Add(6 * time.Minute).UnixMilli()
		sig = Sign("secret", future, body)
		assert.False(t, VerifySignature("secret", sig, strconv.FormatInt(future, 10), body, 5*time.Minute, now))

		recent := now.Add(-4 * time.Minute).UnixMilli()
		sig = Sign("secret", recent, body)
		assert.True(t, VerifySignature("secret", sig, strconv.FormatInt(recent, 10), body, 5*time.Minute, now))
	})
}

func TestSignatureMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.UnixMilli(1_700_000_000_000)
	ts := strconv.FormatInt(now.UnixMilli(), 10)

	newRouter := func(secret string) *gin.Engine {
		router := gin.New()
		router.Use(signatureMiddleware(secret, 5*time.Minute, func() time.Time { return now }))
		router.POST("/signed", func(c *gin.Context) {
			body, _ := io.ReadAll(c.Request.Body)
			c.String(http.StatusOK, string(body))
		})
		router.GET("/signed", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	t.Run("valid POST passes and body is still readable", func(t *testing.T) {
		body := `{"action":"upsert"}`
		req := httptest.NewRequest(http.MethodPost, "/signed", strings.NewReader(body))
		req.Header.Set(timestampHeader, ts)
		req.Header.Set(signatureHeader, Sign("secret", now.UnixMilli(), []byte(body)))
		w := httptest.NewRecorder()

		newRouter("secret").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, body, w.Body.String())
	})

	t.Run("GET signs the method name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/signed", nil)
		req.Header.Set(timestampHeader, ts)
		req.Header.Set(signatureHeader, Sign("secret", now.UnixMilli(), []byte("GET")))
		w := httptest.NewRecorder()

		newRouter("secret").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bad signature is rejected with 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/signed", strings.NewReader(`{}`))
		req.Header.Set(timestampHeader, ts)
		req.Header.Set(signatureHeader, Sign("other", now.UnixMilli(), []byte(`{}`)))
		w := httptest.NewRecorder()

		newRouter("secret").ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid_signature")
	})

	t.Run("empty secret disables verification", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/signed", strings.NewReader(`{}`))
		w := httptest.NewRecorder()

		newRouter("").ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimitMiddleware(2)) // burst of 1
	router.GET("/limited", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2"), "limits are per client IP")

	t.Run("zero disables limiting", func(t *testing.T) {
		open := gin.New()
		open.Use(RateLimitMiddleware(0))
		open.GET("/open", func(c *gin.Context) { c.Status(http.StatusOK) })
		for i := 0; i < 5; i++ {
			w := httptest.NewRecorder()
			open.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))
			require.Equal(t, http.StatusOK, w.Code)
		}
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var seen string
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/id", func(c *gin.Context) {
		seen = logging.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	t.Run("generates an id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/id", nil))

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(requestIDHeader))
	})

	t.Run("reuses the incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/id", nil)
		req.Header.Set(requestIDHeader, "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "req-123", seen)
		assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))
	})
}
