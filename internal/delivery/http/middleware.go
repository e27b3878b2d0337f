package http

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/barease/backend/internal/logging"
)

const (
	requestIDHeader = "X-Request-ID"
	signatureHeader = "X-Signature"
	timestampHeader = "X-Timestamp"

	// maxSignedBodyBytes bounds the body read for signature checks
	maxSignedBodyBytes = 1 << 20
)

// CORSMiddleware handles CORS for the menu frontend
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		if isAllowedOrigin(origin, allowedOrigins) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			c.Writer.Header().Set("Access-Control-Allow-Headers",
				"Content-Type, Authorization, X-Requested-With, X-Signature, X-Timestamp")
			c.Writer.Header().Set("Access-Control-Max-Age", "3600")
		}

		// Handle preflight requests
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// isAllowedOrigin checks if the origin is in the allowed list
func isAllowedOrigin(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range allowedOrigins {
		// A single wildcard matches any run of characters, e.g. https://*.vercel.app
		if prefix, suffix, ok := strings.Cut(allowed, "*"); ok {
			if len(origin) >= len(prefix)+len(suffix) &&
				strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
				return true
			}
		} else if origin == allowed {
			return true
		}
	}
	return false
}

// RequestIDMiddleware tags each request with an id, reusing an incoming X-Request-ID
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = logging.GenerateRequestID()
		}
		c.Set("request_id", id)
		c.Request = c.Request.WithContext(logging.ContextWithRequestID(c.Request.Context(), id))
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// LoggerMiddleware logs one structured line per request
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		log := logging.Ctx(c.Request.Context())
		event := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// RecoveryMiddleware recovers from panics
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logging.Ctx(c.Request.Context()).Error().Interface("panic", recovered).Msg("recovered from panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody("internal_error", "internal server error"))
	})
}

// ipLimiters hands out one token bucket per client IP; idle buckets expire.
type ipLimiters struct {
	limiters *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
}

func newIPLimiters(perMinute int) *ipLimiters {
	burst := perMinute / 2
	if burst < 1 {
		burst = 1
	}
	return &ipLimiters{
		limiters: expirable.NewLRU[string, *rate.Limiter](10000, nil, 10*time.Minute),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
	}
}

func (l *ipLimiters) get(ip string) *rate.Limiter {
	if limiter, ok := l.limiters.Get(ip); ok {
		return limiter
	}
	limiter := rate.NewLimiter(l.limit, l.burst)
	l.limiters.Add(ip, limiter)
	return limiter
}

// RateLimitMiddleware limits requests per client IP. perMinute <= 0 disables it.
func RateLimitMiddleware(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiters := newIPLimiters(perMinute)
	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody("rate_limited", "too many requests"))
			return
		}
		c.Next()
	}
}

// SignatureMiddleware verifies X-Signature, a hex HMAC-SHA256 of "<X-Timestamp>.<body>".
// GET requests sign the literal "GET". An empty secret disables verification.
func SignatureMiddleware(secret string, maxSkew time.Duration) gin.HandlerFunc {
	return signatureMiddleware(secret, maxSkew, time.Now)
}

func signatureMiddleware(secret string, maxSkew time.Duration, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		log := logging.Ctx(c.Request.Context()).With().Str("component", "webhook").Logger()

		payload := []byte(http.MethodGet)
		if c.Request.Method != http.MethodGet {
			body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSignedBodyBytes))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, errorBody("invalid_request", "failed to read request body"))
				return
			}
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
			payload = body
		}

		if !VerifySignature(secret, c.GetHeader(signatureHeader), c.GetHeader(timestampHeader), payload, maxSkew, now()) {
			log.Warn().Str("path", c.Request.URL.Path).Msg("invalid signature")
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorBody("invalid_signature", "invalid signature"))
			return
		}
		c.Next()
	}
}

// VerifySignature reports whether signature matches the payload signed at timestamp (unix ms)
// and the timestamp is within maxSkew of now.
func VerifySignature(secret, signature, timestamp string, payload []byte, maxSkew time.Duration, now time.Time) bool {
	if signature == "" || timestamp == "" {
		return false
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	skew := now.Sub(time.UnixMilli(ts))
	if skew < 0 {
		skew = -skew
	}
	if skew > maxSkew {
		return false
	}

	expected := Sign(secret, ts, payload)
	actual, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(expected)
	return hmac.Equal(actual, want)
}

// Sign returns the hex signature of payload at timestamp (unix ms)
func Sign(secret string, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
