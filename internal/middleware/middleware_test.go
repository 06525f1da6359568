package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeaders())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := perform(router, http.MethodGet, "/ping", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
}

func TestCorrelationID(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CorrelationIDKey)) })

	t.Run("generated when absent", func(t *testing.T) {
		w := perform(router, http.MethodGet, "/ping", nil)
		id := w.Header().Get(CorrelationIDHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, id, w.Body.String())
	})

	t.Run("propagated when present", func(t *testing.T) {
		w := perform(router, http.MethodGet, "/ping", map[string]string{CorrelationIDHeader: "abc-123"})
		assert.Equal(t, "abc-123", w.Header().Get(CorrelationIDHeader))
		assert.Equal(t, "abc-123", w.Body.String())
	})
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS(""))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := perform(router, http.MethodOptions, "/ping", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	w = perform(router, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequestTimeout(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID(), RequestTimeout(10*time.Millisecond))
	router.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	router.GET("/fast", func(c *gin.Context) {
		_, hasDeadline := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"deadline": hasDeadline})
	})

	w := perform(router, http.MethodGet, "/slow", nil)
	require.Equal(t, http.StatusGatewayTimeout, w.Code)
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)

	w = perform(router, http.MethodGet, "/fast", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deadline":true}`, w.Body.String())
}

func TestRequestTimeout_Disabled(t *testing.T) {
	router := gin.New()
	router.Use(RequestTimeout(0))
	router.GET("/", func(c *gin.Context) {
		_, hasDeadline := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"deadline": hasDeadline})
	})

	w := perform(router, http.MethodGet, "/", nil)
	assert.JSONEq(t, `{"deadline":false}`, w.Body.String())
}

func TestRequestLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	router := gin.New()
	router.Use(CorrelationID(), RequestLogger(logger))
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	tests := []struct {
		path  string
		level logrus.Level
	}{
		{"/ok?status=Registered", logrus.InfoLevel},
		{"/missing", logrus.WarnLevel},
		{"/boom", logrus.ErrorLevel},
	}
	for _, tt := range tests {
		hook.Reset()
		perform(router, http.MethodGet, tt.path, map[string]string{CorrelationIDHeader: "cid-1"})

		entry := hook.LastEntry()
		require.NotNil(t, entry, tt.path)
		assert.Equal(t, tt.level, entry.Level, tt.path)
		assert.Equal(t, "cid-1", entry.Data["correlation_id"])
		assert.Equal(t, tt.path, entry.Data["path"])
	}
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, limiter.Allow("10.0.0.2"), "clients are limited independently")

	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("10.0.0.1"), "token refilled")

	now = now.Add(clientIdleTTL + time.Minute)
	assert.True(t, limiter.Allow("10.0.0.3"))
	assert.Equal(t, 1, limiter.Clients(), "idle clients swept")
}

func TestRateLimiter_Middleware(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)
	router := gin.New()
	router.Use(limiter.RateLimit())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/", nil).Code)

	w := perform(router, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), `"RATE_LIMITED"`)
}

func TestMetrics(t *testing.T) {
	metrics := NewMetrics()
	router := gin.New()
	router.Use(metrics.Middleware())
	router.GET("/api/v1/studies/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/metrics", metrics.Handler())

	perform(router, http.MethodGet, "/api/v1/studies/P-1042", nil)
	perform(router, http.MethodGet, "/nowhere", nil)

	w := perform(router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body,
		`radflow_http_requests_total{method="GET",route="/api/v1/studies/:id",status="200"} 1`), body)
	assert.Contains(t, body, `route="unmatched",status="404"`)
	assert.Contains(t, body, "go_goroutines")
}
