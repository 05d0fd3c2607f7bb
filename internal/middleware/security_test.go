package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(SecurityHeaders())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", w.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "no-referrer", w.Header().Get("Referrer-Policy"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestCorrelationID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("correlation_id"))
	})

	t.Run("honors inbound header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Correlation-ID", "ehr-gateway-42")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "ehr-gateway-42", w.Header().Get("X-Correlation-ID"))
		assert.Equal(t, "ehr-gateway-42", w.Body.String())
	})

	t.Run("generates when missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
		assert.Equal(t, w.Header().Get("X-Correlation-ID"), w.Body.String())
	})
}

func TestAuditLoggerEmitsStructuredEntry(t *testing.T) {
	gin.SetMode(gin.TestMode)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)

	router := gin.New()
	router.Use(AuditLogger(logger))
	router.Use(CorrelationID())
	router.GET("/api/v1/patients/:id/reminders", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"reminders": []string{}})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/pat-1/reminders", nil)
	req.Header.Set("X-Correlation-ID", "audit-check-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Request handled", entry.Message)
	assert.Equal(t, "audit-check-1", entry.Data["correlation_id"])
	assert.Equal(t, http.MethodGet, entry.Data["method"])
	assert.Equal(t, "/api/v1/patients/pat-1/reminders", entry.Data["path"])
	assert.Equal(t, http.StatusOK, entry.Data["status"])
}
