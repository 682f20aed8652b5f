package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestRouter(t *testing.T, level zapcore.Level) (*gin.Engine, *observer.ObservedLogs) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(level)
	base := zap.New(core)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), "req-123"))
		c.Next()
	})
	router.Use(Recovery(base), GinMiddleware(base))
	router.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), "tenant-1", "user-1"))
		c.Next()
	})
	return router, recorded
}

func httpRequestLog(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	entries := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	return entries[0]
}

func TestGinMiddleware(t *testing.T) {
	router, recorded := newTestRouter(t, zapcore.InfoLevel)
	router.GET("/api/v1/inventory/balances/:id", func(c *gin.Context) {
		GetGinLogger(c).Info("inside handler")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory/balances/42?page=2", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	entry := httpRequestLog(t, recorded)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "req-123", fields["request_id"])
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/v1/inventory/balances/:id", fields["route"])
	assert.Equal(t, "page=2", fields["query"])
	assert.Equal(t, "tenant-1", fields["tenant_id"])
	assert.EqualValues(t, http.StatusOK, fields["status"])

	handlerLogs := recorded.FilterMessage("inside handler").All()
	require.Len(t, handlerLogs, 1)
	assert.Equal(t, "req-123", handlerLogs[0].ContextMap()["request_id"])
}

func TestGinMiddleware_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusUnprocessableEntity, zapcore.WarnLevel},
		{http.StatusConflict, zapcore.WarnLevel},
		{http.StatusInternalServerError, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		router, recorded := newTestRouter(t, zapcore.InfoLevel)
		router.GET("/x", func(c *gin.Context) { c.Status(tt.status) })

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, tt.level, httpRequestLog(t, recorded).Level, "status %d", tt.status)
	}
}

func TestRecovery(t *testing.T) {
	router, recorded := newTestRouter(t, zapcore.InfoLevel)
	router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	panics := recorded.FilterMessage("Panic recovered").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "req-123", panics[0].ContextMap()["request_id"])
}

func TestGetGinLogger_NotSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, GetGinLogger(c))
}
