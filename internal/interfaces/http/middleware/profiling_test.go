package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfilingLabels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tenantID := uuid.New()

	var route, method, tenant string
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(TenantIDKey, tenantID)
		c.Next()
	}, ProfilingLabels(true))
	r.GET("/inventory/transfers/:id", func(c *gin.Context) {
		ctx := c.Request.Context()
		route, _ = pprof.Label(ctx, "route")
		method, _ = pprof.Label(ctx, "method")
		tenant, _ = pprof.Label(ctx, "tenant_id")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/inventory/transfers/"+uuid.NewString(), nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/inventory/transfers/:id", route)
	assert.Equal(t, http.MethodGet, method)
	assert.Equal(t, tenantID.String(), tenant)
}

func TestProfilingLabels_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var labelled bool
	r := gin.New()
	r.Use(ProfilingLabels(false))
	r.GET("/ping", func(c *gin.Context) {
		_, labelled = pprof.Label(c.Request.Context(), "route")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.False(t, labelled)
}
