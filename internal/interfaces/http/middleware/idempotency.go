package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/erp/stockengine/internal/infrastructure/logger"
	"github.com/erp/stockengine/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader carries the client chosen replay guard key
const IdempotencyKeyHeader = "Idempotency-Key"

// maxIdempotencyKeyLength bounds the stored key size
const maxIdempotencyKeyLength = 255

// IdempotencyConfig configures the Idempotency-Key replay guard
type IdempotencyConfig struct {
	Store  shared.IdempotencyStore
	TTL    time.Duration
	Logger *zap.Logger
}

// Idempotency rejects a POST whose Idempotency-Key was already accepted for the
// same tenant within TTL. A request that fails (status >= 400) releases its key
// so the client may retry it. Requests without the header pass through.
// Must run after Identity.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return func(c *gin.Context) {
		raw := c.GetHeader(IdempotencyKeyHeader)
		if cfg.Store == nil || c.Request.Method != http.MethodPost || raw == "" {
			c.Next()
			return
		}
		if len(raw) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeValidationRange, "Idempotency-Key is too long", GetRequestID(c)))
			return
		}

		key := raw
		if tenantID, ok := GetTenantID(c); ok {
			key = tenantID.String() + ":" + raw
		}

		ctx := c.Request.Context()
		first, err := cfg.Store.MarkProcessed(ctx, key, ttl)
		if err != nil {
			// the guard is best effort; the operation itself stays consistent
			logger.For(ctx, log).Warn("Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !first {
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeDuplicateRequest,
				"A request with this Idempotency-Key was already accepted",
				GetRequestID(c),
			))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := cfg.Store.Forget(context.WithoutCancel(ctx), key); err != nil {
				logger.For(ctx, log).Warn("Failed to release idempotency key", zap.Error(err))
			}
		}
	}
}
