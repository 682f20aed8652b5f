package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/stockengine/internal/infrastructure/auth"
	"github.com/erp/stockengine/internal/infrastructure/logger"
	"github.com/erp/stockengine/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// IdentityConfig configures how the caller's tenant and user are resolved.
// With a Verifier the Authorization bearer token is required and its claims are
// authoritative; without one the X-Tenant-ID and X-User-ID headers are trusted,
// which suits deployments behind an authenticating gateway.
type IdentityConfig struct {
	Verifier  *auth.TokenVerifier
	SkipPaths []string
	Logger    *zap.Logger
}

// Identity resolves the tenant and acting user of each request
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		var tenantID, userID uuid.UUID
		if cfg.Verifier != nil {
			identity, code, err := fromBearer(c, cfg.Verifier)
			if err != nil {
				logger.For(c.Request.Context(), log).Debug("Rejected bearer token", zap.Error(err))
				abortUnauthorized(c, code, err.Error())
				return
			}
			tenantID, userID = identity.TenantID, identity.UserID
		} else {
			var err error
			if tenantID, err = headerUUID(c, TenantHeader); err != nil || tenantID == uuid.Nil {
				abortUnauthorized(c, dto.ErrCodeUnauthorized, "A valid "+TenantHeader+" header is required")
				return
			}
			if userID, err = headerUUID(c, UserHeader); err != nil {
				abortUnauthorized(c, dto.ErrCodeUnauthorized, "Invalid "+UserHeader+" header")
				return
			}
		}

		c.Set(TenantIDKey, tenantID)
		user := ""
		if userID != uuid.Nil {
			c.Set(UserIDKey, userID)
			user = userID.String()
		}
		c.Request = c.Request.WithContext(logger.WithIdentity(c.Request.Context(), tenantID.String(), user))
		c.Next()
	}
}

func fromBearer(c *gin.Context, verifier *auth.TokenVerifier) (*auth.Identity, string, error) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return nil, dto.ErrCodeUnauthorized, errors.New("missing bearer token")
	}
	identity, err := verifier.Verify(strings.TrimPrefix(header, bearerPrefix))
	switch {
	case err == nil:
		return identity, "", nil
	case errors.Is(err, auth.ErrExpiredToken):
		return nil, dto.ErrCodeTokenExpired, err
	default:
		return nil, dto.ErrCodeTokenInvalid, err
	}
}

func headerUUID(c *gin.Context, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(c.GetHeader(name))
	if raw == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}
