package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/erp/stockengine/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingTenantID  = errors.New("missing tenant id in claims")
	ErrMissingUserID    = errors.New("missing user id in claims")
)

// clockSkew tolerates small clock differences with the issuer
const clockSkew = 30 * time.Second

// Identity is who a verified bearer token speaks for
type Identity struct {
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Subject   string
	ExpiresAt time.Time
}

// TokenVerifier checks HMAC-signed bearer tokens issued by the identity
// service and extracts tenant and user ids from configurable claims
type TokenVerifier struct {
	secret      []byte
	issuer      string
	tenantClaim string
	userClaim   string
	parser      *jwt.Parser
}

// NewTokenVerifier creates a verifier from the auth configuration
func NewTokenVerifier(cfg config.AuthConfig) *TokenVerifier {
	tenantClaim := cfg.TenantClaim
	if tenantClaim == "" {
		tenantClaim = "tenant_id"
	}
	userClaim := cfg.UserClaim
	if userClaim == "" {
		userClaim = "user_id"
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	}
	if cfg.JWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.JWTIssuer))
	}

	return &TokenVerifier{
		secret:      []byte(cfg.JWTSecret),
		issuer:      cfg.JWTIssuer,
		tenantClaim: tenantClaim,
		userClaim:   userClaim,
		parser:      jwt.NewParser(opts...),
	}
}

// Verify validates the token and returns its identity
func (v *TokenVerifier) Verify(tokenString string) (*Identity, error) {
	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	tenantID, err := uuidClaim(claims, v.tenantClaim)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingTenantID, err)
	}
	userID, err := uuidClaim(claims, v.userClaim)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingUserID, err)
	}

	identity := &Identity{TenantID: tenantID, UserID: userID}
	identity.Subject, _ = claims.GetSubject()
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		identity.ExpiresAt = exp.Time
	}
	return identity, nil
}

// Issue signs a token for identity with the same secret, issuer and claim
// names the verifier expects. Used by tests and local tooling.
func (v *TokenVerifier) Issue(identity Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		v.tenantClaim: identity.TenantID.String(),
		v.userClaim:   identity.UserID.String(),
		"iat":         now.Unix(),
		"nbf":         now.Unix(),
		"exp":         now.Add(ttl).Unix(),
		"jti":         uuid.NewString(),
	}
	if v.issuer != "" {
		claims["iss"] = v.issuer
	}
	if identity.Subject != "" {
		claims["sub"] = identity.Subject
	} else {
		claims["sub"] = identity.UserID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func uuidClaim(claims jwt.MapClaims, name string) (uuid.UUID, error) {
	raw, ok := claims[name]
	if !ok {
		return uuid.Nil, fmt.Errorf("claim %q not present", name)
	}
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("claim %q is not a string", name)
	}
	id, err := uuid.Parse(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("claim %q is not a valid id", name)
	}
	return id, nil
}
