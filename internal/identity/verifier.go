package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenVerifier checks provider-issued access tokens, either against the
// provider's JWKS endpoint or a shared HMAC secret.
type TokenVerifier struct {
	jwks    *keyfunc.JWKS
	secret  []byte
	keyfunc jwt.Keyfunc
}

// NewTokenVerifier prefers jwksURL when set and falls back to secret. It returns
// nil, nil when neither is configured.
func NewTokenVerifier(jwksURL, secret string, logger *zap.Logger) (*TokenVerifier, error) {
	if jwksURL != "" {
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				logger.Warn("failed to refresh identity provider JWKS", zap.Error(err))
			},
		})
		if err != nil {
			return nil, fmt.Errorf("load JWKS: %w", err)
		}
		return &TokenVerifier{jwks: jwks, keyfunc: jwks.Keyfunc}, nil
	}
	if secret != "" {
		return NewHMACVerifier([]byte(secret)), nil
	}
	return nil, nil
}

// NewHMACVerifier verifies HS256 tokens signed with secret.
func NewHMACVerifier(secret []byte) *TokenVerifier {
	v := &TokenVerifier{secret: secret}
	v.keyfunc = func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return v.secret, nil
	}
	return v
}

// Subject verifies the token and returns its subject as a user id.
func (v *TokenVerifier) Subject(token string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.keyfunc, jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, err
	}
	if !parsed.Valid {
		return uuid.Nil, errors.New("invalid token")
	}
	return uuid.Parse(claims.Subject)
}

// Close stops the background JWKS refresh.
func (v *TokenVerifier) Close() {
	if v != nil && v.jwks != nil {
		v.jwks.EndBackground()
	}
}
