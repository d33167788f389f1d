// Package vauth issues and verifies the HS256 access tokens used by the
// API. Tokens are deliberately small: subject, scopes, and the registered
// claims. API keys bypass this package entirely and are resolved by the
// IAM service.
package vauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is the iss claim stamped on every issued token.
const Issuer = "verdict"

// ScopeAdmin gates privileged operations (job cleanup).
const ScopeAdmin = "admin"

var ErrInvalidToken = errors.New("invalid token")

// AccessClaims is the JWT payload for an access token.
type AccessClaims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token carries the given scope.
func (c *AccessClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Sign mints an access token for the given subject. The returned jti
// identifies the token for server-side revocation tracking.
func Sign(secret []byte, subject string, scopes []string, ttl time.Duration) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()

	claims := AccessClaims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", "", fmt.Errorf("sign token: %w", err)
	}
	return token, jti, nil
}

// Verify checks the token's signature, expiry, and issuer. The signing
// method is pinned to HS256 to avoid algorithm confusion.
func Verify(secret []byte, tokenStr string) (*AccessClaims, error) {
	var claims AccessClaims

	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &claims, nil
}
