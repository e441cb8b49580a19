// Package jwt implements token issuance and validation with HMAC-signed
// JSON Web Tokens.
package jwt

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/statuspulse/statuspulse/internal/domain"
)

const issuer = "statuspulse"

// Authenticator issues and validates access tokens. It implements both
// identity.TokenIssuer and httputil.TokenValidator.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthenticator creates a new authenticator.
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl}
}

// GenerateToken mints a signed token for the user.
func (a *Authenticator) GenerateToken(_ context.Context, user *domain.User) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(a.ttl)

	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return token, expiresAt, nil
}

// ValidateToken verifies the signature and expiry and returns the user ID.
func (a *Authenticator) ValidateToken(_ context.Context, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}

	return claims.Subject, nil
}
