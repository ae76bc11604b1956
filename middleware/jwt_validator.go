package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrSigningSecretMissing is returned when no hook secret is configured
var ErrSigningSecretMissing = errors.New("hook signing secret not configured")

// JWTValidator validates HS256 hook tokens signed with a shared secret
type JWTValidator struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewJWTValidator creates a validator. An empty issuer disables the iss check.
func NewJWTValidator(secret, issuer string) *JWTValidator {
	return &JWTValidator{
		secret: []byte(secret),
		issuer: issuer,
		leeway: 30 * time.Second,
	}
}

// ValidateToken implements TokenValidator
func (v *JWTValidator) ValidateToken(_ context.Context, token string) (*Claims, error) {
	if len(v.secret) == 0 {
		return nil, ErrSigningSecretMissing
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid hook token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid hook token")
	}
	return claims, nil
}

// SignToken issues a hook token; used by the host side and tests
func (v *JWTValidator) SignToken(subject string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrSigningSecretMissing
	}
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
