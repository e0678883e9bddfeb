package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Awhitter/spanish1/internal/domain"
)

const (
	tokenIssuer  = "spanishd"
	tokenSubject = "admin"
)

// Token is a signed admin bearer token
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims carried by admin tokens
type Claims struct {
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 admin tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
}

// NewTokenIssuer creates an issuer for the given key
func NewTokenIssuer(secret []byte, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret: secret,
		ttl:    ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(tokenIssuer),
			jwt.WithSubject(tokenSubject),
			jwt.WithExpirationRequired(),
		),
	}
}

// Configured reports whether a signing key is set
func (i *TokenIssuer) Configured() bool {
	return len(i.secret) > 0
}

// Issue signs a token valid from now for the configured TTL
func (i *TokenIssuer) Issue(now time.Time) (*Token, error) {
	expires := now.Add(i.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    tokenIssuer,
			Subject:   tokenSubject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{Value: signed, ExpiresAt: expires}, nil
}

// Verify parses and validates a token. Every failure maps to
// domain.ErrUnauthorized.
func (i *TokenIssuer) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, domain.ErrUnauthorized
	}

	claims := &Claims{}
	parsed, err := i.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token expired: %w", domain.ErrUnauthorized)
		}
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
