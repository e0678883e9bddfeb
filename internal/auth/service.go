// Package auth guards the admin surface with a single shared secret.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/ratelimit"
	"golang.org/x/crypto/bcrypt"

	"github.com/Awhitter/spanish1/internal/domain"
)

// Defaults for the login limiter and token lifetime
const (
	DefaultTokenTTL    = 12 * time.Hour
	DefaultLoginRate   = 5
	DefaultLoginWindow = time.Minute
)

// Config holds admin credentials and limits
type Config struct {
	SecretHash  string // bcrypt hash of the admin secret
	TokenSecret string // HMAC key for bearer tokens
	TokenTTL    time.Duration
	LoginRate   int
	LoginWindow time.Duration
}

// Service checks the admin secret and issues bearer tokens
type Service struct {
	secretHash []byte
	tokens     *TokenIssuer
	limiter    ratelimit.RateLimiter
}

// NewService creates the auth service. Without a secret hash every login
// fails with domain.ErrAuthNotConfigured.
func NewService(cfg Config) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.LoginRate <= 0 {
		cfg.LoginRate = DefaultLoginRate
	}
	if cfg.LoginWindow <= 0 {
		cfg.LoginWindow = DefaultLoginWindow
	}

	return &Service{
		secretHash: []byte(strings.TrimSpace(cfg.SecretHash)),
		tokens:     NewTokenIssuer([]byte(cfg.TokenSecret), cfg.TokenTTL),
		limiter: ratelimit.New(&ratelimit.Config{
			Rate:     cfg.LoginRate,
			Burst:    cfg.LoginRate,
			Interval: cfg.LoginWindow,
		}),
	}
}

// Configured reports whether an admin secret is set
func (s *Service) Configured() bool {
	return len(s.secretHash) > 0 && s.tokens.Configured()
}

// Authenticate reports whether secret matches the admin secret
func (s *Service) Authenticate(secret string) bool {
	if len(s.secretHash) == 0 || secret == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword(s.secretHash, []byte(secret)) == nil
}

// Login checks secret for the client identified by key and returns a
// signed bearer token.
func (s *Service) Login(ctx context.Context, key, secret string) (*Token, error) {
	if !s.Configured() {
		return nil, domain.ErrAuthNotConfigured
	}
	if !s.limiter.Allow(ctx, "login:"+key) {
		return nil, domain.ErrTooManyAttempts
	}
	if !s.Authenticate(secret) {
		return nil, domain.ErrUnauthorized
	}
	return s.tokens.Issue(time.Now())
}

// Verify validates a bearer token
func (s *Service) Verify(token string) (*Claims, error) {
	if !s.tokens.Configured() {
		return nil, domain.ErrAuthNotConfigured
	}
	return s.tokens.Verify(token)
}

// Close releases the limiter
func (s *Service) Close() error {
	return s.limiter.Close()
}

// HashSecret returns the bcrypt hash stored in config for secret
func HashSecret(secret string) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", fmt.Errorf("hash secret: empty secret")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hashed), nil
}

// GenerateTokenSecret creates a random signing key
func GenerateTokenSecret() (string, error) {
	return generateToken(32)
}

// generateToken creates a cryptographically secure random token
func generateToken(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(bytes), nil
}
