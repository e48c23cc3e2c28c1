// Package auth issues and validates the bearer tokens that guard the admin API.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/charlesng35/issuerelay/pkg/crypto"
)

const (
	// DefaultAccessTokenTTL defines the fallback validity period for admin tokens.
	DefaultAccessTokenTTL = time.Hour

	// ScopeAdmin grants access to every /api route.
	ScopeAdmin = "admin"
)

// ErrInvalidCredentials is returned when a password exchange fails.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// JWTConfig bundles the configuration required to build a JWTService.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
	// AdminPasswordHash is a bcrypt hash. When empty, password exchange is disabled and
	// tokens can only be minted from the CLI.
	AdminPasswordHash string
	Clock             func() time.Time
}

// Claims represents the custom claims embedded in issued JWTs.
type Claims struct {
	Scopes []string `json:"scp,omitempty"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token carries scope.
func (c *Claims) HasScope(scope string) bool {
	return c != nil && slices.Contains(c.Scopes, scope)
}

// TokenInput holds the parameters used when generating a new token.
type TokenInput struct {
	Subject string
	Scopes  []string
	// TTL overrides the configured lifetime when positive.
	TTL time.Duration
}

// JWTService is responsible for issuing and validating JSON Web Tokens.
type JWTService struct {
	secret       []byte
	issuer       string
	ttl          time.Duration
	passwordHash string
	now          func() time.Time
}

// NewJWTService constructs a JWTService instance when provided with the required configuration.
func NewJWTService(cfg JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt: secret must be provided")
	}

	ttl := cfg.AccessTokenTTL
	if ttl <= 0 {
		ttl = DefaultAccessTokenTTL
	}

	hash := strings.TrimSpace(cfg.AdminPasswordHash)
	if hash != "" && !crypto.IsPasswordHash(hash) {
		return nil, errors.New("jwt: admin password hash is not a bcrypt hash")
	}

	now := time.Now
	if cfg.Clock != nil {
		now = cfg.Clock
	}

	return &JWTService{
		secret:       []byte(cfg.Secret),
		issuer:       cfg.Issuer,
		ttl:          ttl,
		passwordHash: hash,
		now:          now,
	}, nil
}

// GenerateToken issues a signed JWT for the subject.
func (s *JWTService) GenerateToken(input TokenInput) (string, time.Time, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return "", time.Time{}, errors.New("jwt: subject is required")
	}

	ttl := s.ttl
	if input.TTL > 0 {
		ttl = input.TTL
	}
	now := s.now()
	expiresAt := now.Add(ttl)

	claims := &Claims{
		Scopes: slices.Clone(input.Scopes),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    s.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// ValidateToken parses and validates a signed JWT, returning its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("jwt: token string is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)

	var claims Claims
	_, err := parser.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("jwt: parse token: %w", err)
	}

	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("jwt: invalid issuer")
	}

	if claims.Subject == "" {
		return nil, errors.New("jwt: missing subject claim")
	}

	return &claims, nil
}

// PasswordLoginEnabled reports whether ExchangePassword can succeed.
func (s *JWTService) PasswordLoginEnabled() bool {
	return s.passwordHash != ""
}

// ExchangePassword trades the admin password for an admin token.
func (s *JWTService) ExchangePassword(subject, password string) (string, time.Time, error) {
	if !s.PasswordLoginEnabled() || !crypto.VerifyPassword(s.passwordHash, password) {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.GenerateToken(TokenInput{Subject: subject, Scopes: []string{ScopeAdmin}})
}
