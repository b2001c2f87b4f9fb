// Package jwt mints and verifies gateway bearer tokens.
//
// The service is generic over the claims type so callers can carry extra
// fields; Claims covers the gateway's needs (subject plus allowed models):
//
//	svc, err := jwt.NewService(cfg, func() *jwt.Claims { return &jwt.Claims{} })
//	token, err := svc.Mint(&jwt.Claims{Models: []string{"groq-qwen"}}, "ci-bot")
//	claims, err := svc.Parse(token)
package jwt

import (
	"errors"
	"fmt"
	"slices"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the gateway's token claims.
type Claims struct {
	gojwt.RegisteredClaims
	// Models restricts which catalog entries the bearer may call; empty allows all.
	Models []string `json:"models,omitempty"`
}

// Allows reports whether the token grants access to model.
func (c *Claims) Allows(model string) bool {
	return len(c.Models) == 0 || slices.Contains(c.Models, model)
}

// stamper is implemented by claims that embed RegisteredClaims.
type stamper interface {
	stamp(now time.Time, ttl time.Duration, issuer, audience, subject string)
}

func (c *Claims) stamp(now time.Time, ttl time.Duration, issuer, audience, subject string) {
	c.Subject = subject
	c.Issuer = issuer
	c.ID = uuid.NewString()
	c.IssuedAt = gojwt.NewNumericDate(now)
	c.NotBefore = gojwt.NewNumericDate(now)
	if ttl > 0 {
		c.ExpiresAt = gojwt.NewNumericDate(now.Add(ttl))
	}
	if audience != "" {
		c.Audience = gojwt.ClaimStrings{audience}
	}
}

// Service signs and parses tokens with claims type T.
type Service[T gojwt.Claims] struct {
	cfg      Config
	newEmpty func() T
	now      func() time.Time
}

// NewService validates cfg and returns a Service.
func NewService[T gojwt.Claims](cfg Config, newEmpty func() T) (*Service[T], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service[T]{cfg: cfg, newEmpty: newEmpty, now: time.Now}, nil
}

// Generate signs claims as-is.
func (s *Service[T]) Generate(claims T) (string, error) {
	token := gojwt.NewWithClaims(s.cfg.signingMethod(), claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Mint stamps subject, issuer, audience, id and the configured TTL onto
// claims, then signs them.
func (s *Service[T]) Mint(claims T, subject string) (string, error) {
	st, ok := any(claims).(stamper)
	if !ok {
		return "", errors.New("jwt: claims type does not embed jwt.Claims")
	}
	st.stamp(s.now(), s.cfg.TTL, s.cfg.Issuer, s.cfg.Audience, subject)
	return s.Generate(claims)
}

// Parse verifies signature, algorithm, expiry, issuer and audience.
func (s *Service[T]) Parse(tokenString string) (T, error) {
	var zero T
	claims := s.newEmpty()
	token, err := gojwt.ParseWithClaims(tokenString, claims, s.keyFunc, s.parserOptions()...)
	if err != nil {
		return zero, fmt.Errorf("jwt: parse token: %w", err)
	}
	if !token.Valid {
		return zero, errors.New("jwt: invalid token")
	}
	parsed, ok := token.Claims.(T)
	if !ok {
		return zero, errors.New("jwt: unexpected claims type")
	}
	return parsed, nil
}

// ValidatorFunc adapts Parse for middleware that does not know T.
func (s *Service[T]) ValidatorFunc() func(string) (any, error) {
	return func(token string) (any, error) {
		return s.Parse(token)
	}
}

func (s *Service[T]) keyFunc(token *gojwt.Token) (any, error) {
	if token.Method.Alg() != s.cfg.signingMethod().Alg() {
		return nil, fmt.Errorf("jwt: unexpected signing method: %s", token.Method.Alg())
	}
	return []byte(s.cfg.Secret), nil
}

func (s *Service[T]) parserOptions() []gojwt.ParserOption {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{s.cfg.signingMethod().Alg()}),
		gojwt.WithTimeFunc(s.now),
		gojwt.WithIssuer(s.cfg.Issuer),
	}
	if s.cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(s.cfg.Audience))
	}
	return opts
}
