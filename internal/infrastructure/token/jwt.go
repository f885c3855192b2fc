// Package token issues and verifies the HS256 session tokens handed out at
// login.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

// MinSecretLen is the shortest accepted signing key, in bytes.
const MinSecretLen = 32

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Codec implements ports.TokenCodec with golang-jwt.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// Option customises a Codec.
type Option func(*Codec)

// WithClock replaces time.Now as the source of issue and validation time.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec returns a codec signing with secret. Tokens live for ttl.
func NewCodec(secret []byte, issuer string, ttl time.Duration, opts ...Option) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("token: secret must be at least %d bytes", MinSecretLen)
	}
	if ttl <= 0 {
		return nil, errors.New("token: ttl must be positive")
	}

	c := &Codec{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)
	return c, nil
}

// TTL reports the lifetime of issued tokens.
func (c *Codec) TTL() time.Duration { return c.ttl }

func (c *Codec) Issue(subject, role string) (string, *domain.Session, error) {
	now := c.now()
	cl := claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, sessionOf(cl), nil
}

func (c *Codec) Decode(raw string) (*domain.Session, error) {
	var cl claims
	tkn, err := c.parser.ParseWithClaims(raw, &cl, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, domain.ErrInvalidToken
	}
	if cl.Subject == "" || cl.ID == "" {
		return nil, domain.ErrInvalidToken
	}
	return sessionOf(cl), nil
}

func sessionOf(cl claims) *domain.Session {
	s := &domain.Session{
		ID:      cl.ID,
		Subject: cl.Subject,
		Role:    cl.Role,
	}
	if cl.IssuedAt != nil {
		s.IssuedAt = cl.IssuedAt.Time
	}
	if cl.ExpiresAt != nil {
		s.ExpiresAt = cl.ExpiresAt.Time
	}
	return s
}

var _ ports.TokenCodec = (*Codec)(nil)
