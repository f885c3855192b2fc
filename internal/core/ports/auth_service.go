package ports

import (
	"context"
	"time"

	"github.com/programacion-segura/secure-api/internal/core/domain"
)

// TokenCodec issues and verifies signed session tokens.
type TokenCodec interface {
	Issue(subject, role string) (string, *domain.Session, error)
	// Decode returns domain.ErrInvalidToken for any bad, expired or foreign token.
	Decode(token string) (*domain.Session, error)
}

// TokenDenylist remembers revoked token ids until they expire.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// RateLimitDecision is the outcome of one limiter check.
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter counts attempts per key inside a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}

// RegisterInput carries a self-service registration.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

// AuthService covers registration, login and logout.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Logout(ctx context.Context, session *domain.Session) error
}

// Resolver turns a bearer credential into the calling principal.
type Resolver interface {
	Resolve(ctx context.Context, bearer string) (domain.Principal, *domain.Session, error)
}
