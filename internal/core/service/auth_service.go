package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/programacion-segura/secure-api/internal/api/metrics"
	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

// AuthService implements registration, login, logout and the admin bootstrap.
type AuthService struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	codec    ports.TokenCodec
	denylist ports.TokenDenylist
	log      zerolog.Logger
	now      func() time.Time

	// dummyHash is verified when the username is unknown so both login
	// failures cost the same.
	dummyHash string
}

func NewAuthService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	codec ports.TokenCodec,
	denylist ports.TokenDenylist,
	log zerolog.Logger,
) *AuthService {
	s := &AuthService{
		users:    users,
		hasher:   hasher,
		codec:    codec,
		denylist: denylist,
		log:      log.With().Str("component", "auth").Logger(),
		now:      time.Now,
	}

	seed := make([]byte, 16)
	_, _ = rand.Read(seed)
	if h, err := hasher.Hash(hex.EncodeToString(seed)); err == nil {
		s.dummyHash = h
	} else {
		s.log.Warn().Err(err).Msg("could not prepare dummy password hash")
	}
	return s
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	if err := validateCredentials(in.Username, in.Password); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	email := domain.NormalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	// The unique index still decides races; this only answers early.
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		metrics.RegistrationsTotal.WithLabelValues("conflict").Inc()
		return nil, domain.ErrEmailTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("register: lookup email: %w", err)
	}

	created, err := s.createUser(ctx, in.Username, email, in.Password, domain.RoleUser)
	if err != nil {
		result := "error"
		if errors.Is(err, domain.ErrAlreadyExists) {
			result = "conflict"
		}
		metrics.RegistrationsTotal.WithLabelValues(result).Inc()
		return nil, err
	}

	metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	s.log.Info().Int64("user_id", created.ID).Str("username", created.Username).Msg("user registered")
	return created, nil
}

// Login verifies the credentials and issues a token. An unknown username and
// a wrong password both return domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	if username == "" || password == "" {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			if s.dummyHash != "" {
				_, _ = s.hasher.Verify(password, s.dummyHash)
			}
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("stored password hash is unreadable")
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if !ok {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	token, session, err := s.codec.Issue(user.Username, user.Role)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: issue token: %w", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.log.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("login succeeded")

	return &ports.LoginResult{Token: token, ExpiresAt: session.ExpiresAt, User: user}, nil
}

// Logout revokes the session's token id for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrNotAuthenticated
	}
	if s.denylist == nil {
		return nil
	}
	ttl := session.Remaining(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.denylist.Revoke(ctx, session.ID, ttl); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	metrics.TokensRevokedTotal.Inc()
	s.log.Info().Str("username", session.Subject).Msg("session revoked")
	return nil
}

// BootstrapAdmin creates the first admin when the store has none. It reports
// whether an account was created.
func (s *AuthService) BootstrapAdmin(ctx context.Context, username, email, password string) (*domain.User, bool, error) {
	n, err := s.users.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, false, fmt.Errorf("bootstrap admin: count admins: %w", err)
	}
	if n > 0 {
		return nil, false, nil
	}
	if err := validateCredentials(username, password); err != nil {
		return nil, false, fmt.Errorf("bootstrap admin: %w", err)
	}
	email = domain.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, false, fmt.Errorf("bootstrap admin: %w", err)
	}

	created, err := s.createUser(ctx, username, email, password, domain.RoleAdmin)
	if err != nil {
		return nil, false, fmt.Errorf("bootstrap admin: %w", err)
	}
	s.log.Info().Int64("user_id", created.ID).Str("username", created.Username).Msg("bootstrap admin created")
	return created, true, nil
}

func (s *AuthService) createUser(ctx context.Context, username, email, password, role string) (*domain.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	return s.users.Create(ctx, user)
}

// emails checks addresses with the same rules the HTTP DTOs use. Validate is
// safe for concurrent use.
var emails = validator.New()

func validateEmail(email string) error {
	if email == "" {
		return domain.InvalidInput("email is required")
	}
	if err := emails.Var(email, "email,max=255"); err != nil {
		return domain.InvalidInput("email must be a valid address")
	}
	return nil
}

func validateCredentials(username, password string) error {
	if n := utf8.RuneCountInString(username); n < domain.UsernameMinLen || n > domain.UsernameMaxLen {
		return domain.InvalidInput(fmt.Sprintf("username must be between %d and %d characters", domain.UsernameMinLen, domain.UsernameMaxLen))
	}
	if n := utf8.RuneCountInString(password); n < domain.PasswordMinLen || n > domain.PasswordMaxLen {
		return domain.InvalidInput(fmt.Sprintf("password must be between %d and %d characters", domain.PasswordMinLen, domain.PasswordMaxLen))
	}
	return nil
}
