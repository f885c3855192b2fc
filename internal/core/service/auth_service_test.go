package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type authFixture struct {
	repo     *stubUserRepo
	hasher   *stubHasher
	codec    *stubCodec
	denylist *stubDenylist
	svc      *AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		repo:     newStubUserRepo(),
		hasher:   &stubHasher{},
		codec:    &stubCodec{now: fixedNow, ttl: 30 * time.Minute},
		denylist: newStubDenylist(),
	}
	f.svc = NewAuthService(f.repo, f.hasher, f.codec, f.denylist, zerolog.Nop())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func TestAuthService_Register_Success(t *testing.T) {
	f := newAuthFixture()

	user, err := f.svc.Register(context.Background(), ports.RegisterInput{
		Username: "alice",
		Email:    "Alice@X.com",
		Password: "password1",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("expected store-assigned id")
	}
	if user.Role != domain.RoleUser {
		t.Errorf("expected default role %q, got %q", domain.RoleUser, user.Role)
	}
	if user.Email != "alice@x.com" {
		t.Errorf("expected normalised email, got %q", user.Email)
	}
	if user.PasswordHash == "password1" || user.PasswordHash == "" {
		t.Errorf("expected password to be hashed")
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	f := newAuthFixture()

	cases := []ports.RegisterInput{
		{Username: "al", Email: "al@example.com", Password: "password1"},
		{Username: string(make([]byte, 51)), Email: "long@example.com", Password: "password1"},
		{Username: "carol", Email: "carol@example.com", Password: "short"},
		{Username: "carol", Email: "   ", Password: "password1"},
		{Username: "carol", Email: "not-an-address", Password: "password1"},
	}
	for _, in := range cases {
		if _, err := f.svc.Register(context.Background(), in); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("%+v: expected invalid input, got %v", in, err)
		}
	}
	if len(f.repo.byID) != 0 {
		t.Errorf("expected nothing stored, got %d users", len(f.repo.byID))
	}
}

func TestAuthService_Register_DuplicateUsernameAnyCase(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, ports.RegisterInput{Username: "alice", Email: "alice@x.com", Password: "password1"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err := f.svc.Register(ctx, ports.RegisterInput{Username: "ALICE", Email: "other@x.com", Password: "password1"})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict kind, got %v", err)
	}
	if len(f.repo.byID) != 1 {
		t.Errorf("store changed: %d users", len(f.repo.byID))
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	_, _ = f.svc.Register(ctx, ports.RegisterInput{Username: "alice", Email: "alice@x.com", Password: "password1"})
	hashed := f.hasher.hashCalls
	_, err := f.svc.Register(ctx, ports.RegisterInput{Username: "bob", Email: "ALICE@x.com", Password: "password1"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if f.hasher.hashCalls != hashed {
		t.Errorf("a known email must be rejected before hashing")
	}
}

func TestAuthService_Register_EmailLookupFailure(t *testing.T) {
	f := newAuthFixture()
	f.repo.findErr = errors.New("connection reset")

	_, err := f.svc.Register(context.Background(), ports.RegisterInput{Username: "alice", Email: "alice@x.com", Password: "password1"})
	if err == nil || errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected a store error, got %v", err)
	}
	if len(f.repo.byID) != 0 {
		t.Errorf("nothing must be stored, got %d users", len(f.repo.byID))
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	if _, err := f.svc.Register(ctx, ports.RegisterInput{Username: "alice", Email: "alice@x.com", Password: "password1"}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	res, err := f.svc.Login(ctx, "alice", "password1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected token, got empty")
	}
	if res.User == nil || res.User.Username != "alice" {
		t.Fatalf("unexpected user: %+v", res.User)
	}
	if !res.ExpiresAt.Equal(fixedNow.Add(30 * time.Minute)) {
		t.Errorf("unexpected expiry %v", res.ExpiresAt)
	}
	session, err := f.codec.Decode(res.Token)
	if err != nil || session.Role != domain.RoleUser {
		t.Errorf("token does not carry the user role: %+v %v", session, err)
	}
}

func TestAuthService_Login_UsernameIsCaseSensitive(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	_, _ = f.svc.Register(ctx, ports.RegisterInput{Username: "alice", Email: "alice@x.com", Password: "password1"})
	if _, err := f.svc.Login(ctx, "Alice", "password1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_FailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	_, _ = f.svc.Register(ctx, ports.RegisterInput{Username: "dave", Email: "dave@x.com", Password: "goodpass1"})
	verifiesBefore := f.hasher.verifyCalls

	_, wrongPassword := f.svc.Login(ctx, "dave", "badpass12")
	_, unknownUser := f.svc.Login(ctx, "ghost", "badpass12")

	if !errors.Is(wrongPassword, domain.ErrInvalidCredentials) || !errors.Is(unknownUser, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", wrongPassword, unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Errorf("messages differ: %q vs %q", wrongPassword, unknownUser)
	}
	if got := f.hasher.verifyCalls - verifiesBefore; got != 2 {
		t.Errorf("expected a hash verification on both paths, got %d", got)
	}
	if f.codec.issued != 0 {
		t.Errorf("no token should be issued")
	}
}

func TestAuthService_Logout_RevokesForRemainingLifetime(t *testing.T) {
	f := newAuthFixture()
	session := &domain.Session{
		ID:        "jti-1",
		Subject:   "alice",
		ExpiresAt: fixedNow.Add(10 * time.Minute),
	}

	if err := f.svc.Logout(context.Background(), session); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if ttl := f.denylist.revoked["jti-1"]; ttl != 10*time.Minute {
		t.Errorf("expected 10m revocation, got %v", ttl)
	}
}

func TestAuthService_Logout_DenylistFailure(t *testing.T) {
	f := newAuthFixture()
	f.denylist.err = errors.New("redis down")

	err := f.svc.Logout(context.Background(), &domain.Session{ID: "jti-1", ExpiresAt: fixedNow.Add(time.Minute)})
	if err == nil {
		t.Fatalf("expected error when the denylist is unavailable")
	}
}

func TestAuthService_BootstrapAdmin_CreatesOnce(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	user, created, err := f.svc.BootstrapAdmin(ctx, "admin", "admin@example.com", "admin-password")
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if !created || user.Role != domain.RoleAdmin {
		t.Fatalf("expected admin to be created, got %+v created=%v", user, created)
	}

	_, created, err = f.svc.BootstrapAdmin(ctx, "admin2", "admin2@example.com", "admin-password")
	if err != nil {
		t.Fatalf("second bootstrap failed: %v", err)
	}
	if created {
		t.Errorf("second bootstrap must be a no-op")
	}
	if n, _ := f.repo.CountByRole(ctx, domain.RoleAdmin); n != 1 {
		t.Errorf("expected exactly one admin, got %d", n)
	}
}

func TestAuthService_BootstrapAdmin_RequiresPassword(t *testing.T) {
	f := newAuthFixture()

	if _, _, err := f.svc.BootstrapAdmin(context.Background(), "admin", "admin@example.com", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestAuthService_BootstrapAdmin_RejectsBadEmail(t *testing.T) {
	for _, email := range []string{"", "   ", "admin", "admin@", "@example.com"} {
		f := newAuthFixture()

		_, created, err := f.svc.BootstrapAdmin(context.Background(), "admin", email, "admin-password")
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("email %q: expected invalid input, got %v", email, err)
		}
		if created || len(f.repo.byID) != 0 {
			t.Errorf("email %q: no admin must be stored", email)
		}
	}
}

func TestAuthService_BootstrapAdmin_NormalisesEmail(t *testing.T) {
	f := newAuthFixture()

	user, _, err := f.svc.BootstrapAdmin(context.Background(), "admin", "  Admin@Example.COM ", "admin-password")
	if err != nil {
		t.Fatalf("bootstrap failed: %v", err)
	}
	if user.Email != "admin@example.com" {
		t.Errorf("expected normalised email, got %q", user.Email)
	}
}
