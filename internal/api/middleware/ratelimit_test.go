package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

// countingLimiter allows the first limit calls per key.
type countingLimiter struct {
	counts map[string]int
	keys   []string
	err    error
}

func (l *countingLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (ports.RateLimitDecision, error) {
	if l.err != nil {
		return ports.RateLimitDecision{}, l.err
	}
	if l.counts == nil {
		l.counts = map[string]int{}
	}
	l.keys = append(l.keys, key)
	l.counts[key]++
	remaining := limit - l.counts[key]
	if remaining < 0 {
		remaining = 0
	}
	return ports.RateLimitDecision{
		Allowed:   l.counts[key] <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   time.Now().Add(window),
	}, nil
}

func loginRequest(body, contentType string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, contentType)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/auth/login")
	return c, rec
}

func TestRateLimit_BlocksAfterBudget(t *testing.T) {
	limiter := &countingLimiter{}
	mw := RateLimit(RateLimitConfig{Limiter: limiter, Limit: 2, Window: time.Minute, KeyFunc: LoginKey, Log: zerolog.Nop()})
	next := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for i := 0; i < 2; i++ {
		c, rec := loginRequest(`{"username":"alice","password":"x"}`, echo.MIMEApplicationJSON)
		if err := next(c); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "2" {
			t.Errorf("missing limit header")
		}
	}

	c, rec := loginRequest(`{"username":"alice","password":"x"}`, echo.MIMEApplicationJSON)
	err := next(c)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Errorf("missing Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("expected 0 remaining, got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}

	// A different account from the same address has its own budget.
	c, _ = loginRequest(`{"username":"bob","password":"x"}`, echo.MIMEApplicationJSON)
	if err := next(c); err != nil {
		t.Fatalf("bob should not be limited: %v", err)
	}
}

func TestLoginKey_RestoresBody(t *testing.T) {
	c, _ := loginRequest("username=Alice&password=secret", echo.MIMEApplicationForm)

	if got := LoginKey(c); got != "10.0.0.1|alice" {
		t.Fatalf("unexpected key %q", got)
	}
	body, _ := io.ReadAll(c.Request().Body)
	if string(body) != "username=Alice&password=secret" {
		t.Fatalf("body not restored: %q", body)
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	mw := RateLimit(RateLimitConfig{Limiter: &countingLimiter{err: errors.New("redis down")}, Limit: 1, Window: time.Minute, Log: zerolog.Nop()})
	c, rec := loginRequest(`{}`, echo.MIMEApplicationJSON)

	if err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c); err != nil {
		t.Fatalf("expected request to pass, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
