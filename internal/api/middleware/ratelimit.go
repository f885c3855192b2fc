package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/programacion-segura/secure-api/internal/api/metrics"
	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Limiter ports.RateLimiter
	Limit   int
	Window  time.Duration
	// KeyFunc derives the bucket key. Defaults to the client IP.
	KeyFunc func(c echo.Context) string
	Log     zerolog.Logger
}

// RateLimit rejects requests over the configured budget with 429 and
// advertises the budget in X-RateLimit-* headers. A limiter failure lets the
// request through.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c echo.Context) string { return c.RealIP() }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Path() + "|" + keyFunc(c)
			d, err := cfg.Limiter.Allow(c.Request().Context(), key, cfg.Limit, cfg.Window)
			if err != nil {
				cfg.Log.Warn().Err(err).Str("path", c.Path()).Msg("rate limiter unavailable")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				retry := int(time.Until(d.ResetAt).Round(time.Second) / time.Second)
				if retry < 1 {
					retry = 1
				}
				h.Set(echo.HeaderRetryAfter, strconv.Itoa(retry))
				metrics.RateLimitedTotal.WithLabelValues(c.Path()).Inc()
				cfg.Log.Warn().Str("path", c.Path()).Str("ip", c.RealIP()).Msg("rate limit exceeded")
				return domain.ErrTooManyAttempts
			}
			return next(c)
		}
	}
}

// LoginKey keys login attempts by client IP and submitted username, so one
// address cannot spray many accounts and one account cannot be hammered from
// one address. The request body is restored for the handler.
func LoginKey(c echo.Context) string {
	return c.RealIP() + "|" + strings.ToLower(peekUsername(c))
}

func peekUsername(c echo.Context) string {
	req := c.Request()
	if req.Body == nil {
		return ""
	}
	body, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	req.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	if strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationForm) {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return ""
		}
		return values.Get("username")
	}

	var payload struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Username
}
