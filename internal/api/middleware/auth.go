package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

// Context keys set by Auth.
const (
	PrincipalKey = "principal"
	SessionKey   = "session"
)

// Auth resolves the bearer token into a principal and injects it, together
// with the decoded session, into the echo context. Role checks are not done
// here; services ask the authorizer.
func Auth(resolver ports.Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return domain.ErrNotAuthenticated
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return domain.ErrInvalidToken
			}

			principal, session, err := resolver.Resolve(c.Request().Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return err
			}

			c.Set(PrincipalKey, principal)
			c.Set(SessionKey, session)

			return next(c)
		}
	}
}
