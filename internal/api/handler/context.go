package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/programacion-segura/secure-api/internal/api/middleware"
	"github.com/programacion-segura/secure-api/internal/core/domain"
)

// ctxPrincipal returns the caller resolved by the Auth middleware. A missing
// principal means the route was mounted without Auth and is treated as an
// unauthenticated request.
func ctxPrincipal(c echo.Context) (domain.Principal, error) {
	p, ok := c.Get(middleware.PrincipalKey).(domain.Principal)
	if !ok || p.ID == 0 {
		return domain.Principal{}, domain.ErrNotAuthenticated
	}
	return p, nil
}

func ctxSession(c echo.Context) (*domain.Session, error) {
	s, ok := c.Get(middleware.SessionKey).(*domain.Session)
	if !ok || s == nil {
		return nil, domain.ErrNotAuthenticated
	}
	return s, nil
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.InvalidInput(name + " must be an integer")
	}
	return n, nil
}
