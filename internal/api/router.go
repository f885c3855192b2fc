package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/programacion-segura/secure-api/internal/api/handler"
	"github.com/programacion-segura/secure-api/internal/api/middleware"
	"github.com/programacion-segura/secure-api/internal/core/ports"
	infrahttp "github.com/programacion-segura/secure-api/internal/infrastructure/http"
	"github.com/programacion-segura/secure-api/internal/infrastructure/http/handlers"
)

const bodyLimit = "1M"

// Dependencies is everything the HTTP surface needs. Services are built by
// the caller so the router never touches storage directly.
type Dependencies struct {
	Auth            ports.AuthService
	Users           ports.UserService
	Vulnerabilities ports.VulnerabilityService
	Resolver        ports.Resolver

	LoginLimiter ports.RateLimiter
	LoginLimit   int
	LoginWindow  time.Duration

	AllowedOrigins []string
	HealthChecks   []handlers.Dependency

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	Log zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)

	registerer := deps.Registerer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     deps.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType, echo.HeaderAccept},
		AllowCredentials: true,
		MaxAge:           600,
	}))
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
	}))
	e.Use(echomiddleware.BodyLimit(bodyLimit))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "secure_api",
		Registerer: registerer,
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	userHandler := handler.NewUserHandler(deps.Users)
	vulnHandler := handler.NewVulnerabilityHandler(deps.Vulnerabilities)
	authMiddleware := middleware.Auth(deps.Resolver)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login, middleware.RateLimit(middleware.RateLimitConfig{
		Limiter: deps.LoginLimiter,
		Limit:   deps.LoginLimit,
		Window:  deps.LoginWindow,
		KeyFunc: middleware.LoginKey,
		Log:     deps.Log,
	}))
	auth.POST("/logout", authHandler.Logout, authMiddleware)

	// --- User administration (bearer required, roles checked by the service) ---
	users := e.Group("/users", authMiddleware)
	users.GET("", userHandler.List)
	users.GET("/", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.UpdateRole)
	users.DELETE("/:id", userHandler.Delete)

	// --- Vulnerability catalog ---
	vulns := e.Group("/stats/vulnerabilidades", authMiddleware)
	vulns.GET("", vulnHandler.List)
	vulns.GET("/", vulnHandler.List)
	vulns.POST("", vulnHandler.Create)
	vulns.POST("/", vulnHandler.Create)
	vulns.GET("/:id", vulnHandler.Get)
	vulns.DELETE("/:id", vulnHandler.Delete)

	// --- Health checks and metrics (no auth required) ---
	infrahttp.RegisterOperational(e, deps.Gatherer, deps.HealthChecks...)

	return e
}

// requestLogger writes one access line per request. Query strings are left
// out so tokens passed by mistake never reach the log.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= http.StatusInternalServerError {
				ev = log.Error()
			} else if v.Status >= http.StatusBadRequest {
				ev = log.Warn()
			}
			ev.Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
