package http

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/programacion-segura/secure-api/internal/infrastructure/http/handlers"
)

// RegisterOperational mounts the operational endpoints that never require
// authentication: liveness, readiness and the Prometheus scrape target.
// A nil gatherer serves the default registry.
func RegisterOperational(e *echo.Echo, gatherer prometheus.Gatherer, deps ...handlers.Dependency) {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	healthHandler := handlers.NewHealthHandler()
	healthDepsHandler := handlers.NewHealthDependenciesHandler(deps...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
}
