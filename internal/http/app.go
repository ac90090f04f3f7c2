package http

import (
	"context"

	"leadscore_backend/internal/events"
	"leadscore_backend/platform/config"
	"leadscore_backend/platform/logger"
)

// RouterConfig is the slice of configuration the router actually reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker is what the health endpoint needs from the database.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App bundles the wired application for the router. The composition
// root in cmd/ fills it in and hands it to router.New.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health backs the readiness check, normally a pool adapter.
	Health HealthChecker
	// EventBus connects modules without direct imports.
	EventBus events.Bus
	// Modules are registered in order.
	Modules []Module
}
