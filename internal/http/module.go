// Package http holds the HTTP server scaffolding: the Module interface
// each bounded context implements and the router context it registers
// routes against.
package http

import (
	"leadscore_backend/platform/config"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context with an HTTP surface. The router iterates
// over modules and lets each one mount its own routes, so the router
// never knows individual endpoints.
type Module interface {
	// Name identifies the module in logs.
	Name() string
	// RegisterRoutes mounts the module's routes.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext carries the route groups and shared middleware a module
// may register against.
type RouterContext struct {
	// Engine is the root gin engine, for modules needing engine-level routes.
	Engine *gin.Engine
	// V1 is the public /api/v1 group.
	V1 *gin.RouterGroup
	// Protected is the JWT-authenticated group under /api/v1.
	Protected *gin.RouterGroup
	// Config exposes the JWT settings only.
	Config config.JWTConfig
	// AuthMiddleware is the authentication middleware applied to Protected.
	AuthMiddleware gin.HandlerFunc
}
