package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chat-gateway/internal/api/http/handlers"
	"github.com/spec-kit/chat-gateway/internal/auth"
	"github.com/spec-kit/chat-gateway/internal/mcp"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	SSE            *mcp.Handler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	sseGroup := app.Group("/sse")
	sseGroup.Get("/stream", cfg.SSE.Stream)
	sseGroup.Post("/messages", cfg.SSE.Messages)
}
