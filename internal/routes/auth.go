package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paysync/paysync/internal/auth"
)

// RegisterAuthRoutes wires session endpoints.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter, jwtmw fiber.Handler) {
	r.Post("/login", rateLimiter, h.Login)

	group := r.Group("/auth")
	group.Post("/refresh", h.Refresh)
	group.Post("/logout", jwtmw, h.Logout)
}
