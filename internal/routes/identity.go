package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paysync/paysync/internal/identity"
)

// RegisterIdentityRoutes wires account creation. Profile reads are wired in
// Setup behind JWTAuth.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler, idempotency fiber.Handler) {
	r.Post("/register", idempotency, h.Register)
}
