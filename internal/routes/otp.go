package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/paysync/paysync/internal/otp"
)

// RegisterOTPRoutes wires the password reset flow.
func RegisterOTPRoutes(r fiber.Router, h *otp.Handler, rateLimiter fiber.Handler) {
	r.Post("/otp/request", rateLimiter, h.RequestOTP)
	r.Post("/otp/verify", h.VerifyOTP)
	r.Post("/password/reset", h.ResetPassword)
}
