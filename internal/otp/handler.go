package otp

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/paysync/paysync/internal/validation"
)

// Handler exposes the password reset endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type requestOTPRequest struct {
	Identity string `json:"identity" validate:"required,email,max=254"`
}

type requestOTPResponse struct {
	Requested         bool      `json:"requested"`
	ExpiresAt         time.Time `json:"expiresAt"`
	ResendAvailableAt time.Time `json:"resendAvailableAt"`
}

type verifyOTPRequest struct {
	Identity string `json:"identity" validate:"required,email,max=254"`
	Code     string `json:"code" validate:"required,len=4,number"`
}

type verifyOTPResponse struct {
	AuthToken string    `json:"authToken"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,max=72"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// RequestOTP issues a verification code for the given email.
func (h *Handler) RequestOTP(c *fiber.Ctx) error {
	var req requestOTPRequest
	if err := parse(c, &req); err != nil {
		return writeError(c, err)
	}
	issued, err := h.svc.RequestOTP(c.UserContext(), req.Identity)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(requestOTPResponse{
		Requested:         true,
		ExpiresAt:         issued.ExpiresAt,
		ResendAvailableAt: issued.ResendAvailableAt,
	})
}

// VerifyOTP exchanges a valid code for a reset token.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := parse(c, &req); err != nil {
		return writeError(c, err)
	}
	grant, err := h.svc.VerifyOTP(c.UserContext(), req.Identity, req.Code)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(verifyOTPResponse{AuthToken: grant.Token, ExpiresAt: grant.ExpiresAt})
}

// ResetPassword sets a new password using a reset token.
func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := parse(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := h.svc.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true})
}

func parse(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return invalidInput("request body must be valid JSON")
	}
	if err := validation.Struct(v); err != nil {
		return invalidInput(err.Error())
	}
	return nil
}

func writeError(c *fiber.Ctx, err error) error {
	var e *Error
	if !errors.As(err, &e) {
		e = internal("unexpected error", err)
	}
	status := StatusFor(e.Kind)
	msg := e.Message
	if e.Kind == KindInternal {
		msg = "internal error"
	}
	if e.Kind == KindCooldownActive && e.RetryAfter > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retrySeconds(e.RetryAfter)))
	}
	return c.Status(status).JSON(errorResponse{Success: false, Kind: e.Kind, Message: msg})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(k Kind) int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindCooldownActive:
		return http.StatusTooManyRequests
	case KindDeliveryFailure:
		return http.StatusBadGateway
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}
