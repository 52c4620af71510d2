package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/paysync/paysync/internal/validation"
)

// LocalUserID is the fiber.Ctx local holding the authenticated user id.
const LocalUserID = "user_id"

// Handler provides HTTP handlers for identity operations.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=100"`
}

// Register creates a new account.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "request body must be valid JSON")
	}
	if err := validation.Struct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.svc.Register(c.UserContext(), Registration{Email: req.Email, Password: req.Password, Name: req.Name})
	switch {
	case errors.Is(err, ErrUserExists):
		return fiber.NewError(http.StatusBadRequest, "User already exists")
	case errors.Is(err, ErrInvalidRegistration):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User created",
		"user":    user.Public(),
	})
}

// Profile returns the caller's own account. Reading another user's profile is forbidden.
func (h *Handler) Profile(c *fiber.Ctx) error {
	id := c.Params("id")
	caller, _ := c.Locals(LocalUserID).(string)
	if caller == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
	}
	if id != caller {
		return fiber.NewError(http.StatusForbidden, "forbidden")
	}
	user, err := h.svc.Get(c.UserContext(), id)
	if errors.Is(err, ErrUserNotFound) {
		return fiber.NewError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "user": user.Public()})
}
