package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/paysync/paysync/internal/auth"
	"github.com/paysync/paysync/internal/identity"
)

// JWTAuth returns a middleware that validates JWT access tokens and checks token version.
func JWTAuth(tokens *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])

		user, err := tokens.Authorize(c.UserContext(), tokenStr)
		switch {
		case errors.Is(err, auth.ErrTokenRevoked):
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		case errors.Is(err, auth.ErrInvalidToken):
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		case err != nil:
			return err
		}

		c.Locals(identity.LocalUserID, user.ID)
		c.Locals("token_version", user.TokenVersion)
		return c.Next()
	}
}
