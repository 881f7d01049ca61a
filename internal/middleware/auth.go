package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/pez-pay/pez_pay/internal/apikey"
	"github.com/pez-pay/pez_pay/internal/auth"
	"github.com/pez-pay/pez_pay/internal/identity"
)

const apiKeyHeader = "x-api-key"

// Authentication methods recorded in the auth_method local.
const (
	AuthMethodAPIKey = "api_key"
	AuthMethodJWT    = "jwt"
)

// Authenticate resolves the caller from an x-api-key header or a bearer
// JWT and stores user_id and auth_method in locals. API keys must carry
// the given permission; JWT sessions carry every permission. An empty
// permission admits any authenticated caller.
func Authenticate(keys *apikey.Service, issuer *auth.TokenIssuer, users identity.Repository, permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if raw := c.Get(apiKeyHeader); raw != "" {
			ownerID, err := keys.Authorize(c.UserContext(), raw, permission)
			if err != nil {
				return err
			}
			c.Locals("user_id", ownerID)
			c.Locals("auth_method", AuthMethodAPIKey)
			return c.Next()
		}

		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing credentials")
		}
		userID, err := issuer.Verify(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		if _, err := users.FindByID(c.UserContext(), userID); err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				return fiber.NewError(http.StatusUnauthorized, "unknown user")
			}
			return err
		}

		c.Locals("user_id", userID)
		c.Locals("auth_method", AuthMethodJWT)
		return c.Next()
	}
}
