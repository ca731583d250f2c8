package middleware

import (
	"storefront/backend/config"
	"storefront/backend/models"
	"storefront/backend/utils"

	"github.com/gofiber/fiber/v2"
)

const identityKey = "identity"

// AuthMiddleware rejects requests without a valid session and stores the
// resolved identity for the handler.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := utils.ExtractIdentityFromToken(c, cfg)
		if err != nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "Sign in to continue", utils.WithOutcome("unauthenticated"))
		}
		c.Locals(identityKey, id)
		return c.Next()
	}
}

// OptionalAuthMiddleware resolves the identity when a token is present and
// lets anonymous requests through. An invalid token is treated as anonymous.
func OptionalAuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") != "" {
			if id, err := utils.ExtractIdentityFromToken(c, cfg); err == nil {
				c.Locals(identityKey, id)
			}
		}
		return c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware.
func AdminMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentIdentity(c).Role != models.RoleAdmin {
			return utils.Forbidden(c, "Forbidden - Admin access required")
		}
		return c.Next()
	}
}

func CurrentIdentity(c *fiber.Ctx) utils.Identity {
	id, _ := c.Locals(identityKey).(utils.Identity)
	return id
}

// CurrentUser returns the requester's user id, or 0 for anonymous requests.
func CurrentUser(c *fiber.Ctx) uint {
	return CurrentIdentity(c).UserID
}
