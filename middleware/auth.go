// monster-league-system/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"monster-league-system/logger"
)

// UserContextMiddleware extracts the user identity and roles the gateway
// injects after authenticating the caller. Routes mounted behind it can
// rely on c.Locals("user_id") being a non-empty string.
func UserContextMiddleware() fiber.Handler {
	log := logger.WithComponent("user-ctx")

	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			log.Warnf("X-User-ID missing on secured route: %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			r = strings.TrimSpace(r)
			if r != "" {
				roles = append(roles, r)
			}
		}

		c.Locals("user_id", userID)
		c.Locals("user_roles", roles)

		return c.Next()
	}
}

// RequireAdmin rejects callers whose gateway roles do not include "admin".
// Mount after UserContextMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		roles, _ := c.Locals("user_roles").([]string)
		for _, role := range roles {
			if role == "admin" {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "admin role required",
		})
	}
}
