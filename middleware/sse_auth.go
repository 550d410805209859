// monster-league-system/middleware/sse_auth.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"monster-league-system/logger"
	"monster-league-system/services"
)

// SSEAuthMiddleware authenticates the stream endpoint. EventSource cannot
// set headers, so the client sends its access token as a query parameter and
// we validate it against the auth service instead of trusting gateway
// headers.
//
// Usage:
//
//	app.Get("/user/objectives/stream", middleware.SSEAuthMiddleware(authClient), streamService.StreamClaimable)
func SSEAuthMiddleware(authClient *services.AuthClient) fiber.Handler {
	log := logger.WithComponent("sse-auth")

	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		if accessToken == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "missing token in query",
			})
		}

		identity, err := authClient.ValidateToken(c.Context(), accessToken)
		if err != nil {
			log.WithError(err).Warnf("token validation failed for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		c.Locals("user_id", identity.UserID)
		c.Locals("user_roles", identity.Roles)

		return c.Next()
	}
}
