// handlers/objective_routes.go
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"monster-league-system/logger"
	"monster-league-system/middleware"
	"monster-league-system/services"
)

// SetupObjectiveRoutes mounts the player-facing surface. The gateway
// forwards paths like /api/v1/league/s/user/objectives -> /user/objectives.
func SetupObjectiveRoutes(
	app *fiber.App,
	overview *services.OverviewService,
	issuer *services.RewardIssuer,
	resync *services.Resynchronizer,
	wallet *services.WalletService,
	stream *services.StreamService,
	authClient *services.AuthClient,
) {
	// The stream authenticates via query token, not gateway headers:
	// EventSource cannot set headers.
	app.Get("/user/objectives/stream", middleware.SSEAuthMiddleware(authClient), stream.StreamClaimable)

	secured := app.Group("/user", middleware.UserContextMiddleware())

	secured.Get("/objectives", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		view, err := overview.UserObjectives(c.Context(), userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load objectives",
				"cause": err.Error(),
			})
		}
		return c.JSON(view)
	})

	secured.Post("/objectives/:code/claim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		// A claim often follows the qualifying action immediately, so pull
		// fresh counts first. If that fails, the stored state decides.
		if err := resync.Resync(c.Context(), userID); err != nil {
			logger.WithComponent("objectives").WithError(err).Warnf("pre-claim resync failed for user %s", userID)
		}

		result, err := issuer.Claim(c.Context(), userID, c.Params("code"))
		if err != nil {
			return claimError(c, err)
		}
		return c.JSON(result)
	})

	secured.Post("/objective-sets/:code/claim", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		if err := resync.Resync(c.Context(), userID); err != nil {
			logger.WithComponent("objectives").WithError(err).Warnf("pre-claim resync failed for user %s", userID)
		}

		result, err := issuer.ClaimSet(c.Context(), userID, c.Params("code"))
		if err != nil {
			return claimError(c, err)
		}
		return c.JSON(result)
	})

	secured.Get("/wallet", wallet.GetUserWallet)
	secured.Get("/packs", wallet.GetUserPacks)
}

// claimError maps the claim sentinels onto HTTP statuses: unknown codes are
// 404, valid-but-wrong-state claims are 409, everything else is a 500.
func claimError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrObjectiveNotFound),
		errors.Is(err, services.ErrSetNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotCompletedYet),
		errors.Is(err, services.ErrSetNotCompleted),
		errors.Is(err, services.ErrAlreadyClaimed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "claim failed",
			"cause": err.Error(),
		})
	}
}
