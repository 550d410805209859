// handlers/internal_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"monster-league-system/models"
	"monster-league-system/services"
)

// SetupInternalRoutes mounts the service-to-service surface. Callers are the
// other league subsystems (pack opening, battles, market, fantasy scoring);
// the global gateway token check has already run by the time these execute.
func SetupInternalRoutes(app *fiber.App, recorder *services.ProgressRecorder, resync *services.Resynchronizer) {
	internal := app.Group("/internal")

	// Gameplay delta: "user did X, N times".
	internal.Post("/progress/events", func(c *fiber.Ctx) error {
		var input struct {
			UserID string `json:"user_id"`
			Type   string `json:"type"`
			Amount int64  `json:"amount"`
		}
		if err := c.BodyParser(&input); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}

		if input.UserID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
		}
		objType := models.ObjectiveType(input.Type)
		if !objType.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown objective type", "type": input.Type})
		}
		if input.Amount < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be at least 1"})
		}

		if err := recorder.Record(c.Context(), input.UserID, objType, input.Amount); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to record progress",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "recorded"})
	})

	// Full reconcile for one user, e.g. after support fixes their data.
	internal.Post("/users/:user_id/resync", func(c *fiber.Ctx) error {
		userID := c.Params("user_id")

		if err := resync.Resync(c.Context(), userID); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "resync failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "resynced", "user_id": userID})
	})
}
