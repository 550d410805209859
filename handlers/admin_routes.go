// handlers/admin_routes.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"monster-league-system/middleware"
	"monster-league-system/services"
)

// SetupAdminRoutes mounts the catalog back office. Requires a gateway-
// authenticated user with the admin role.
func SetupAdminRoutes(app *fiber.App, catalogAdmin *services.CatalogAdminService) {
	admin := app.Group("/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	admin.Post("/objectives", catalogAdmin.CreateObjective)
	admin.Get("/objectives", catalogAdmin.GetAllObjectives)
	admin.Patch("/objectives/:code", catalogAdmin.UpdateObjective)
	admin.Post("/objectives/:code/icon", catalogAdmin.UploadObjectiveIcon)
	admin.Delete("/objectives/:code", catalogAdmin.DeleteObjective)

	admin.Post("/objective-sets", catalogAdmin.CreateObjectiveSet)
	admin.Get("/objective-sets", catalogAdmin.GetAllObjectiveSets)
	admin.Put("/objective-sets/:code/members", catalogAdmin.ReplaceSetMembers)

	admin.Post("/seasons", catalogAdmin.CreateSeason)
	admin.Get("/seasons", catalogAdmin.GetAllSeasons)
	admin.Post("/seasons/:code/activate", catalogAdmin.ActivateSeason)
}
