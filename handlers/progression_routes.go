// handlers/progression_routes.go
package handlers

import (
	"context"

	"college-progress-service/middleware"
	"college-progress-service/services"
	"college-progress-service/utils"

	"github.com/gofiber/fiber/v2"
)

// Deps bundles what the progression routes need.
type Deps struct {
	Progression *services.ProgressionService
	Users       *services.UserService
	Catalog     *services.CatalogService
	Reconcile   *services.ReconcileService
	// LoadCatalog re-reads the configured catalog document.
	LoadCatalog func(ctx context.Context) (*services.CatalogDocument, error)
	Log         *utils.Logger
}

func SetupProgressionRoutes(app *fiber.App, d Deps) {
	secured := app.Group("/user", middleware.UserContextMiddleware())

	secured.Post("/register", func(c *fiber.Ctx) error {
		var req struct {
			Username string `json:"username"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "invalid JSON",
					"cause": err.Error(),
				})
			}
		}
		user, err := d.Users.Register(c.UserContext(), middleware.UserID(c), req.Username)
		if err != nil {
			return respondError(c, d.Log, err)
		}
		return c.JSON(user)
	})

	secured.Get("/progress", func(c *fiber.Ctx) error {
		summary, err := d.Progression.GetProgress(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, d.Log, err)
		}
		return c.JSON(summary)
	})

	secured.Get("/quests", func(c *fiber.Ctx) error {
		quests, err := d.Progression.ListQuests(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, d.Log, err)
		}
		return c.JSON(quests)
	})

	secured.Post("/quests/:id/start", func(c *fiber.Ctx) error {
		uq, err := d.Progression.StartQuest(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, d.Log, err)
		}
		return c.Status(fiber.StatusCreated).JSON(uq)
	})

	secured.Post("/quests/:id/tasks/:taskId/complete", func(c *fiber.Ctx) error {
		res, err := d.Progression.CompleteTask(c.UserContext(), middleware.UserID(c), c.Params("id"), c.Params("taskId"))
		if err != nil {
			return respondError(c, d.Log, err)
		}
		return c.JSON(res)
	})

	secured.Get("/achievements", func(c *fiber.Ctx) error {
		achievements, err := d.Progression.ListAchievements(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, d.Log, err)
		}
		return c.JSON(achievements)
	})

	// Admin endpoints
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	admin.Post("/catalog/reload", func(c *fiber.Ctx) error {
		if d.LoadCatalog == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "catalog source not configured"})
		}
		doc, err := d.LoadCatalog(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": "failed to load catalog",
				"cause": err.Error(),
			})
		}
		report, err := d.Catalog.Seed(c.UserContext(), doc)
		if err != nil {
			return respondError(c, d.Log, err)
		}
		return c.JSON(report)
	})

	admin.Post("/reconcile", func(c *fiber.Ctx) error {
		report, err := d.Reconcile.Run(c.UserContext())
		if err != nil {
			return respondError(c, d.Log, err)
		}
		return c.JSON(report)
	})
}
