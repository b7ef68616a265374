package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/questline-learn/questline-api/internal/config"
	"github.com/questline-learn/questline-api/internal/handler"
	"github.com/questline-learn/questline-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SubmissionHandler *handler.SubmissionHandler
	MissionHandler    *handler.MissionHandler
	XPHandler         *handler.XPHandler
	JWTMiddleware     fiber.Handler
	ActorMiddleware   fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided auth middlewares, or no-ops if nil (test harnesses
	// inject their own).
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	actorMiddleware := deps.ActorMiddleware
	if actorMiddleware == nil {
		actorMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.MissionHandler != nil {
		missions := api.Group("/missions", jwtMiddleware, actorMiddleware)
		deps.MissionHandler.Register(missions)
	}

	if deps.SubmissionHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware, actorMiddleware)
		deps.SubmissionHandler.Register(submissions)
	}

	if deps.XPHandler != nil {
		students := api.Group("/students", jwtMiddleware, actorMiddleware)
		deps.XPHandler.Register(students)
	}
}
