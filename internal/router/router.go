package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/email-classifier-api/internal/config"
	"github.com/noah-isme/email-classifier-api/internal/handler"
	"github.com/noah-isme/email-classifier-api/internal/middleware"
	"github.com/noah-isme/email-classifier-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ClassificationHandler *handler.ClassificationHandler
	Model                 handler.ModelInfo
	// HistoryEnabled is true when a database backs the history endpoint.
	HistoryEnabled bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/", handler.Root())
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Model))

	if deps.ClassificationHandler == nil {
		return
	}

	// Auth is opt-in; without a secret /classify is open.
	var guards []fiber.Handler
	if cfg.JWTSecret != "" {
		guards = append(guards, middleware.JWTProtected(cfg.JWTSecret))
	}
	if cfg.RateLimitMax > 0 {
		guards = append(guards, middleware.RateLimit("classify", cfg.RateLimitMax, window(cfg.RateLimitWindow)))
	}
	deps.ClassificationHandler.Register(app, guards...)

	if deps.HistoryEnabled {
		history := api.Group("/classifications")
		if cfg.JWTSecret != "" {
			history.Use(middleware.JWTProtected(cfg.JWTSecret), middleware.RequireScope("history"))
		}
		deps.ClassificationHandler.RegisterHistory(history)
	}
}

func window(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Minute
	}
	return d
}
