package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/email-classifier-api/internal/middleware"
)

// requestLogger scopes base to the active request: its route and, when
// present, the correlation id.
func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	if c == nil {
		return &base
	}
	ctx := base.With().Str("route", c.Route().Path)
	if correlation := middleware.GetCorrelationID(c); correlation != "" {
		ctx = ctx.Str("correlation_id", correlation)
	}
	logger := ctx.Logger()
	return &logger
}
