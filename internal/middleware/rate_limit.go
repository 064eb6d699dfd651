package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/email-classifier-api/internal/utils"
)

// RateLimit creates a per-client rate limiter. Authenticated requests are
// keyed by token subject, anonymous ones by remote address.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			clientID, _ := c.Locals("client_id").(string)
			if clientID == "" {
				clientID = c.IP()
			}
			return fmt.Sprintf("%s:%s", identifier, clientID)
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}
