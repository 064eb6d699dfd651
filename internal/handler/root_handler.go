package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/email-classifier-api/internal/dto"
)

// LivenessMessage is returned by GET /.
const LivenessMessage = "Email Classification API is running."

// Root reports that the process is up.
func Root() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(dto.RootResponse{Message: LivenessMessage})
	}
}
