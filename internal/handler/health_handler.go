package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/email-classifier-api/internal/config"
	"github.com/noah-isme/email-classifier-api/internal/utils"
)

// ModelInfo describes the loaded classification pipeline.
type ModelInfo struct {
	Clusters      int      `json:"clusters"`
	Detectors     []string `json:"detectors"`
	OverlapPolicy string   `json:"overlap_policy"`
}

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Model       ModelInfo `json:"model"`
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config, model ModelInfo) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Model:       model,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
