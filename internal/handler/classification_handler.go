package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/email-classifier-api/internal/dto"
	"github.com/noah-isme/email-classifier-api/internal/service"
	"github.com/noah-isme/email-classifier-api/internal/utils"
)

// ClassificationHandler exposes the mask-and-classify workflow over HTTP.
type ClassificationHandler struct {
	service service.ClassificationService
	logger  zerolog.Logger
}

// NewClassificationHandler constructs a classification handler.
func NewClassificationHandler(service service.ClassificationService, logger zerolog.Logger) *ClassificationHandler {
	return &ClassificationHandler{
		service: service,
		logger:  logger.With().Str("component", "classification_handler").Logger(),
	}
}

// Register wires POST /classify on router. Extra handlers run before it.
func (h *ClassificationHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	handlers := append(guards, h.classify)
	router.Post("/classify", handlers...)
}

// RegisterHistory wires the stored-record listing under router.
func (h *ClassificationHandler) RegisterHistory(router fiber.Router) {
	router.Get("", h.history)
}

// classify answers with the bare result record rather than the usual
// envelope; existing clients depend on that shape.
func (h *ClassificationHandler) classify(c *fiber.Ctx) error {
	var payload dto.ClassificationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload: input_email_body must be a string")
	}

	response, err := h.service.Classify(c.UserContext(), payload)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			details := utils.ValidationDetails(err)
			if details == nil {
				details = map[string]string{"input_email_body": "required"}
			}
			return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", details)
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to classify email")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to classify email")
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *ClassificationHandler) history(c *fiber.Ctx) error {
	var query dto.ClassificationHistoryQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query parameters")
	}

	response, err := h.service.History(c.UserContext(), query)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			return utils.Fail(c, fiber.StatusBadRequest, "invalid query parameters", utils.ValidationDetails(err))
		case errors.Is(err, service.ErrHistoryUnavailable):
			return utils.SendError(c, fiber.StatusServiceUnavailable, "classification history is not enabled")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to list classifications")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to list classifications")
		}
	}

	return utils.SendSuccess(c, "classifications retrieved", response)
}
