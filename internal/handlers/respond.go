package handlers

import (
	"errors"
	"fmt"

	"tokocheckout/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// respondError writes err with the status matching its kind. Unexpected
// errors are logged and reported as 500 with message.
func respondError(c *fiber.Ctx, log *zap.Logger, message string, err error) error {
	status := fiber.StatusInternalServerError
	switch models.KindOf(err) {
	case models.KindValidation:
		status = fiber.StatusUnprocessableEntity
	case models.KindNotFound:
		status = fiber.StatusNotFound
	case models.KindConflict:
		status = fiber.StatusConflict
	case models.KindSessionExpired:
		status = fiber.StatusUnauthorized
	}

	if status == fiber.StatusInternalServerError {
		log.Error(message, zap.String("path", c.Path()), zap.Error(err))
		return c.Status(status).JSON(fiber.Map{
			"message": message,
			"error":   err.Error(),
		})
	}

	var e *models.Error
	if errors.As(err, &e) && e.Message != "" {
		message = e.Message
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

// badRequest reports a body that could not be parsed or failed validation.
func badRequest(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	errorMessages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		errorMessages[e.Namespace()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}
