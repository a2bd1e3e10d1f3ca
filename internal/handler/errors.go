package handler

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/cirkle/internal/port"
)

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, port.ErrUnauthorized),
		errors.Is(err, port.ErrTokenExpired),
		errors.Is(err, port.ErrTokenInvalid):
		return fiber.StatusUnauthorized
	case errors.Is(err, port.ErrNotMember):
		return fiber.StatusForbidden
	case errors.Is(err, port.ErrGroupNotFound),
		errors.Is(err, port.ErrUserNotFound),
		errors.Is(err, port.ErrResourceNotFound),
		errors.Is(err, port.ErrScoreNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, port.ErrAlreadyMember),
		errors.Is(err, port.ErrTimerRunning):
		return fiber.StatusConflict
	case errors.Is(err, port.ErrInvalidInput),
		errors.Is(err, port.ErrInvalidDuration),
		errors.Is(err, port.ErrUnknownProvider):
		return fiber.StatusBadRequest
	case errors.Is(err, port.ErrNoDriveToken):
		return fiber.StatusUnauthorized
	}
	return fiber.StatusInternalServerError
}

// ErrorHandler renders every error returned by a handler as JSON.
func ErrorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := fiber.Map{}

	var fe *fiber.Error
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &fe):
		code = fe.Code
		body["error"] = fe.Message
	case errors.As(err, &verrs):
		fields := make(map[string]string, len(verrs))
		for _, v := range verrs {
			fields[v.Field()] = v.Translate(translator)
		}
		code = fiber.StatusBadRequest
		body["error"] = "validation failed"
		body["fields"] = fields
	default:
		code = StatusFor(err)
		body["error"] = err.Error()
	}

	if code >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		body["error"] = "internal server error"
	}

	return c.Status(code).JSON(body)
}
