package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/twiller/internal/common"
)

type errorKind struct {
	err    error
	status int
	kind   string
}

var errorKinds = []errorKind{
	{common.ErrValidation, fiber.StatusBadRequest, "validation_error"},
	{common.ErrUnsupportedPlan, fiber.StatusBadRequest, "unsupported_plan"},
	{common.ErrOTPMismatch, fiber.StatusBadRequest, "otp_mismatch"},
	{common.ErrOTPExpired, fiber.StatusBadRequest, "otp_expired"},
	{common.ErrOutsideWindow, fiber.StatusForbidden, "outside_window"},
	{common.ErrQuotaExceeded, fiber.StatusForbidden, "quota_exceeded"},
	{common.ErrNotFound, fiber.StatusNotFound, "not_found"},
	{common.ErrConflict, fiber.StatusConflict, "conflict"},
}

// Classify maps err to an HTTP status and a stable error kind.
func Classify(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.kind
		}
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusUnauthorized:
			return fe.Code, "unauthorized"
		case fiber.StatusNotFound:
			return fe.Code, "not_found"
		case fiber.StatusBadRequest:
			return fe.Code, "validation_error"
		}
		return fe.Code, "error"
	}

	return fiber.StatusInternalServerError, "internal"
}

// ErrorHandler renders every returned error as a JSON envelope. Internal
// errors are logged and hidden from the client.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, kind := Classify(err)

		message := err.Error()
		if status == fiber.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
			message = "internal server error"
		}

		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"error":   message,
			"kind":    kind,
		})
	}
}
