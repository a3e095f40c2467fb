package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/twiller/internal/common"
	"github.com/example/twiller/internal/middleware"
)

func currentAccount(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := middleware.GetCurrentAccountID(c)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return id, nil
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", common.ErrValidation, name)
	}
	return id, nil
}

// otpSent answers a passcode request. The code itself is only included when
// echoing is enabled for demos.
func otpSent(c *fiber.Ctx, echo bool, code, message string, extra fiber.Map) error {
	body := fiber.Map{"success": true, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	if echo {
		body["otp"] = code
	}
	return c.JSON(body)
}
