package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/twiller/internal/services"
	"github.com/example/twiller/internal/utils"
)

// LoginHistoryHandler records logins and lists them.
type LoginHistoryHandler struct {
	logins   *services.LoginService
	echoCode bool
}

// NewLoginHistoryHandler constructs LoginHistoryHandler.
func NewLoginHistoryHandler(logins *services.LoginService, echoCode bool) *LoginHistoryHandler {
	return &LoginHistoryHandler{logins: logins, echoCode: echoCode}
}

// Record stores the current login using the request's address and
// User-Agent header.
func (h *LoginHistoryHandler) Record(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	res, err := h.logins.Record(c.UserContext(), accountID, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return err
	}

	message := "login recorded"
	if res.RequiresOTP {
		message = "OTP verification required for Chrome browser"
	}
	return otpSent(c, h.echoCode, res.Code, message, fiber.Map{
		"requires_otp": res.RequiresOTP,
		"browser":      res.Entry.Browser,
		"device_type":  res.Entry.DeviceType,
		"data":         res.Entry,
	})
}

// History lists recent logins, newest first.
func (h *LoginHistoryHandler) History(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	history, err := h.logins.History(c.UserContext(), accountID, c.QueryInt("limit", services.DefaultHistoryLimit))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data":    history,
		"total":   len(history),
	})
}

type verifyLoginRequest struct {
	OTP string `json:"otp" validate:"required,otp"`
}

// VerifyOTP confirms the latest login that awaits a passcode.
func (h *LoginHistoryHandler) VerifyOTP(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	var req verifyLoginRequest
	if err := utils.BindJSON(c, &req); err != nil {
		return err
	}

	if err := h.logins.VerifyOTP(c.UserContext(), accountID, req.OTP); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "OTP verified"})
}
