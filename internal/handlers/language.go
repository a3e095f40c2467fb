package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/twiller/internal/services"
	"github.com/example/twiller/internal/utils"
)

// LanguageHandler switches interface languages behind a passcode.
type LanguageHandler struct {
	languages *services.LanguageService
	echoCode  bool
}

// NewLanguageHandler constructs LanguageHandler.
func NewLanguageHandler(languages *services.LanguageService, echoCode bool) *LanguageHandler {
	return &LanguageHandler{languages: languages, echoCode: echoCode}
}

// Supported lists the language catalog.
func (h *LanguageHandler) Supported(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true, "data": services.SupportedLanguages()})
}

// Current returns the account language.
func (h *LanguageHandler) Current(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	lang, err := h.languages.Current(c.UserContext(), accountID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"language":  lang,
		"supported": services.SupportedLanguages(),
	})
}

type languageOTPRequest struct {
	Language string `json:"language" validate:"required"`
}

// RequestOTP sends a passcode for a language switch.
func (h *LanguageHandler) RequestOTP(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	var req languageOTPRequest
	if err := utils.BindJSON(c, &req); err != nil {
		return err
	}

	ch, err := h.languages.RequestChange(c.UserContext(), accountID, req.Language)
	if err != nil {
		return err
	}
	return otpSent(c, h.echoCode, ch.Code, "OTP sent for "+ch.Language.Name+" verification", fiber.Map{
		"method": ch.Channel,
	})
}

type changeLanguageRequest struct {
	Language string `json:"language" validate:"required"`
	OTP      string `json:"otp" validate:"required,otp"`
}

// Change verifies the passcode and switches the language.
func (h *LanguageHandler) Change(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	var req changeLanguageRequest
	if err := utils.BindJSON(c, &req); err != nil {
		return err
	}

	account, err := h.languages.Change(c.UserContext(), accountID, req.Language, req.OTP)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"language": account.Language,
		"message":  "language changed",
	})
}
