package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/twiller/internal/services"
	"github.com/example/twiller/internal/utils"
)

// AudioHandler publishes audio tweets.
type AudioHandler struct {
	audio    *services.AudioService
	echoCode bool
}

// NewAudioHandler constructs AudioHandler.
func NewAudioHandler(audio *services.AudioService, echoCode bool) *AudioHandler {
	return &AudioHandler{audio: audio, echoCode: echoCode}
}

// RequestOTP emails an upload passcode to the account.
func (h *AudioHandler) RequestOTP(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	code, err := h.audio.RequestOTP(c.UserContext(), accountID)
	if err != nil {
		return err
	}
	return otpSent(c, h.echoCode, code, "OTP sent to your email", nil)
}

type uploadAudioRequest struct {
	Email         string  `json:"email" validate:"required,email"`
	OTP           string  `json:"otp" validate:"required,otp"`
	Content       string  `json:"content" validate:"max=280"`
	AudioURL      string  `json:"audio_url" validate:"required,url"`
	AudioDuration float64 `json:"audio_duration" validate:"gt=0"`
	AudioSize     int64   `json:"audio_size" validate:"gt=0"`
}

// Upload publishes an audio tweet.
func (h *AudioHandler) Upload(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	var req uploadAudioRequest
	if err := utils.BindJSON(c, &req); err != nil {
		return err
	}

	tweet, err := h.audio.Upload(c.UserContext(), accountID, services.AudioUpload{
		Email:    req.Email,
		OTP:      req.OTP,
		Content:  req.Content,
		AudioURL: req.AudioURL,
		Duration: req.AudioDuration,
		Size:     req.AudioSize,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    tweet,
		"message": "audio tweet posted",
	})
}
