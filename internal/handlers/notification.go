package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/twiller/internal/services"
	"github.com/example/twiller/internal/utils"
)

// NotificationHandler manages keyword alert preferences.
type NotificationHandler struct {
	notifications *services.NotificationService
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) Status(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	enabled, err := h.notifications.Status(c.UserContext(), accountID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "notification_enabled": enabled})
}

type toggleNotificationsRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (h *NotificationHandler) Toggle(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	var req toggleNotificationsRequest
	if err := utils.BindJSON(c, &req); err != nil {
		return err
	}

	account, err := h.notifications.SetEnabled(c.UserContext(), accountID, *req.Enabled)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "notification_enabled": account.NotificationEnabled})
}

type checkKeywordsRequest struct {
	TweetID string `json:"tweet_id" validate:"required,uuid"`
}

// CheckKeywords reports whether a tweet triggers keyword alerts.
func (h *NotificationHandler) CheckKeywords(c *fiber.Ctx) error {
	var req checkKeywordsRequest
	if err := utils.BindJSON(c, &req); err != nil {
		return err
	}

	alert, err := h.notifications.CheckKeywords(c.UserContext(), uuid.MustParse(req.TweetID))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": alert})
}
