package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/twiller/internal/models"
	"github.com/example/twiller/internal/quota"
	"github.com/example/twiller/internal/services"
	"github.com/example/twiller/internal/utils"
	"github.com/example/twiller/internal/window"
)

// SubscriptionHandler sells plans and reports tweet usage.
type SubscriptionHandler struct {
	subs *services.SubscriptionService
}

// NewSubscriptionHandler constructs SubscriptionHandler.
func NewSubscriptionHandler(subs *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs}
}

// Plans lists the plan catalog.
func (h *SubscriptionHandler) Plans(c *fiber.Ctx) error {
	band, _ := window.BandFor(window.Payment)
	return c.JSON(fiber.Map{
		"success":        true,
		"data":           h.subs.Plans(),
		"currency":       quota.Currency,
		"payment_window": band.String(),
	})
}

type subscribeRequest struct {
	Plan string `json:"plan" validate:"required"`
}

// Subscribe buys a plan for the authenticated account.
func (h *SubscriptionHandler) Subscribe(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	var req subscribeRequest
	if err := utils.BindJSON(c, &req); err != nil {
		return err
	}

	sub, err := h.subs.Subscribe(c.UserContext(), accountID, models.PlanTier(req.Plan))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    sub,
		"message": "subscription activated",
	})
}

// Allowance reports whether the account may tweet now.
func (h *SubscriptionHandler) Allowance(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	allowance, err := h.subs.Allowance(c.UserContext(), accountID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": allowance})
}

// Current returns the account's latest subscription.
func (h *SubscriptionHandler) Current(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	sub, err := h.subs.Current(c.UserContext(), accountID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": sub})
}

// RecordPost counts one tweet against the allowance.
func (h *SubscriptionHandler) RecordPost(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	allowance, err := h.subs.RecordPost(c.UserContext(), accountID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": allowance})
}
