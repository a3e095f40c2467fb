package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/twiller/internal/config"
	"github.com/example/twiller/internal/services"
	"github.com/example/twiller/internal/utils"
)

// AccountHandler serves registration and profile endpoints.
type AccountHandler struct {
	accounts *services.AccountService
	cfg      *config.Config
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(accounts *services.AccountService, cfg *config.Config) *AccountHandler {
	return &AccountHandler{accounts: accounts, cfg: cfg}
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Username    string `json:"username" validate:"required,max=50"`
	DisplayName string `json:"display_name" validate:"required,max=100"`
	Avatar      string `json:"avatar" validate:"omitempty,url"`
	Phone       string `json:"phone" validate:"omitempty,e164"`
}

// Register returns the account for an email, creating it on first sight.
func (h *AccountHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := utils.BindJSON(c, &req); err != nil {
		return err
	}

	account, created, err := h.accounts.Register(c.UserContext(), services.RegisterInput{
		Email:       req.Email,
		Username:    req.Username,
		DisplayName: req.DisplayName,
		Avatar:      req.Avatar,
		Phone:       req.Phone,
	})
	if err != nil {
		return err
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, account.ID, h.cfg.TokenExpires)
	if err != nil {
		return err
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    account,
		"token":   token,
	})
}

// Me returns the authenticated account.
func (h *AccountHandler) Me(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	account, err := h.accounts.Me(c.UserContext(), accountID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": account})
}

type updateProfileRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,min=1,max=100"`
	Bio         *string `json:"bio" validate:"omitempty,max=160"`
	Location    *string `json:"location" validate:"omitempty,max=100"`
	Website     *string `json:"website" validate:"omitempty,max=200"`
	Avatar      *string `json:"avatar" validate:"omitempty,max=500"`
	Phone       *string `json:"phone" validate:"omitempty,e164"`
}

// UpdateProfile changes the supplied profile fields.
func (h *AccountHandler) UpdateProfile(c *fiber.Ctx) error {
	accountID, err := currentAccount(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := utils.BindJSON(c, &req); err != nil {
		return err
	}

	account, err := h.accounts.UpdateProfile(c.UserContext(), accountID, services.ProfileUpdate{
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Location:    req.Location,
		Website:     req.Website,
		Avatar:      req.Avatar,
		Phone:       req.Phone,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": account})
}
