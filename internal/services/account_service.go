package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/twiller/internal/common"
	"github.com/example/twiller/internal/models"
	"github.com/example/twiller/internal/quota"
)

// DefaultLanguage is assigned to new accounts.
const DefaultLanguage = "en"

type RegisterInput struct {
	Email       string
	Username    string
	DisplayName string
	Avatar      string
	Phone       string
}

// ProfileUpdate carries the fields to change; nil leaves a field as is.
type ProfileUpdate struct {
	DisplayName *string
	Bio         *string
	Location    *string
	Website     *string
	Avatar      *string
	Phone       *string
}

// AccountService manages profiles of accounts authenticated elsewhere.
type AccountService struct {
	accounts AccountStore
	quota    *quota.Service
	logger   *zap.Logger
}

func NewAccountService(accounts AccountStore, quotas *quota.Service, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{accounts: accounts, quota: quotas, logger: logger.Named("accounts")}
}

// Register returns the account for in.Email, creating it with a free
// subscription when it does not exist yet. created reports which happened.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (account *models.Account, created bool, err error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, false, fmt.Errorf("%w: email is required", common.ErrValidation)
	}

	existing, err := s.accounts.FindByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	account = &models.Account{
		Email:               email,
		Username:            in.Username,
		DisplayName:         in.DisplayName,
		Avatar:              in.Avatar,
		Phone:               in.Phone,
		Language:            DefaultLanguage,
		NotificationEnabled: true,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, common.ErrConflict) {
			// Registered concurrently.
			existing, findErr := s.accounts.FindByEmail(ctx, email)
			if findErr != nil {
				return nil, false, findErr
			}
			return existing, false, nil
		}
		return nil, false, err
	}

	if _, err := s.quota.CheckAndMaybeReset(ctx, account.ID); err != nil {
		s.logger.Warn("failed to create initial subscription",
			zap.Stringer("account_id", account.ID), zap.Error(err))
	}

	s.logger.Info("account registered", zap.Stringer("account_id", account.ID))
	return account, true, nil
}

func (s *AccountService) Me(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

func (s *AccountService) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	apply(&account.DisplayName, upd.DisplayName)
	apply(&account.Bio, upd.Bio)
	apply(&account.Location, upd.Location)
	apply(&account.Website, upd.Website)
	apply(&account.Avatar, upd.Avatar)
	apply(&account.Phone, upd.Phone)

	if err := s.accounts.SaveAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return account, nil
}
