package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/twiller/internal/models"
)

// LoginHistoryRepository stores login attempts in Postgres.
type LoginHistoryRepository struct {
	db *gorm.DB
}

func NewLoginHistoryRepository(db *gorm.DB) *LoginHistoryRepository {
	return &LoginHistoryRepository{db: db}
}

func (r *LoginHistoryRepository) CreateLogin(ctx context.Context, entry *models.LoginHistory) error {
	return translate(r.db.WithContext(ctx).Create(entry).Error, "create login history")
}

func (r *LoginHistoryRepository) ListLogins(ctx context.Context, accountID uuid.UUID, limit int) ([]models.LoginHistory, error) {
	var entries []models.LoginHistory
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("login_at desc").
		Limit(limit).
		Find(&entries).Error
	return entries, translate(err, "list login history")
}

func (r *LoginHistoryRepository) MarkLatestOTPVerified(ctx context.Context, accountID uuid.UUID) (bool, error) {
	var entry models.LoginHistory
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND requires_otp = ? AND otp_verified = ?", accountID, true, false).
		Order("login_at desc").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, translate(err, "find pending login")
	}

	err = r.db.WithContext(ctx).
		Model(&models.LoginHistory{}).
		Where("id = ?", entry.ID).
		Update("otp_verified", true).Error
	return err == nil, translate(err, "verify login")
}
