package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/twiller/internal/common"
	"github.com/example/twiller/internal/models"
)

// AccountRepository stores accounts in Postgres.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	return translate(r.db.WithContext(ctx).Create(account).Error, "create account")
}

func (r *AccountRepository) SaveAccount(ctx context.Context, account *models.Account) error {
	return translate(r.db.WithContext(ctx).Save(account).Error, "save account")
}

func (r *AccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, translate(err, "find account")
	}
	return &account, nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, translate(err, "find account by email")
	}
	return &account, nil
}

// FindByEmailOrPhone matches either identifier; empty ones are ignored.
func (r *AccountRepository) FindByEmailOrPhone(ctx context.Context, email, phone string) (*models.Account, error) {
	q := r.db.WithContext(ctx)
	switch {
	case email != "" && phone != "":
		q = q.Where("email = ? OR phone = ?", email, phone)
	case email != "":
		q = q.Where("email = ?", email)
	case phone != "":
		q = q.Where("phone = ?", phone)
	default:
		return nil, common.ErrNotFound
	}

	var account models.Account
	if err := q.First(&account).Error; err != nil {
		return nil, translate(err, "find account")
	}
	return &account, nil
}

func (r *AccountRepository) CountNotificationEnabled(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("notification_enabled = ?", true).
		Count(&n).Error
	return n, translate(err, "count accounts")
}
