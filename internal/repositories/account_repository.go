package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tropicaldog17/ledger/internal/db"
	"github.com/tropicaldog17/ledger/internal/models"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(database *db.DB) AccountRepository {
	return &accountRepository{db: database.DB}
}

func (r *accountRepository) Get(ctx context.Context, id int64) (*models.Account, error) {
	var a models.Account
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

func (r *accountRepository) List(ctx context.Context) ([]*models.Account, error) {
	var accounts []*models.Account
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (r *accountRepository) Create(ctx context.Context, a *models.Account) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *accountRepository) UpdatePosition(ctx context.Context, id int64, balance decimal.Decimal, securityIDs []int64) error {
	// Struct-based update so the json serializer on CurrentSecurityIDs
	// applies; Select forces the write even when the slice is empty.
	result := r.db.WithContext(ctx).Model(&models.Account{ID: id}).
		Select("balance", "current_security_ids").
		Updates(&models.Account{Balance: balance, CurrentSecurityIDs: securityIDs})
	if result.Error != nil {
		return fmt.Errorf("failed to update account position: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("account not found: %d", id)
	}
	return nil
}
