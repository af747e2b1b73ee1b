package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tropicaldog17/ledger/internal/db"
	"github.com/tropicaldog17/ledger/internal/models"
)

type securityRepository struct {
	db *gorm.DB
}

// NewSecurityRepository creates a new security repository
func NewSecurityRepository(database *db.DB) SecurityRepository {
	return &securityRepository{db: database.DB}
}

func (r *securityRepository) Get(ctx context.Context, id int64) (*models.Security, error) {
	var s models.Security
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("security not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get security: %w", err)
	}
	return &s, nil
}

func (r *securityRepository) List(ctx context.Context) ([]*models.Security, error) {
	var securities []*models.Security
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&securities).Error; err != nil {
		return nil, fmt.Errorf("failed to list securities: %w", err)
	}
	return securities, nil
}

func (r *securityRepository) Create(ctx context.Context, s *models.Security) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		return fmt.Errorf("failed to create security: %w", err)
	}
	return nil
}
