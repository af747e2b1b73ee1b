package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tropicaldog17/ledger/internal/db"
	"github.com/tropicaldog17/ledger/internal/models"
)

type priceRepository struct {
	db *gorm.DB
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(database *db.DB) PriceRepository {
	return &priceRepository{db: database.DB}
}

func (r *priceRepository) WithTx(tx *gorm.DB) PriceRepository {
	return &priceRepository{db: tx}
}

// priceDate strips the time of day; prices are keyed by calendar date.
func priceDate(on time.Time) time.Time {
	return time.Date(on.Year(), on.Month(), on.Day(), 0, 0, 0, 0, time.UTC)
}

func (r *priceRepository) LatestOnOrBefore(ctx context.Context, securityID int64, on time.Time) (*models.Price, error) {
	var p models.Price
	err := r.db.WithContext(ctx).
		Where("security_id = ? AND date <= ?", securityID, priceDate(on)).
		Order("date DESC").First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no price for security %d on or before %s", securityID, on.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("failed to get price: %w", err)
	}
	return &p, nil
}

func (r *priceRepository) GetOnDate(ctx context.Context, securityID int64, on time.Time) (*models.Price, error) {
	var p models.Price
	err := r.db.WithContext(ctx).
		Where("security_id = ? AND date = ?", securityID, priceDate(on)).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get price: %w", err)
	}
	return &p, nil
}

func (r *priceRepository) Merge(ctx context.Context, p *models.Price) (bool, error) {
	row := models.Price{
		SecurityID: p.SecurityID,
		Date:       priceDate(p.Date),
		Price:      p.Price,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return false, fmt.Errorf("failed to merge price: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
