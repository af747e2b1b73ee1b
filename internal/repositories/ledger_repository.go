package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tropicaldog17/ledger/internal/db"
	"github.com/tropicaldog17/ledger/internal/models"
)

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(database *db.DB) LedgerRepository {
	return &ledgerRepository{db: database.DB}
}

func (r *ledgerRepository) WithTx(tx *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: tx}
}

func (r *ledgerRepository) GetTransaction(ctx context.Context, id int64) (*models.Transaction, error) {
	var t models.Transaction
	if err := r.db.WithContext(ctx).Preload("Splits").First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("transaction not found: %d", id)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &t, nil
}

func (r *ledgerRepository) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	if err := r.db.WithContext(ctx).Preload("Splits").Order("id ASC").Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (r *ledgerRepository) InsertTransaction(ctx context.Context, t *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// transactionColumns builds the explicit column set written on update, so a
// zeroed field is written as its zero value without touching created_at.
func transactionColumns(t *models.Transaction) map[string]interface{} {
	return map[string]interface{}{
		"account_id":       t.AccountID,
		"date":             t.Date,
		"acquisition_date": t.ADate,
		"action":           t.Action,
		"status":           t.Status,
		"security_id":      t.SecurityID,
		"quantity":         t.Quantity,
		"old_quantity":     t.OldQuantity,
		"price":            t.Price,
		"commission":       t.Commission,
		"accrued_interest": t.AccruedInterest,
		"amount":           t.Amount,
		"category_id":      t.CategoryID,
		"tag_id":           t.TagID,
		"match_id":         t.MatchID,
		"match_split_id":   t.MatchSplitID,
		"payee":            t.Payee,
		"memo":             t.Memo,
	}
}

func (r *ledgerRepository) UpdateTransaction(ctx context.Context, t *models.Transaction) error {
	if t == nil || t.ID <= 0 {
		return fmt.Errorf("transaction id is required for update")
	}

	result := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("id = ?", t.ID).Updates(transactionColumns(t))
	if result.Error != nil {
		return fmt.Errorf("failed to update transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("no transaction found with id %d", t.ID)
	}

	return r.replaceSplits(ctx, t)
}

// replaceSplits reconciles the persisted split set with t.Splits. Splits
// that already carry an id are updated in place so links pointing at a
// split id stay valid; splits not present any more are removed.
func (r *ledgerRepository) replaceSplits(ctx context.Context, t *models.Transaction) error {
	keep := make([]int64, 0, len(t.Splits))
	for i := range t.Splits {
		s := &t.Splits[i]
		s.TransactionID = t.ID
		if s.ID > 0 {
			if err := r.db.WithContext(ctx).Save(s).Error; err != nil {
				return fmt.Errorf("failed to update split: %w", err)
			}
		} else {
			if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
				return fmt.Errorf("failed to create split: %w", err)
			}
		}
		keep = append(keep, s.ID)
	}

	q := r.db.WithContext(ctx).Where("transaction_id = ?", t.ID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	if err := q.Delete(&models.SplitTransaction{}).Error; err != nil {
		return fmt.Errorf("failed to prune splits: %w", err)
	}
	return nil
}

func (r *ledgerRepository) DeleteTransaction(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", id).Delete(&models.SplitTransaction{}).Error; err != nil {
		return fmt.Errorf("failed to delete splits: %w", err)
	}
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Transaction{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("transaction not found: %d", id)
	}
	return nil
}

func (r *ledgerRepository) SetTransactionMatch(ctx context.Context, id, matchID, matchSplitID int64) error {
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("id = ?", id).
		Updates(map[string]interface{}{"match_id": matchID, "match_split_id": matchSplitID}).Error
	if err != nil {
		return fmt.Errorf("failed to set transaction match: %w", err)
	}
	return nil
}

func (r *ledgerRepository) SetSplitMatch(ctx context.Context, splitID, matchID int64) error {
	err := r.db.WithContext(ctx).Model(&models.SplitTransaction{}).Where("id = ?", splitID).
		Update("match_id", matchID).Error
	if err != nil {
		return fmt.Errorf("failed to set split match: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetMatchInfo(ctx context.Context, transactionID int64) ([]models.MatchInfo, error) {
	var entries []models.MatchInfo
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).Order("id ASC").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get match info: %w", err)
	}
	return entries, nil
}

func (r *ledgerRepository) InsertMatchInfo(ctx context.Context, entries []models.MatchInfo) error {
	if len(entries) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&entries).Error; err != nil {
		return fmt.Errorf("failed to insert match info: %w", err)
	}
	return nil
}

func (r *ledgerRepository) DeleteMatchInfo(ctx context.Context, transactionID int64) error {
	if err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).Delete(&models.MatchInfo{}).Error; err != nil {
		return fmt.Errorf("failed to delete match info: %w", err)
	}
	return nil
}

func (r *ledgerRepository) IsMatchTarget(ctx context.Context, transactionID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.MatchInfo{}).
		Where("match_transaction_id = ?", transactionID).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check match targets: %w", err)
	}
	return count > 0, nil
}
