package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tropicaldog17/ledger/internal/models"
)

// HoldingsService derives point-in-time positions from the transaction
// store. All results are fresh values owned by the caller.
type HoldingsService interface {
	// AccountHoldings computes the account's holdings as of a date,
	// including the synthetic CASH and TOTAL lines.
	AccountHoldings(ctx context.Context, accountID int64, asOf time.Time) ([]*models.SecurityHolding, error)
	// OpenQuantity returns the account's open quantity in one security as
	// of a date, with one transaction excluded from the replay. Zero
	// excludeID excludes nothing.
	OpenQuantity(ctx context.Context, accountID, securityID int64, asOf time.Time, excludeID int64) (decimal.Decimal, error)
	// AccountPosition returns the account's cash balance and the ids of
	// the securities it currently holds.
	AccountPosition(ctx context.Context, accountID int64) (decimal.Decimal, []int64, error)
	// AccountLedger returns the account's transactions in canonical order
	// with the running balance stamped on each.
	AccountLedger(ctx context.Context, accountID int64) ([]*models.Transaction, error)
}

// AlterService is the transaction-consistency protocol: insert, update and
// delete of a transaction plus its linked counterparts, all-or-nothing.
type AlterService interface {
	// Alter applies one of the four operations selected by the
	// (oldT, newT) pair: no-op, insert, delete or replace.
	Alter(ctx context.Context, oldT, newT *models.Transaction, newMatches []models.MatchInfo) (*models.Transaction, error)
	// Insert persists a new transaction.
	Insert(ctx context.Context, t *models.Transaction, matches []models.MatchInfo) (*models.Transaction, error)
	// Update replaces the persisted transaction carrying t.ID.
	Update(ctx context.Context, t *models.Transaction, matches []models.MatchInfo) (*models.Transaction, error)
	// Delete removes the transaction with the given id.
	Delete(ctx context.Context, id int64) error
	// Reload replaces the in-memory store from persistence. Never runs
	// concurrently with an in-flight alteration.
	Reload(ctx context.Context) error
}
