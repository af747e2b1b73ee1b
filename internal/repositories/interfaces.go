package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tropicaldog17/ledger/internal/models"
)

// LedgerRepository is the persistence collaborator for transactions, their
// splits and lot-match records. WithTx rebinds the repository to an open
// unit of work so every write in one alteration shares the same database
// transaction.
type LedgerRepository interface {
	WithTx(tx *gorm.DB) LedgerRepository

	GetTransaction(ctx context.Context, id int64) (*models.Transaction, error)
	ListTransactions(ctx context.Context) ([]*models.Transaction, error)
	InsertTransaction(ctx context.Context, t *models.Transaction) error
	UpdateTransaction(ctx context.Context, t *models.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	SetTransactionMatch(ctx context.Context, id, matchID, matchSplitID int64) error
	SetSplitMatch(ctx context.Context, splitID, matchID int64) error

	GetMatchInfo(ctx context.Context, transactionID int64) ([]models.MatchInfo, error)
	InsertMatchInfo(ctx context.Context, entries []models.MatchInfo) error
	DeleteMatchInfo(ctx context.Context, transactionID int64) error
	// IsMatchTarget reports whether any persisted lot assignment consumes
	// the given transaction's lot.
	IsMatchTarget(ctx context.Context, transactionID int64) (bool, error)
}

// PriceRepository is the price collaborator.
type PriceRepository interface {
	WithTx(tx *gorm.DB) PriceRepository

	LatestOnOrBefore(ctx context.Context, securityID int64, on time.Time) (*models.Price, error)
	// GetOnDate returns nil without error when no price is stored for the
	// exact date.
	GetOnDate(ctx context.Context, securityID int64, on time.Time) (*models.Price, error)
	// Merge inserts the price unless one is already stored for
	// (security, date); it reports whether a row was inserted.
	Merge(ctx context.Context, p *models.Price) (bool, error)
}

// AccountRepository is the account collaborator.
type AccountRepository interface {
	Get(ctx context.Context, id int64) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
	Create(ctx context.Context, a *models.Account) error
	// UpdatePosition refreshes the denormalized balance and current
	// security list.
	UpdatePosition(ctx context.Context, id int64, balance decimal.Decimal, securityIDs []int64) error
}

// SecurityRepository looks up and registers securities.
type SecurityRepository interface {
	Get(ctx context.Context, id int64) (*models.Security, error)
	List(ctx context.Context) ([]*models.Security, error)
	Create(ctx context.Context, s *models.Security) error
}
