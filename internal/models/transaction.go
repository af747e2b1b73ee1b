package models

import (
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/tropicaldog17/ledger/internal/errors"
)

// Category id space. Ids at or above MinCategoryID are income/expense
// categories; negative ids address an account (transfer target); zero means
// uncategorized. Account ids live below MinCategoryID so the two ranges can
// never collide.
const (
	MinCategoryID int64 = 1 << 20
	MinAccountID  int64 = 1
)

// Match link sentinels. A persisted id is always positive, so these two
// values are reserved for "no counterpart" and "deliberately unlinked".
const (
	MatchIDNone     int64 = -1
	MatchIDUnlinked int64 = 0
)

// TransactionStatus orders reconciliation states; the numeric order is the
// sort order used by the canonical per-account view (descending).
type TransactionStatus int

const (
	StatusUncleared TransactionStatus = iota
	StatusCleared
	StatusReconciled
)

// Transaction is a single ledger entry, cash or security.
type Transaction struct {
	ID        int64     `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	AccountID int64     `json:"account_id" gorm:"column:account_id;not null;index"`
	Date      time.Time `json:"date" gorm:"column:date;not null;index"`
	// ADate is the acquisition date for transferred-in shares; nil means the
	// trade date applies.
	ADate  *time.Time        `json:"acquisition_date" gorm:"column:acquisition_date"`
	Action TradeAction       `json:"action" gorm:"column:action;type:varchar(16);not null;index"`
	Status TransactionStatus `json:"status" gorm:"column:status;not null;default:0"`

	SecurityID *int64 `json:"security_id" gorm:"column:security_id;index"`

	Quantity decimal.Decimal `json:"quantity" gorm:"column:quantity;type:decimal(30,18);not null"`
	// OldQuantity is the split ratio denominator for STKSPLIT.
	OldQuantity     decimal.Decimal `json:"old_quantity" gorm:"column:old_quantity;type:decimal(30,18);not null"`
	Price           decimal.Decimal `json:"price" gorm:"column:price;type:decimal(30,18);not null"`
	Commission      decimal.Decimal `json:"commission" gorm:"column:commission;type:decimal(30,18);not null;default:0"`
	AccruedInterest decimal.Decimal `json:"accrued_interest" gorm:"column:accrued_interest;type:decimal(30,18);not null;default:0"`
	// Amount is the non-negative notional; direction comes from the action.
	Amount decimal.Decimal `json:"amount" gorm:"column:amount;type:decimal(30,18);not null"`

	CategoryID int64 `json:"category_id" gorm:"column:category_id;not null;default:0"`
	TagID      int64 `json:"tag_id" gorm:"column:tag_id;not null;default:0"`

	// MatchID is the id of the linked counterpart transaction; MatchSplitID
	// identifies the counterpart's split line when the link targets one.
	// No column default: the unlinked sentinel is zero, so the writer must
	// always store an explicit value.
	MatchID      int64 `json:"match_id" gorm:"column:match_id;not null"`
	MatchSplitID int64 `json:"match_split_id" gorm:"column:match_split_id;not null"`

	Payee *string `json:"payee" gorm:"column:payee;type:varchar(255)"`
	Memo  *string `json:"memo" gorm:"column:memo;type:text"`

	Splits []SplitTransaction `json:"splits" gorm:"foreignKey:TransactionID"`

	// Balance is the running account balance stamped by the holdings
	// computation for ledger display. Never persisted.
	Balance decimal.Decimal `json:"balance" gorm:"-"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for the Transaction model
func (Transaction) TableName() string {
	return "transactions"
}

// SplitTransaction allocates part of a parent transaction's amount to a
// different category or transfer target.
type SplitTransaction struct {
	ID            int64           `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	TransactionID int64           `json:"transaction_id" gorm:"column:transaction_id;not null;index"`
	CategoryID    int64           `json:"category_id" gorm:"column:category_id;not null;default:0"`
	TagID         int64           `json:"tag_id" gorm:"column:tag_id;not null;default:0"`
	Payee         *string         `json:"payee" gorm:"column:payee;type:varchar(255)"`
	Memo          *string         `json:"memo" gorm:"column:memo;type:text"`
	Amount        decimal.Decimal `json:"amount" gorm:"column:amount;type:decimal(30,18);not null"`
	MatchID       int64           `json:"match_id" gorm:"column:match_id;not null"`
}

// TableName returns the table name for the SplitTransaction model
func (SplitTransaction) TableName() string {
	return "split_transactions"
}

// IsTransferCategory reports whether a category id encodes a transfer
// target (a negated account id).
func IsTransferCategory(categoryID int64) bool {
	return categoryID <= -MinAccountID
}

// TransferAccountID decodes the target account id from a transfer category.
func TransferAccountID(categoryID int64) int64 {
	return -categoryID
}

// TransferCategory encodes an account id as a transfer category.
func TransferCategory(accountID int64) int64 {
	return -accountID
}

// IsIncomeExpenseCategory reports whether the id names a real
// income/expense category.
func IsIncomeExpenseCategory(categoryID int64) bool {
	return categoryID >= MinCategoryID
}

// CashFlow returns the signed cash effect of the transaction on its own
// account: positive for inflows, negative for outflows, zero for cash-neutral
// actions. Commission always reduces cash; accrued interest is paid on a
// purchase and received on a disposal.
func (t *Transaction) CashFlow() decimal.Decimal {
	switch t.Action.CashSign() {
	case CashInflow:
		return t.Amount.Sub(t.Commission).Add(t.AccruedInterest)
	case CashOutflow:
		return t.Amount.Add(t.Commission).Add(t.AccruedInterest).Neg()
	}
	return decimal.Zero
}

// TransferAmount returns the magnitude a linked counterpart mirrors. For
// cash-neutral actions that still pair (reinvestments funded elsewhere) the
// notional stands in for the cash flow.
func (t *Transaction) TransferAmount() decimal.Decimal {
	if t.Action.CashSign() == CashNeutral {
		return t.Amount
	}
	return t.CashFlow().Abs()
}

// SplitTotal sums the signed split amounts.
func (t *Transaction) SplitTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range t.Splits {
		total = total.Add(t.Splits[i].Amount)
	}
	return total
}

// UnsplitRemainder is the part of the net cash effect not allocated to any
// split line.
func (t *Transaction) UnsplitRemainder() decimal.Decimal {
	return t.CashFlow().Sub(t.SplitTotal())
}

// HasLinkedSplit reports whether any split line carries its own counterpart
// link.
func (t *Transaction) HasLinkedSplit() bool {
	for i := range t.Splits {
		if t.Splits[i].MatchID > 0 {
			return true
		}
	}
	return false
}

// Validate checks structural correctness of the transaction value. Rules
// that need ledger context (self-transfer, open quantity) live in the alter
// protocol.
func (t *Transaction) Validate() error {
	if t.AccountID <= 0 {
		return &apperrors.ErrValidation{Field: "account_id", Message: "account is required"}
	}
	if t.Date.IsZero() {
		return &apperrors.ErrValidation{Field: "date", Message: "date is required"}
	}
	if !t.Action.Valid() {
		return &apperrors.ErrValidation{Field: "action", Message: "unknown trade action"}
	}
	if t.Amount.IsNegative() {
		return &apperrors.ErrValidation{Field: "amount", Message: "amount must be non-negative"}
	}
	if t.Action.HasQuantity() && t.SecurityID == nil {
		return &apperrors.ErrValidation{Field: "security_id", Message: "security is required for " + string(t.Action)}
	}
	if t.Action.HasQuantity() && !t.Quantity.IsPositive() {
		return &apperrors.ErrValidation{Field: "quantity", Message: "quantity must be positive"}
	}
	if t.Action == ActionStkSplit && !t.OldQuantity.IsPositive() {
		return &apperrors.ErrValidation{Field: "old_quantity", Message: "split denominator must be positive"}
	}
	if t.MatchID > 0 && t.HasLinkedSplit() && t.MatchSplitID <= 0 {
		return &apperrors.ErrValidation{Field: "match_split_id", Message: "linked transaction with linked splits must name its own linked split"}
	}
	return nil
}

// Clone returns a deep copy; the splits slice is copied so callers can
// mutate the copy freely.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if len(t.Splits) > 0 {
		c.Splits = make([]SplitTransaction, len(t.Splits))
		copy(c.Splits, t.Splits)
	}
	return &c
}
