package models

import "github.com/shopspring/decimal"

// MatchInfo is one explicit lot assignment for a closing trade: the user
// chose to close Quantity shares against the lot opened by
// MatchTransactionID. The full list for a closing trade is written and
// deleted atomically with the trade itself.
type MatchInfo struct {
	ID int64 `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	// TransactionID is the closing trade the assignment belongs to.
	TransactionID int64 `json:"transaction_id" gorm:"column:transaction_id;not null;index"`
	// MatchTransactionID is the opening trade whose lot is consumed.
	MatchTransactionID int64           `json:"match_transaction_id" gorm:"column:match_transaction_id;not null;index"`
	Quantity           decimal.Decimal `json:"quantity" gorm:"column:quantity;type:decimal(30,18);not null"`
}

// TableName returns the table name for the MatchInfo model
func (MatchInfo) TableName() string {
	return "match_infos"
}
