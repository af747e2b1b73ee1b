package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies an account; INVESTING accounts get the
// security-aware ledger ordering and holdings reports.
type AccountType string

const (
	AccountTypeSpending  AccountType = "SPENDING"
	AccountTypeInvesting AccountType = "INVESTING"
	AccountTypeCredit    AccountType = "CREDIT"
	AccountTypeLoan      AccountType = "LOAN"
)

// Account is a ledger account. Balance and CurrentSecurityIDs are
// denormalized mirrors refreshed after each committed alteration.
type Account struct {
	ID          int64       `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	Name        string      `json:"name" gorm:"column:name;type:varchar(255);not null;uniqueIndex"`
	Type        AccountType `json:"type" gorm:"column:type;type:varchar(20);not null;index"`
	Description *string     `json:"description" gorm:"column:description;type:text"`
	Hidden      bool        `json:"hidden" gorm:"column:hidden;not null;default:false"`

	Balance            decimal.Decimal `json:"balance" gorm:"column:balance;type:decimal(30,18);not null;default:0"`
	CurrentSecurityIDs []int64         `json:"current_security_ids" gorm:"column:current_security_ids;serializer:json"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for the Account model
func (Account) TableName() string {
	return "accounts"
}

// IsInvesting reports whether the account tracks securities.
func (a *Account) IsInvesting() bool {
	return a.Type == AccountTypeInvesting
}

// HoldsSecurity reports whether the security id is in the account's current
// security list.
func (a *Account) HoldsSecurity(securityID int64) bool {
	for _, id := range a.CurrentSecurityIDs {
		if id == securityID {
			return true
		}
	}
	return false
}
