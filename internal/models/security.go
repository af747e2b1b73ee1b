package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Security is a tradable instrument referenced by transactions and prices.
type Security struct {
	ID     int64  `json:"id" gorm:"primaryKey;column:id;autoIncrement"`
	Name   string `json:"name" gorm:"column:name;type:varchar(255);not null;uniqueIndex"`
	Ticker string `json:"ticker" gorm:"column:ticker;type:varchar(32);index"`
	Type   string `json:"type" gorm:"column:type;type:varchar(32)"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the table name for the Security model
func (Security) TableName() string {
	return "securities"
}

// Price is one security's closing price on a date. The composite primary
// key makes merges idempotent on (security, date).
type Price struct {
	SecurityID int64           `json:"security_id" gorm:"primaryKey;column:security_id;autoIncrement:false"`
	Date       time.Time       `json:"date" gorm:"primaryKey;column:date;type:date"`
	Price      decimal.Decimal `json:"price" gorm:"column:price;type:decimal(30,18);not null"`
}

// TableName returns the table name for the Price model
func (Price) TableName() string {
	return "prices"
}
