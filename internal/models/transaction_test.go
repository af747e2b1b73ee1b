package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/tropicaldog17/ledger/internal/errors"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCashFlowDirections(t *testing.T) {
	secID := int64(1)
	base := Transaction{
		AccountID:       1,
		Date:            time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		SecurityID:      &secID,
		Quantity:        dec("10"),
		Amount:          dec("100"),
		Commission:      dec("5"),
		AccruedInterest: dec("2"),
	}

	sell := base
	sell.Action = ActionSell
	if got := sell.CashFlow(); !got.Equal(dec("97")) {
		t.Errorf("sell cash flow: got %s, want 97", got)
	}

	buy := base
	buy.Action = ActionBuy
	if got := buy.CashFlow(); !got.Equal(dec("-107")) {
		t.Errorf("buy cash flow: got %s, want -107", got)
	}

	reinv := base
	reinv.Action = ActionReinvDiv
	if got := reinv.CashFlow(); !got.IsZero() {
		t.Errorf("reinvestment cash flow: got %s, want 0", got)
	}
}

func TestTransferAmount(t *testing.T) {
	buy := Transaction{Action: ActionBuy, Amount: dec("100"), Commission: dec("5")}
	if got := buy.TransferAmount(); !got.Equal(dec("105")) {
		t.Errorf("buy transfer amount: got %s, want 105", got)
	}

	reinv := Transaction{Action: ActionReinvDiv, Amount: dec("100")}
	if got := reinv.TransferAmount(); !got.Equal(dec("100")) {
		t.Errorf("reinvestment transfer amount: got %s, want 100", got)
	}
}

func TestCategoryEncoding(t *testing.T) {
	if !IsTransferCategory(TransferCategory(42)) {
		t.Error("encoded transfer category not recognized")
	}
	if got := TransferAccountID(TransferCategory(42)); got != 42 {
		t.Errorf("round trip: got %d, want 42", got)
	}
	if IsTransferCategory(0) {
		t.Error("uncategorized must not read as transfer")
	}
	if IsTransferCategory(MinCategoryID) {
		t.Error("income/expense category must not read as transfer")
	}
	if !IsIncomeExpenseCategory(MinCategoryID) {
		t.Error("MinCategoryID must be an income/expense category")
	}
	if IsIncomeExpenseCategory(MinCategoryID - 1) {
		t.Error("ids below MinCategoryID are not income/expense categories")
	}
}

func TestValidate(t *testing.T) {
	secID := int64(1)
	valid := Transaction{
		AccountID:  1,
		Date:       time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Action:     ActionBuy,
		SecurityID: &secID,
		Quantity:   dec("10"),
		Price:      dec("5"),
		Amount:     dec("50"),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		field  string
	}{
		{"missing account", func(x *Transaction) { x.AccountID = 0 }, "account_id"},
		{"zero date", func(x *Transaction) { x.Date = time.Time{} }, "date"},
		{"unknown action", func(x *Transaction) { x.Action = "NOPE" }, "action"},
		{"negative amount", func(x *Transaction) { x.Amount = dec("-1") }, "amount"},
		{"quantity action without security", func(x *Transaction) { x.SecurityID = nil }, "security_id"},
		{"non-positive quantity", func(x *Transaction) { x.Quantity = decimal.Zero }, "quantity"},
	}
	for _, c := range cases {
		tx := valid
		c.mutate(&tx)
		err := tx.Validate()
		if err == nil {
			t.Errorf("%s: expected validation error", c.name)
			continue
		}
		ve, ok := err.(*apperrors.ErrValidation)
		if !ok {
			t.Errorf("%s: expected *ErrValidation, got %T", c.name, err)
			continue
		}
		if ve.Field != c.field {
			t.Errorf("%s: got field %q, want %q", c.name, ve.Field, c.field)
		}
	}

	split := Transaction{
		AccountID:   1,
		Date:        time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Action:      ActionStkSplit,
		SecurityID:  &secID,
		Quantity:    dec("2"),
		OldQuantity: decimal.Zero,
	}
	if err := split.Validate(); err == nil {
		t.Error("stock split without denominator must be rejected")
	}
}

func TestSplitTotalsAndRemainder(t *testing.T) {
	tx := Transaction{
		Action: ActionWithdraw,
		Amount: dec("100"),
		Splits: []SplitTransaction{
			{Amount: dec("-60")},
			{Amount: dec("-40")},
		},
	}
	if got := tx.SplitTotal(); !got.Equal(dec("-100")) {
		t.Errorf("split total: got %s, want -100", got)
	}
	if got := tx.UnsplitRemainder(); !got.IsZero() {
		t.Errorf("remainder: got %s, want 0", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tx := &Transaction{
		ID:     7,
		Amount: dec("10"),
		Splits: []SplitTransaction{{ID: 1, Amount: dec("-10")}},
	}
	c := tx.Clone()
	c.Amount = dec("20")
	c.Splits[0].Amount = dec("-20")

	if !tx.Amount.Equal(dec("10")) {
		t.Error("clone shares amount with original")
	}
	if !tx.Splits[0].Amount.Equal(dec("-10")) {
		t.Error("clone shares splits with original")
	}
}
