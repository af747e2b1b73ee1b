package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tropicaldog17/ledger/internal/models"
)

func findHolding(report []*models.SecurityHolding, name string) *models.SecurityHolding {
	for _, h := range report {
		if h.SecurityName == name {
			return h
		}
	}
	return nil
}

func TestHoldingsTotalIdentity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	accountID := env.createAccount(t, "Brokerage", models.AccountTypeInvesting)
	secID := env.createSecurity(t, "ACME")

	_, err := env.alter.Insert(ctx, deposit(accountID, day(2023, 1, 1), "5000"), nil)
	require.NoError(t, err)
	_, err = env.alter.Insert(ctx, buy(accountID, secID, day(2023, 2, 1), "100", "10"), nil)
	require.NoError(t, err)

	report, err := env.holdings.AccountHoldings(ctx, accountID, day(2023, 3, 1))
	require.NoError(t, err)

	total := findHolding(report, models.TotalHoldingName)
	cash := findHolding(report, models.CashHoldingName)
	acme := findHolding(report, "ACME")
	require.NotNil(t, total)
	require.NotNil(t, cash)
	require.NotNil(t, acme)

	assert.True(t, cash.MarketValue.Equal(dec("4000")), "cash: %s", cash.MarketValue)
	assert.True(t, acme.MarketValue.Equal(dec("1000")), "acme: %s", acme.MarketValue)
	// TOTAL = CASH + every security's market value.
	assert.True(t, total.MarketValue.Equal(cash.MarketValue.Add(acme.MarketValue)),
		"total %s != cash %s + acme %s", total.MarketValue, cash.MarketValue, acme.MarketValue)
}

func TestHoldingsFIFOSale(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	accountID := env.createAccount(t, "Brokerage", models.AccountTypeInvesting)
	secID := env.createSecurity(t, "ACME")

	_, err := env.alter.Insert(ctx, buy(accountID, secID, day(2023, 1, 1), "100", "10"), nil)
	require.NoError(t, err)
	_, err = env.alter.Insert(ctx, sell(accountID, secID, day(2023, 6, 1), "40", "15"), nil)
	require.NoError(t, err)

	report, err := env.holdings.AccountHoldings(ctx, accountID, day(2023, 6, 30))
	require.NoError(t, err)

	acme := findHolding(report, "ACME")
	require.NotNil(t, acme)
	assert.True(t, acme.Quantity.Equal(dec("60")), "quantity: %s", acme.Quantity)
	assert.True(t, acme.RealizedPnL.Equal(dec("200")), "realized: %s", acme.RealizedPnL)
}

// A holdings snapshot taken before a sale must not see it.
func TestHoldingsAsOfCutoff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	accountID := env.createAccount(t, "Brokerage", models.AccountTypeInvesting)
	secID := env.createSecurity(t, "ACME")

	_, err := env.alter.Insert(ctx, buy(accountID, secID, day(2023, 1, 1), "100", "10"), nil)
	require.NoError(t, err)
	_, err = env.alter.Insert(ctx, sell(accountID, secID, day(2023, 6, 1), "40", "15"), nil)
	require.NoError(t, err)

	report, err := env.holdings.AccountHoldings(ctx, accountID, day(2023, 3, 1))
	require.NoError(t, err)

	acme := findHolding(report, "ACME")
	require.NotNil(t, acme)
	assert.True(t, acme.Quantity.Equal(dec("100")), "quantity: %s", acme.Quantity)
	assert.True(t, acme.RealizedPnL.IsZero(), "realized: %s", acme.RealizedPnL)
}

// A 2-for-1 split after the last stored price date halves the stale price
// before market value is computed.
func TestHoldingsSplitAdjustsStalePrice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	accountID := env.createAccount(t, "Brokerage", models.AccountTypeInvesting)
	secID := env.createSecurity(t, "ACME")

	_, err := env.alter.Insert(ctx, deposit(accountID, day(2023, 1, 1), "1000"), nil)
	require.NoError(t, err)
	// Stores a $10 price on the trade date.
	_, err = env.alter.Insert(ctx, buy(accountID, secID, day(2023, 1, 1), "100", "10"), nil)
	require.NoError(t, err)

	_, err = env.alter.Insert(ctx, &models.Transaction{
		AccountID:   accountID,
		Date:        day(2023, 6, 1),
		Action:      models.ActionStkSplit,
		SecurityID:  &secID,
		Quantity:    dec("2"),
		OldQuantity: dec("1"),
	}, nil)
	require.NoError(t, err)

	report, err := env.holdings.AccountHoldings(ctx, accountID, day(2023, 7, 1))
	require.NoError(t, err)

	acme := findHolding(report, "ACME")
	require.NotNil(t, acme)
	assert.True(t, acme.Quantity.Equal(dec("200")), "quantity: %s", acme.Quantity)
	assert.True(t, acme.Price.Equal(dec("5")), "adjusted price: %s", acme.Price)
	assert.True(t, acme.MarketValue.Equal(dec("1000")), "market value: %s", acme.MarketValue)
}

func TestHoldingsMissingPriceFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	accountID := env.createAccount(t, "Brokerage", models.AccountTypeInvesting)
	secID := env.createSecurity(t, "ACME")

	// Transferred-in shares with no price leave the security unpriced.
	_, err := env.alter.Insert(ctx, &models.Transaction{
		AccountID:  accountID,
		Date:       day(2023, 1, 1),
		Action:     models.ActionShrsIn,
		SecurityID: &secID,
		Quantity:   dec("10"),
		Amount:     dec("100"),
	}, nil)
	require.NoError(t, err)

	_, err = env.holdings.AccountHoldings(ctx, accountID, day(2023, 2, 1))
	require.Error(t, err)
}

func TestOpenQuantityExcludesTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	accountID := env.createAccount(t, "Brokerage", models.AccountTypeInvesting)
	secID := env.createSecurity(t, "ACME")

	_, err := env.alter.Insert(ctx, buy(accountID, secID, day(2023, 1, 1), "100", "10"), nil)
	require.NoError(t, err)
	sold, err := env.alter.Insert(ctx, sell(accountID, secID, day(2023, 6, 1), "40", "15"), nil)
	require.NoError(t, err)

	open, err := env.holdings.OpenQuantity(ctx, accountID, secID, day(2023, 12, 31), 0)
	require.NoError(t, err)
	assert.True(t, open.Equal(dec("60")), "open: %s", open)

	// Excluding the sale restores the full lot, which is how the alter
	// protocol sizes a replacement sale.
	open, err = env.holdings.OpenQuantity(ctx, accountID, secID, day(2023, 12, 31), sold.ID)
	require.NoError(t, err)
	assert.True(t, open.Equal(dec("100")), "open excluding sale: %s", open)
}

func TestAccountLedgerStampsRunningBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	accountID := env.createAccount(t, "Checking", models.AccountTypeSpending)

	_, err := env.alter.Insert(ctx, deposit(accountID, day(2023, 1, 1), "100"), nil)
	require.NoError(t, err)
	_, err = env.alter.Insert(ctx, &models.Transaction{
		AccountID: accountID,
		Date:      day(2023, 1, 2),
		Action:    models.ActionWithdraw,
		Amount:    dec("30"),
	}, nil)
	require.NoError(t, err)

	ledger, err := env.holdings.AccountLedger(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, ledger, 2)
	assert.True(t, ledger[0].Balance.Equal(dec("100")), "first balance: %s", ledger[0].Balance)
	assert.True(t, ledger[1].Balance.Equal(dec("70")), "second balance: %s", ledger[1].Balance)
}
