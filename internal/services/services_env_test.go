package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tropicaldog17/ledger/internal/db"
	"github.com/tropicaldog17/ledger/internal/models"
	"github.com/tropicaldog17/ledger/internal/repositories"
	"github.com/tropicaldog17/ledger/internal/store"
)

// testEnv wires the full service stack against an in-memory SQLite
// database, so every test exercises the same paths as production.
type testEnv struct {
	database   *db.DB
	ledger     repositories.LedgerRepository
	prices     repositories.PriceRepository
	accounts   repositories.AccountRepository
	securities repositories.SecurityRepository
	store      *store.TransactionStore
	holdings   HoldingsService
	alter      AlterService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.ConnectSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate())
	t.Cleanup(func() { database.Close() })

	logger := zap.NewNop()
	ledgerRepo := repositories.NewLedgerRepository(database)
	priceRepo := repositories.NewPriceRepository(database)
	accountRepo := repositories.NewAccountRepository(database)
	securityRepo := repositories.NewSecurityRepository(database)
	txStore := store.New()
	holdings := NewHoldingsService(txStore, ledgerRepo, priceRepo, accountRepo, securityRepo, logger)
	alter := NewAlterService(database, ledgerRepo, priceRepo, accountRepo, holdings, txStore, logger)

	return &testEnv{
		database:   database,
		ledger:     ledgerRepo,
		prices:     priceRepo,
		accounts:   accountRepo,
		securities: securityRepo,
		store:      txStore,
		holdings:   holdings,
		alter:      alter,
	}
}

func (e *testEnv) createAccount(t *testing.T, name string, accountType models.AccountType) int64 {
	t.Helper()
	a := &models.Account{Name: name, Type: accountType}
	require.NoError(t, e.accounts.Create(context.Background(), a))
	return a.ID
}

func (e *testEnv) createSecurity(t *testing.T, name string) int64 {
	t.Helper()
	s := &models.Security{Name: name, Ticker: name}
	require.NoError(t, e.securities.Create(context.Background(), s))
	return s.ID
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func deposit(accountID int64, date time.Time, amount string) *models.Transaction {
	return &models.Transaction{
		AccountID: accountID,
		Date:      date,
		Action:    models.ActionDeposit,
		Amount:    dec(amount),
	}
}

func buy(accountID, securityID int64, date time.Time, qty, price string) *models.Transaction {
	q, p := dec(qty), dec(price)
	return &models.Transaction{
		AccountID:  accountID,
		Date:       date,
		Action:     models.ActionBuy,
		SecurityID: &securityID,
		Quantity:   q,
		Price:      p,
		Amount:     q.Mul(p),
	}
}

func sell(accountID, securityID int64, date time.Time, qty, price string) *models.Transaction {
	q, p := dec(qty), dec(price)
	return &models.Transaction{
		AccountID:  accountID,
		Date:       date,
		Action:     models.ActionSell,
		SecurityID: &securityID,
		Quantity:   q,
		Price:      p,
		Amount:     q.Mul(p),
	}
}
