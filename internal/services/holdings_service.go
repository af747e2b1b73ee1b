package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tropicaldog17/ledger/internal/models"
	"github.com/tropicaldog17/ledger/internal/repositories"
	"github.com/tropicaldog17/ledger/internal/store"
)

// endOfLedger stands in for "no as-of cutoff".
var endOfLedger = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

type holdingsService struct {
	store      *store.TransactionStore
	ledger     repositories.LedgerRepository
	prices     repositories.PriceRepository
	accounts   repositories.AccountRepository
	securities repositories.SecurityRepository
	logger     *zap.Logger
}

// NewHoldingsService creates a new holdings service
func NewHoldingsService(
	txStore *store.TransactionStore,
	ledger repositories.LedgerRepository,
	prices repositories.PriceRepository,
	accounts repositories.AccountRepository,
	securities repositories.SecurityRepository,
	logger *zap.Logger,
) HoldingsService {
	return &holdingsService{
		store:      txStore,
		ledger:     ledger,
		prices:     prices,
		accounts:   accounts,
		securities: securities,
		logger:     logger,
	}
}

// splitEvent is one stock split recorded during replay, kept per security in
// chronological order so stale prices can be adjusted afterwards.
type splitEvent struct {
	date        time.Time
	newQuantity decimal.Decimal
	oldQuantity decimal.Decimal
}

// replayResult is the raw outcome of one pass over an account's history.
type replayResult struct {
	cash      decimal.Decimal
	holdings  map[int64]*models.SecurityHolding
	splitLogs map[int64][]splitEvent
}

// replayTransactions walks an account's transactions once in canonical
// order, stamping the running balance on every transaction and folding the
// ones dated on/before asOf (and not excluded) into cash and per-security
// accumulators.
func replayTransactions(
	txs []*models.Transaction,
	asOf time.Time,
	excludeID int64,
	getMatches func(int64) ([]models.MatchInfo, error),
	securityName func(int64) string,
) (*replayResult, error) {
	res := &replayResult{
		cash:      decimal.Zero,
		holdings:  make(map[int64]*models.SecurityHolding),
		splitLogs: make(map[int64][]splitEvent),
	}

	balance := decimal.Zero
	for _, t := range txs {
		balance = balance.Add(t.CashFlow())
		t.Balance = balance

		if t.ID == excludeID || t.Date.After(asOf) {
			continue
		}
		res.cash = res.cash.Add(t.CashFlow())
		if t.SecurityID == nil {
			continue
		}

		secID := *t.SecurityID
		h, ok := res.holdings[secID]
		if !ok {
			h = models.NewSecurityHolding(secID, securityName(secID))
			res.holdings[secID] = h
		}

		if t.Action == models.ActionStkSplit {
			h.ApplySplit(t)
			res.splitLogs[secID] = append(res.splitLogs[secID], splitEvent{
				date:        t.Date,
				newQuantity: t.Quantity,
				oldQuantity: t.OldQuantity,
			})
			continue
		}

		var matched []models.MatchInfo
		if t.Action.SupportsLotMatch() {
			var err error
			matched, err = getMatches(t.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load lot matches for transaction %d: %w", t.ID, err)
			}
		}
		h.ProcessTransaction(t, matched)
	}

	return res, nil
}

func (s *holdingsService) replayAccount(ctx context.Context, accountID int64, asOf time.Time, excludeID int64) (*replayResult, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	txs := s.store.ForAccount(accountID, account.IsInvesting())

	names := map[int64]string{}
	securityName := func(id int64) string {
		if name, ok := names[id]; ok {
			return name
		}
		name := "security " + strconv.FormatInt(id, 10)
		if sec, err := s.securities.Get(ctx, id); err == nil {
			name = sec.Name
		}
		names[id] = name
		return name
	}
	getMatches := func(id int64) ([]models.MatchInfo, error) {
		return s.ledger.GetMatchInfo(ctx, id)
	}

	return replayTransactions(txs, asOf, excludeID, getMatches, securityName)
}

func (s *holdingsService) AccountHoldings(ctx context.Context, accountID int64, asOf time.Time) ([]*models.SecurityHolding, error) {
	res, err := s.replayAccount(ctx, accountID, asOf, 0)
	if err != nil {
		return nil, err
	}
	getPrice := func(securityID int64) (*models.Price, error) {
		return s.prices.LatestOnOrBefore(ctx, securityID, asOf)
	}
	report, err := buildHoldingsReport(res, asOf, getPrice)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("computed holdings",
		zap.Int64("account_id", accountID),
		zap.Time("as_of", asOf),
		zap.Int("lines", len(report)))
	return report, nil
}

// buildHoldingsReport prices the surviving holdings, drops empty ones,
// sorts by security name and appends the CASH and TOTAL lines. A price that
// cannot be resolved is a hard error: a snapshot with a guessed market
// value is worse than no snapshot.
func buildHoldingsReport(res *replayResult, asOf time.Time, getPrice func(int64) (*models.Price, error)) ([]*models.SecurityHolding, error) {
	report := make([]*models.SecurityHolding, 0, len(res.holdings)+2)
	for secID, h := range res.holdings {
		if h.Quantity.IsZero() {
			continue
		}
		p, err := getPrice(secID)
		if err != nil {
			return nil, err
		}
		h.SetPrice(adjustForSplits(p.Price, p.Date, res.splitLogs[secID]))
		report = append(report, h)
	}
	sort.Slice(report, func(i, j int) bool {
		return report[i].SecurityName < report[j].SecurityName
	})

	total := &models.SecurityHolding{
		SecurityName: models.TotalHoldingName,
		MarketValue:  res.cash,
		CostBasis:    res.cash,
	}
	for _, h := range report {
		total.MarketValue = total.MarketValue.Add(h.MarketValue)
		total.CostBasis = total.CostBasis.Add(h.CostBasis)
		total.RealizedPnL = total.RealizedPnL.Add(h.RealizedPnL)
		total.UnrealizedPnL = total.UnrealizedPnL.Add(h.UnrealizedPnL)
	}

	if !res.cash.IsZero() {
		report = append(report, &models.SecurityHolding{
			SecurityName: models.CashHoldingName,
			Quantity:     res.cash,
			Price:        decimal.NewFromInt(1),
			MarketValue:  res.cash,
			CostBasis:    res.cash,
		})
	}
	return append(report, total), nil
}

// adjustForSplits corrects a stale price for splits recorded after its
// date: walking the split log backwards, each split between the price date
// and the as-of date scales the price by oldQuantity/quantity.
func adjustForSplits(price decimal.Decimal, priceDate time.Time, log []splitEvent) decimal.Decimal {
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].date.After(priceDate) {
			price = price.Mul(log[i].oldQuantity).Div(log[i].newQuantity)
		}
	}
	return price
}

func (s *holdingsService) OpenQuantity(ctx context.Context, accountID, securityID int64, asOf time.Time, excludeID int64) (decimal.Decimal, error) {
	res, err := s.replayAccount(ctx, accountID, asOf, excludeID)
	if err != nil {
		return decimal.Zero, err
	}
	if h, ok := res.holdings[securityID]; ok {
		return h.Quantity, nil
	}
	return decimal.Zero, nil
}

func (s *holdingsService) AccountPosition(ctx context.Context, accountID int64) (decimal.Decimal, []int64, error) {
	res, err := s.replayAccount(ctx, accountID, endOfLedger, 0)
	if err != nil {
		return decimal.Zero, nil, err
	}
	var securityIDs []int64
	for id, h := range res.holdings {
		if !h.Quantity.IsZero() {
			securityIDs = append(securityIDs, id)
		}
	}
	sort.Slice(securityIDs, func(i, j int) bool { return securityIDs[i] < securityIDs[j] })
	return res.cash, securityIDs, nil
}

func (s *holdingsService) AccountLedger(ctx context.Context, accountID int64) ([]*models.Transaction, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	txs := s.store.ForAccount(accountID, account.IsInvesting())
	if _, err := replayTransactions(txs, endOfLedger, 0, func(int64) ([]models.MatchInfo, error) {
		return nil, nil
	}, func(int64) string { return "" }); err != nil {
		return nil, err
	}
	return txs, nil
}
