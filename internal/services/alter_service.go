package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tropicaldog17/ledger/internal/db"
	apperrors "github.com/tropicaldog17/ledger/internal/errors"
	"github.com/tropicaldog17/ledger/internal/models"
	"github.com/tropicaldog17/ledger/internal/repositories"
	"github.com/tropicaldog17/ledger/internal/store"
)

type alterService struct {
	database *db.DB
	ledger   repositories.LedgerRepository
	prices   repositories.PriceRepository
	accounts repositories.AccountRepository
	holdings HoldingsService
	store    *store.TransactionStore
	logger   *zap.Logger

	// Single logical writer: one alteration or reload at a time.
	mu sync.Mutex
}

// NewAlterService creates a new alter service
func NewAlterService(
	database *db.DB,
	ledger repositories.LedgerRepository,
	prices repositories.PriceRepository,
	accounts repositories.AccountRepository,
	holdings HoldingsService,
	txStore *store.TransactionStore,
	logger *zap.Logger,
) AlterService {
	return &alterService{
		database: database,
		ledger:   ledger,
		prices:   prices,
		accounts: accounts,
		holdings: holdings,
		store:    txStore,
		logger:   logger,
	}
}

// counterpartWrite is one linked record to persist alongside the main
// transaction. relink records whether the main transaction and the
// counterpart should point at each other after ids are known.
type counterpartWrite struct {
	tx       *models.Transaction
	forSplit int // index into newT.Splits, -1 for a plain transfer
	relink   bool
}

// linkFix patches the match pointers of an otherwise untouched record,
// needed when a counterpart collapses from split to plain shape.
type linkFix struct {
	transactionID int64
	matchID       int64
	matchSplitID  int64
}

type alterPlan struct {
	counterparts []*counterpartWrite
	linkFixes    []linkFix
	deleteIDs    []int64

	mergedPriceSecurity int64 // set during execute when a price was stored
}

func (s *alterService) Insert(ctx context.Context, t *models.Transaction, matches []models.MatchInfo) (*models.Transaction, error) {
	return s.Alter(ctx, nil, t, matches)
}

func (s *alterService) Update(ctx context.Context, t *models.Transaction, matches []models.MatchInfo) (*models.Transaction, error) {
	old, ok := s.store.Get(t.ID)
	if !ok {
		return nil, &apperrors.ErrValidation{Field: "id", Message: fmt.Sprintf("transaction %d does not exist", t.ID)}
	}
	return s.Alter(ctx, old, t, matches)
}

func (s *alterService) Delete(ctx context.Context, id int64) error {
	old, ok := s.store.Get(id)
	if !ok {
		return &apperrors.ErrValidation{Field: "id", Message: fmt.Sprintf("transaction %d does not exist", id)}
	}
	_, err := s.Alter(ctx, old, nil, nil)
	return err
}

func (s *alterService) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.ledger.ListTransactions(ctx)
	if err != nil {
		return err
	}
	s.store.Reload(txs)
	s.logger.Info("transaction store reloaded", zap.Int("transactions", len(txs)))
	return nil
}

// Alter runs the consistency protocol: validate, resolve linked records,
// persist everything in one unit of work, then refresh the in-memory
// mirrors. Any failure before commit leaves both persisted and in-memory
// state untouched.
func (s *alterService) Alter(ctx context.Context, oldT, newT *models.Transaction, newMatches []models.MatchInfo) (*models.Transaction, error) {
	if oldT == nil && newT == nil {
		return nil, nil
	}
	if oldT != nil && newT != nil && oldT.ID != newT.ID {
		return nil, &apperrors.ErrValidation{Field: "id", Message: "replacement must keep the transaction id"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if oldT != nil {
		oldT = oldT.Clone()
	}
	if newT != nil {
		newT = newT.Clone()
	}

	if err := s.validate(ctx, oldT, newT, newMatches); err != nil {
		return nil, err
	}

	plan, err := s.resolve(ctx, oldT, newT)
	if err != nil {
		return nil, err
	}

	err = s.database.Transaction(func(tx *gorm.DB) error {
		return s.execute(ctx, tx, oldT, newT, newMatches, plan)
	})
	if err != nil {
		return nil, &apperrors.ErrPersistence{Op: "alter transaction", Err: err}
	}

	if err := s.commitMirrors(ctx, oldT, newT, plan); err != nil {
		return nil, err
	}

	s.logger.Info("transaction altered",
		zap.Int64("id", transactionID(oldT, newT)),
		zap.String("op", alterOp(oldT, newT)),
		zap.Int("counterparts", len(plan.counterparts)),
		zap.Int("deleted_links", len(plan.deleteIDs)))
	return newT, nil
}

func transactionID(oldT, newT *models.Transaction) int64 {
	if newT != nil {
		return newT.ID
	}
	return oldT.ID
}

func alterOp(oldT, newT *models.Transaction) string {
	switch {
	case oldT == nil:
		return "insert"
	case newT == nil:
		return "delete"
	default:
		return "replace"
	}
}

// validate performs every check that must pass before any mutation.
func (s *alterService) validate(ctx context.Context, oldT, newT *models.Transaction, matches []models.MatchInfo) error {
	if oldT != nil {
		isTarget, err := s.ledger.IsMatchTarget(ctx, oldT.ID)
		if err != nil {
			return &apperrors.ErrPersistence{Op: "check lot matches", Err: err}
		}
		if isTarget {
			return &apperrors.ErrValidation{
				Field:   "id",
				Message: fmt.Sprintf("transaction %d is lot-matched by a closing trade and cannot be altered", oldT.ID),
			}
		}
	}

	if newT == nil {
		return nil
	}

	if err := newT.Validate(); err != nil {
		return err
	}
	if newT.CategoryID == models.TransferCategory(newT.AccountID) {
		return &apperrors.ErrValidation{Field: "category_id", Message: "transaction cannot transfer to its own account"}
	}
	for i := range newT.Splits {
		if newT.Splits[i].CategoryID == models.TransferCategory(newT.AccountID) {
			return &apperrors.ErrValidation{Field: "splits", Message: "split cannot transfer to its own account"}
		}
	}
	if newT.Action == models.ActionShrsIn && newT.ADate != nil && newT.ADate.After(newT.Date) {
		return &apperrors.ErrValidation{Field: "acquisition_date", Message: "acquisition date cannot be after trade date"}
	}

	if len(matches) > 0 {
		if !newT.Action.SupportsLotMatch() {
			return &apperrors.ErrValidation{Field: "matches", Message: "lot matches are only valid for SELL and CVTSHRT"}
		}
		total := decimal.Zero
		for _, m := range matches {
			total = total.Add(m.Quantity)
		}
		if !total.Equal(newT.Quantity) {
			return &apperrors.ErrValidation{Field: "matches", Message: "matched quantities must sum to the trade quantity"}
		}
	}

	if newT.Action.IsClosing() {
		open, err := s.holdings.OpenQuantity(ctx, newT.AccountID, *newT.SecurityID, newT.Date, newT.ID)
		if err != nil {
			return err
		}
		if newT.Action == models.ActionCvtShrt {
			open = open.Neg()
		}
		if open.LessThan(newT.Quantity) {
			return &apperrors.ErrValidation{
				Field:   "quantity",
				Message: fmt.Sprintf("open quantity %s is less than %s", open, newT.Quantity),
			}
		}
	}

	return nil
}

// resolve decides which linked counterparts to write and which stale ones
// to delete. No mutation happens here; the plan is applied by execute.
func (s *alterService) resolve(ctx context.Context, oldT, newT *models.Transaction) (*alterPlan, error) {
	plan := &alterPlan{}
	written := map[int64]bool{}

	if newT != nil {
		switch {
		case len(newT.Splits) > 0:
			if err := s.resolveSplitCounterparts(ctx, oldT, newT, plan, written); err != nil {
				return nil, err
			}
			newT.MatchID, newT.MatchSplitID = models.MatchIDNone, models.MatchIDNone
		case models.IsTransferCategory(newT.CategoryID):
			if err := s.resolvePlainCounterpart(ctx, oldT, newT, plan, written); err != nil {
				return nil, err
			}
		default:
			newT.MatchID, newT.MatchSplitID = models.MatchIDNone, models.MatchIDNone
		}
	}

	if oldT != nil {
		if oldT.MatchID > 0 && !written[oldT.MatchID] {
			if oldT.MatchSplitID > 0 {
				// The former counterpart is a split parent; only our linked
				// line goes away, the record itself shrinks.
				if err := s.resolveSplitRemoval(ctx, oldT, plan); err != nil {
					return nil, err
				}
			} else {
				plan.deleteIDs = append(plan.deleteIDs, oldT.MatchID)
			}
		}
		for i := range oldT.Splits {
			if id := oldT.Splits[i].MatchID; id > 0 && !written[id] {
				plan.deleteIDs = append(plan.deleteIDs, id)
			}
		}
	}

	return plan, nil
}

// resolveSplitCounterparts produces one counterpart per transfer-encoding
// split line, reusing the previously linked record when the line survives.
// A plain transfer being reshaped into a split keeps its counterpart too:
// the first line targeting the old counterpart's account takes it over.
func (s *alterService) resolveSplitCounterparts(ctx context.Context, oldT, newT *models.Transaction, plan *alterPlan, written map[int64]bool) error {
	oldSplits := map[int64]models.SplitTransaction{}
	if oldT != nil {
		for _, sp := range oldT.Splits {
			oldSplits[sp.ID] = sp
		}
	}

	var oldPlainCp int64
	if oldT != nil && len(oldT.Splits) == 0 && oldT.MatchID > 0 && oldT.MatchSplitID <= 0 &&
		models.IsTransferCategory(oldT.CategoryID) {
		oldPlainCp = oldT.MatchID
	}

	for i := range newT.Splits {
		sp := &newT.Splits[i]
		if !models.IsTransferCategory(sp.CategoryID) {
			sp.MatchID = models.MatchIDUnlinked
			continue
		}

		var cp *models.Transaction
		if prev, ok := oldSplits[sp.ID]; ok && prev.MatchID > 0 {
			existing, err := s.ledger.GetTransaction(ctx, prev.MatchID)
			if err != nil {
				return &apperrors.ErrStateInconsistency{
					Message: fmt.Sprintf("split %d links counterpart %d which cannot be loaded: %v", sp.ID, prev.MatchID, err),
				}
			}
			cp = existing
		} else if oldPlainCp > 0 && !written[oldPlainCp] &&
			models.TransferAccountID(sp.CategoryID) == models.TransferAccountID(oldT.CategoryID) {
			existing, err := s.ledger.GetTransaction(ctx, oldPlainCp)
			if err != nil {
				return &apperrors.ErrStateInconsistency{
					Message: fmt.Sprintf("transaction %d links counterpart %d which cannot be loaded: %v", oldT.ID, oldPlainCp, err),
				}
			}
			// Drop any security fields the plain counterpart carried; split
			// lines only ever mirror cash.
			existing.SecurityID = nil
			existing.Quantity = decimal.Zero
			existing.Price = decimal.Zero
			existing.ADate = nil
			cp = existing
		} else {
			cp = &models.Transaction{Status: models.StatusUncleared, MatchSplitID: models.MatchIDNone}
		}

		cp.AccountID = models.TransferAccountID(sp.CategoryID)
		cp.Date = newT.Date
		cp.CategoryID = models.TransferCategory(newT.AccountID)
		cp.Payee, cp.Memo = sp.Payee, sp.Memo
		if sp.Amount.IsNegative() {
			cp.Action = models.ActionXIn
			cp.Amount = sp.Amount.Neg()
		} else {
			cp.Action = models.ActionXOut
			cp.Amount = sp.Amount
		}

		plan.counterparts = append(plan.counterparts, &counterpartWrite{tx: cp, forSplit: i, relink: true})
		if cp.ID > 0 {
			written[cp.ID] = true
		}
	}
	return nil
}

// resolvePlainCounterpart produces the single counterpart of a non-split
// transfer, per the action pairing table.
func (s *alterService) resolvePlainCounterpart(ctx context.Context, oldT, newT *models.Transaction, plan *alterPlan, written map[int64]bool) error {
	paired, ok := newT.Action.PairedAction()
	if !ok {
		// STKSPLIT and bulk share transfers never link.
		newT.MatchID, newT.MatchSplitID = models.MatchIDNone, models.MatchIDNone
		return nil
	}

	var cp *models.Transaction
	if oldT != nil && oldT.MatchID > 0 {
		existing, err := s.ledger.GetTransaction(ctx, oldT.MatchID)
		if err != nil {
			return &apperrors.ErrStateInconsistency{
				Message: fmt.Sprintf("transaction %d links counterpart %d which cannot be loaded: %v", oldT.ID, oldT.MatchID, err),
			}
		}
		if oldT.MatchSplitID > 0 {
			// Our link targets one line of a split counterpart: mirror the
			// new amount into that line and reshape the parent.
			return s.adjustLinkedSplit(existing, oldT.MatchSplitID, newT, plan, written)
		}
		cp = existing
	} else {
		cp = &models.Transaction{Status: models.StatusUncleared, MatchSplitID: models.MatchIDNone}
	}

	cp.AccountID = models.TransferAccountID(newT.CategoryID)
	cp.Action = paired
	cp.Date = newT.Date
	cp.Amount = newT.TransferAmount()
	cp.CategoryID = models.TransferCategory(newT.AccountID)
	cp.Payee, cp.Memo = newT.Payee, newT.Memo
	if paired == models.ActionShrsIn || paired == models.ActionShrsOut {
		cp.SecurityID = newT.SecurityID
		cp.Quantity = newT.Quantity
		cp.Price = newT.Price
		cp.ADate = newT.ADate
	} else {
		cp.SecurityID = nil
		cp.Quantity = decimal.Zero
		cp.Price = decimal.Zero
		cp.ADate = nil
	}

	plan.counterparts = append(plan.counterparts, &counterpartWrite{tx: cp, forSplit: -1, relink: true})
	if cp.ID > 0 {
		written[cp.ID] = true
	}
	return nil
}

// adjustLinkedSplit rewrites the one line of a split counterpart our
// transaction is linked to, keeping the parent's aggregate consistent.
// When only one other line would remain the counterpart collapses to a
// plain transaction.
func (s *alterService) adjustLinkedSplit(cp *models.Transaction, splitID int64, newT *models.Transaction, plan *alterPlan, written map[int64]bool) error {
	idx := -1
	for i := range cp.Splits {
		if cp.Splits[i].ID == splitID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return &apperrors.ErrStateInconsistency{
			Message: fmt.Sprintf("counterpart %d has no split %d", cp.ID, splitID),
		}
	}

	// Mirror: our cash flow reversed is the counterpart line's amount.
	cp.Splits[idx].Amount = newT.CashFlow().Neg()
	reshapeSplitParent(cp)

	newT.MatchID, newT.MatchSplitID = cp.ID, splitID
	plan.counterparts = append(plan.counterparts, &counterpartWrite{tx: cp, forSplit: -1, relink: false})
	written[cp.ID] = true
	return nil
}

// resolveSplitRemoval handles deletion (or unlinking) of a transaction
// linked to one line of a split counterpart: the line is removed and the
// parent reshaped, collapsing to plain when a single line remains.
func (s *alterService) resolveSplitRemoval(ctx context.Context, oldT *models.Transaction, plan *alterPlan) error {
	cp, err := s.ledger.GetTransaction(ctx, oldT.MatchID)
	if err != nil {
		return &apperrors.ErrStateInconsistency{
			Message: fmt.Sprintf("transaction %d links counterpart %d which cannot be loaded: %v", oldT.ID, oldT.MatchID, err),
		}
	}

	kept := cp.Splits[:0]
	for _, sp := range cp.Splits {
		if sp.ID != oldT.MatchSplitID {
			kept = append(kept, sp)
		}
	}
	cp.Splits = kept

	if len(cp.Splits) == 1 {
		// Collapse to a plain transaction shaped by the surviving line.
		last := cp.Splits[0]
		cp.Splits = nil
		cp.CategoryID = last.CategoryID
		cp.TagID = last.TagID
		cp.Payee, cp.Memo = last.Payee, last.Memo
		if last.Amount.IsNegative() {
			cp.Action = models.ActionWithdraw
			cp.Amount = last.Amount.Neg()
		} else {
			cp.Action = models.ActionDeposit
			cp.Amount = last.Amount
		}
		cp.MatchID, cp.MatchSplitID = last.MatchID, models.MatchIDNone
		if last.MatchID > 0 {
			// The survivor's own counterpart now links the parent directly.
			plan.linkFixes = append(plan.linkFixes, linkFix{
				transactionID: last.MatchID,
				matchID:       cp.ID,
				matchSplitID:  models.MatchIDNone,
			})
		}
	} else {
		reshapeSplitParent(cp)
	}

	plan.counterparts = append(plan.counterparts, &counterpartWrite{tx: cp, forSplit: -1, relink: false})
	return nil
}

// reshapeSplitParent realigns a split parent's action and amount with its
// lines' signed total.
func reshapeSplitParent(cp *models.Transaction) {
	total := cp.SplitTotal()
	if total.IsNegative() {
		cp.Action = models.ActionWithdraw
		cp.Amount = total.Neg()
	} else {
		cp.Action = models.ActionDeposit
		cp.Amount = total
	}
}

// execute applies the plan inside one database transaction. Order matters:
// the main record first so generated ids are visible, then counterparts,
// link fixes, deletions, lot matches, and finally the price merge.
func (s *alterService) execute(ctx context.Context, tx *gorm.DB, oldT, newT *models.Transaction, matches []models.MatchInfo, plan *alterPlan) error {
	lr := s.ledger.WithTx(tx)
	pr := s.prices.WithTx(tx)

	if oldT != nil {
		if err := lr.DeleteMatchInfo(ctx, oldT.ID); err != nil {
			return err
		}
	}

	switch {
	case newT == nil:
		if err := lr.DeleteTransaction(ctx, oldT.ID); err != nil {
			return err
		}
	case oldT == nil:
		if err := lr.InsertTransaction(ctx, newT); err != nil {
			return err
		}
	default:
		if err := lr.UpdateTransaction(ctx, newT); err != nil {
			return err
		}
	}

	for _, cw := range plan.counterparts {
		cp := cw.tx
		if cw.relink {
			cp.MatchID = newT.ID
			if cw.forSplit >= 0 {
				cp.MatchSplitID = newT.Splits[cw.forSplit].ID
			} else {
				cp.MatchSplitID = models.MatchIDNone
			}
		}
		if cp.ID > 0 {
			if err := lr.UpdateTransaction(ctx, cp); err != nil {
				return err
			}
		} else {
			if err := lr.InsertTransaction(ctx, cp); err != nil {
				return err
			}
		}
		if !cw.relink {
			continue
		}
		if cw.forSplit >= 0 {
			newT.Splits[cw.forSplit].MatchID = cp.ID
			if err := lr.SetSplitMatch(ctx, newT.Splits[cw.forSplit].ID, cp.ID); err != nil {
				return err
			}
		} else {
			newT.MatchID = cp.ID
			newT.MatchSplitID = models.MatchIDNone
			if err := lr.SetTransactionMatch(ctx, newT.ID, cp.ID, models.MatchIDNone); err != nil {
				return err
			}
		}
	}

	for _, fix := range plan.linkFixes {
		if err := lr.SetTransactionMatch(ctx, fix.transactionID, fix.matchID, fix.matchSplitID); err != nil {
			return err
		}
	}

	for _, id := range plan.deleteIDs {
		if err := lr.DeleteMatchInfo(ctx, id); err != nil {
			return err
		}
		if err := lr.DeleteTransaction(ctx, id); err != nil {
			return err
		}
	}

	if len(matches) > 0 {
		entries := make([]models.MatchInfo, len(matches))
		for i, m := range matches {
			entries[i] = models.MatchInfo{
				TransactionID:      newT.ID,
				MatchTransactionID: m.MatchTransactionID,
				Quantity:           m.Quantity,
			}
		}
		if err := lr.InsertMatchInfo(ctx, entries); err != nil {
			return err
		}
	}

	if newT != nil && newT.SecurityID != nil && newT.Price.IsPositive() {
		existing, err := pr.GetOnDate(ctx, *newT.SecurityID, newT.Date)
		if err != nil {
			return err
		}
		if existing == nil {
			if _, err := pr.Merge(ctx, &models.Price{
				SecurityID: *newT.SecurityID,
				Date:       newT.Date,
				Price:      newT.Price,
			}); err != nil {
				return err
			}
			plan.mergedPriceSecurity = *newT.SecurityID
		}
	}

	return nil
}

// commitMirrors updates the in-memory store and the denormalized account
// positions after a successful commit. A failure here means persisted and
// in-memory state may have diverged, which is a defect signal.
func (s *alterService) commitMirrors(ctx context.Context, oldT, newT *models.Transaction, plan *alterPlan) error {
	touched := map[int64]struct{}{}

	// Deleted counterparts: capture their accounts before removal.
	for _, id := range plan.deleteIDs {
		if t, ok := s.store.Get(id); ok {
			touched[t.AccountID] = struct{}{}
		}
		s.store.Delete(id)
	}

	if oldT != nil {
		touched[oldT.AccountID] = struct{}{}
		if newT == nil {
			s.store.Delete(oldT.ID)
		}
	}
	if newT != nil {
		touched[newT.AccountID] = struct{}{}
		s.store.Upsert(newT)
	}
	for _, cw := range plan.counterparts {
		touched[cw.tx.AccountID] = struct{}{}
		s.store.Upsert(cw.tx)
	}
	for _, fix := range plan.linkFixes {
		if t, ok := s.store.Get(fix.transactionID); ok {
			t.MatchID, t.MatchSplitID = fix.matchID, fix.matchSplitID
			s.store.Upsert(t)
		}
	}

	if plan.mergedPriceSecurity > 0 {
		accounts, err := s.accounts.List(ctx)
		if err != nil {
			return &apperrors.ErrStateInconsistency{Message: fmt.Sprintf("listing accounts after price merge: %v", err)}
		}
		for _, a := range accounts {
			if a.IsInvesting() && a.HoldsSecurity(plan.mergedPriceSecurity) {
				touched[a.ID] = struct{}{}
			}
		}
	}

	for accountID := range touched {
		cash, securityIDs, err := s.holdings.AccountPosition(ctx, accountID)
		if err != nil {
			return &apperrors.ErrStateInconsistency{Message: fmt.Sprintf("recomputing account %d position: %v", accountID, err)}
		}
		if err := s.accounts.UpdatePosition(ctx, accountID, cash, securityIDs); err != nil {
			return &apperrors.ErrStateInconsistency{Message: fmt.Sprintf("updating account %d position: %v", accountID, err)}
		}
	}
	return nil
}
