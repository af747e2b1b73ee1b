package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Names of the two synthetic lines appended to every holdings snapshot.
const (
	CashHoldingName  = "CASH"
	TotalHoldingName = "TOTAL"
)

// SecurityLot is one open tax lot: shares acquired together at one date and
// basis. Short positions carry negative quantity and negative basis (the
// short-sale credit). Derived value, never persisted.
type SecurityLot struct {
	TransactionID int64           `json:"transaction_id"`
	AcquiredDate  time.Time       `json:"acquired_date"`
	Quantity      decimal.Decimal `json:"quantity"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	Price         decimal.Decimal `json:"price"`
}

// LotMatch records one lot consumption by a closing trade, with the realized
// gain it produced.
type LotMatch struct {
	ClosingTransactionID int64           `json:"closing_transaction_id"`
	LotTransactionID     int64           `json:"lot_transaction_id"`
	Quantity             decimal.Decimal `json:"quantity"`
	CostBasis            decimal.Decimal `json:"cost_basis"`
	Proceeds             decimal.Decimal `json:"proceeds"`
	RealizedPnL          decimal.Decimal `json:"realized_pnl"`
	LongTerm             bool            `json:"long_term"`
}

// SecurityHolding accumulates one security's position while replaying an
// account's history, and carries the priced result afterwards. Derived
// value, computed fresh per query.
type SecurityHolding struct {
	SecurityID    int64           `json:"security_id"`
	SecurityName  string          `json:"security_name"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	CostBasis     decimal.Decimal `json:"cost_basis"`
	MarketValue   decimal.Decimal `json:"market_value"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	Lots          []*SecurityLot  `json:"lots,omitempty"`
	Matches       []*LotMatch     `json:"matches,omitempty"`
}

// NewSecurityHolding creates an empty accumulator for one security.
func NewSecurityHolding(securityID int64, name string) *SecurityHolding {
	return &SecurityHolding{SecurityID: securityID, SecurityName: name}
}

// ProcessTransaction folds one security transaction into the holding.
// matched carries the explicit lot assignment for a closing trade; empty
// means default order (FIFO over the open lots). The caller guarantees the
// open quantity covers a closing quantity; with insufficient lots the match
// under-fills silently.
func (h *SecurityHolding) ProcessTransaction(t *Transaction, matched []MatchInfo) {
	switch t.Action {
	case ActionBuy, ActionShrsIn, ActionReinvDiv, ActionReinvInt,
		ActionReinvLg, ActionReinvMd, ActionReinvSh:
		h.addLot(t, t.Amount.Add(t.Commission).Add(t.AccruedInterest))
	case ActionShtSell:
		h.addLot(t, t.CashFlow().Neg())
	case ActionSell, ActionCvtShrt:
		h.closeLots(t, matched, true)
	case ActionShrsOut:
		// Shares leave without a disposal; basis goes with them, nothing is
		// realized.
		h.closeLots(t, nil, false)
	case ActionRtrnCap:
		h.reduceBasis(t)
	case ActionStkSplit:
		h.ApplySplit(t)
	default:
		// DIV, INTINC, CG*, MISCINC/EXP, MARGINT: cash only, position
		// untouched.
	}
	h.recompute()
}

// ApplySplit rescales every open lot by quantity/oldQuantity. Total basis is
// unchanged; per-share price is rescaled with the quantity.
func (h *SecurityHolding) ApplySplit(t *Transaction) {
	ratio := t.Quantity.Div(t.OldQuantity)
	for _, lot := range h.Lots {
		lot.Quantity = lot.Quantity.Mul(ratio)
		if !lot.Quantity.IsZero() {
			lot.Price = lot.CostBasis.Div(lot.Quantity)
		}
	}
	h.recompute()
}

func (h *SecurityHolding) addLot(t *Transaction, costBasis decimal.Decimal) {
	qty := t.Quantity
	if t.Action == ActionShtSell {
		qty = qty.Neg()
	}
	acquired := t.Date
	if t.ADate != nil {
		acquired = *t.ADate
	}
	price := t.Price
	if !price.IsPositive() && !qty.IsZero() {
		price = costBasis.Div(qty)
	}
	h.Lots = append(h.Lots, &SecurityLot{
		TransactionID: t.ID,
		AcquiredDate:  acquired,
		Quantity:      qty,
		CostBasis:     costBasis,
		Price:         price,
	})
}

// closeLots consumes open lots to satisfy the closing quantity of t, either
// in the explicitly matched order or FIFO. Partial consumption apportions
// basis and proceeds pro rata by quantity, rounded half-up at the
// transaction amount's decimal scale.
func (h *SecurityHolding) closeLots(t *Transaction, matched []MatchInfo, realize bool) {
	short := t.Action == ActionCvtShrt
	proceedsTotal := t.CashFlow()
	scale := amountScale(t.Amount)

	consume := func(lot *SecurityLot, qty decimal.Decimal) {
		lotQty := lot.Quantity.Abs()
		var basisPortion decimal.Decimal
		if qty.Equal(lotQty) {
			basisPortion = lot.CostBasis
		} else {
			basisPortion = lot.CostBasis.Mul(qty).Div(lotQty).Round(scale)
		}
		if short {
			lot.Quantity = lot.Quantity.Add(qty)
		} else {
			lot.Quantity = lot.Quantity.Sub(qty)
		}
		lot.CostBasis = lot.CostBasis.Sub(basisPortion)
		if !realize {
			return
		}
		proceeds := proceedsTotal.Mul(qty).Div(t.Quantity).Round(scale)
		m := &LotMatch{
			ClosingTransactionID: t.ID,
			LotTransactionID:     lot.TransactionID,
			Quantity:             qty,
			CostBasis:            basisPortion,
			Proceeds:             proceeds,
			RealizedPnL:          proceeds.Sub(basisPortion),
			LongTerm:             t.Date.After(lot.AcquiredDate.AddDate(1, 0, 0)),
		}
		h.Matches = append(h.Matches, m)
		h.RealizedPnL = h.RealizedPnL.Add(m.RealizedPnL)
	}

	if len(matched) > 0 {
		for _, m := range matched {
			lot := h.findLot(m.MatchTransactionID)
			if lot == nil {
				continue
			}
			qty := m.Quantity
			if qty.GreaterThan(lot.Quantity.Abs()) {
				qty = lot.Quantity.Abs()
			}
			consume(lot, qty)
		}
	} else {
		remaining := t.Quantity
		for _, lot := range h.Lots {
			if !remaining.IsPositive() {
				break
			}
			if short != lot.Quantity.IsNegative() || lot.Quantity.IsZero() {
				continue
			}
			qty := decimal.Min(remaining, lot.Quantity.Abs())
			consume(lot, qty)
			remaining = remaining.Sub(qty)
		}
	}

	h.dropEmptyLots()
}

// reduceBasis spreads a return of capital across the open lots pro rata by
// basis share.
func (h *SecurityHolding) reduceBasis(t *Transaction) {
	total := decimal.Zero
	for _, lot := range h.Lots {
		total = total.Add(lot.CostBasis)
	}
	if !total.IsPositive() {
		return
	}
	scale := amountScale(t.Amount)
	for _, lot := range h.Lots {
		portion := t.Amount.Mul(lot.CostBasis).Div(total).Round(scale)
		lot.CostBasis = lot.CostBasis.Sub(portion)
	}
}

func (h *SecurityHolding) findLot(transactionID int64) *SecurityLot {
	for _, lot := range h.Lots {
		if lot.TransactionID == transactionID && !lot.Quantity.IsZero() {
			return lot
		}
	}
	return nil
}

func (h *SecurityHolding) dropEmptyLots() {
	kept := h.Lots[:0]
	for _, lot := range h.Lots {
		if !lot.Quantity.IsZero() {
			kept = append(kept, lot)
		}
	}
	h.Lots = kept
}

func (h *SecurityHolding) recompute() {
	qty, basis := decimal.Zero, decimal.Zero
	for _, lot := range h.Lots {
		qty = qty.Add(lot.Quantity)
		basis = basis.Add(lot.CostBasis)
	}
	h.Quantity = qty
	h.CostBasis = basis
}

// SetPrice fixes the resolved market price and derives market value and
// unrealized P&L from it.
func (h *SecurityHolding) SetPrice(price decimal.Decimal) {
	h.Price = price
	h.MarketValue = h.Quantity.Mul(price)
	h.UnrealizedPnL = h.MarketValue.Sub(h.CostBasis)
}

// amountScale is the decimal scale deduced from the transaction amount,
// used as the rounding scale for pro-rata apportionment.
func amountScale(amount decimal.Decimal) int32 {
	scale := -amount.Exponent()
	if scale < 0 {
		scale = 0
	}
	return scale
}
