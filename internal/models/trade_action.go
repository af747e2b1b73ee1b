package models

// TradeAction is the closed set of ledger transaction types. Every behavior
// that depends on the action (cash-flow sign, transfer pairing, quantity
// handling, display text) is looked up from the traits table below so call
// sites never re-derive it with their own switch.
type TradeAction string

const (
	ActionBuy      TradeAction = "BUY"
	ActionSell     TradeAction = "SELL"
	ActionDiv      TradeAction = "DIV"
	ActionReinvDiv TradeAction = "REINVDIV"
	ActionIntInc   TradeAction = "INTINC"
	ActionReinvInt TradeAction = "REINVINT"
	ActionCGLong   TradeAction = "CGLONG"
	ActionCGMid    TradeAction = "CGMID"
	ActionCGShort  TradeAction = "CGSHORT"
	ActionReinvLg  TradeAction = "REINVLG"
	ActionReinvMd  TradeAction = "REINVMD"
	ActionReinvSh  TradeAction = "REINVSH"
	ActionStkSplit TradeAction = "STKSPLIT"
	ActionShrsIn   TradeAction = "SHRSIN"
	ActionShrsOut  TradeAction = "SHRSOUT"
	ActionMiscExp  TradeAction = "MISCEXP"
	ActionMiscInc  TradeAction = "MISCINC"
	ActionRtrnCap  TradeAction = "RTRNCAP"
	ActionShtSell  TradeAction = "SHTSELL"
	ActionCvtShrt  TradeAction = "CVTSHRT"
	ActionMargInt  TradeAction = "MARGINT"
	ActionXfrShrs  TradeAction = "XFRSHRS"
	ActionXIn      TradeAction = "XIN"
	ActionXOut     TradeAction = "XOUT"
	ActionDeposit  TradeAction = "DEPOSIT"
	ActionWithdraw TradeAction = "WITHDRAW"
)

// Cash-flow direction of an action relative to its own account.
const (
	CashInflow  = 1
	CashNeutral = 0
	CashOutflow = -1
)

type tradeActionTraits struct {
	cashSign    int
	hasQuantity bool
	paired      TradeAction // zero value = no linked counterpart
	description string
}

var tradeActions = map[TradeAction]tradeActionTraits{
	ActionBuy:      {CashOutflow, true, ActionXOut, "Buy Shares"},
	ActionSell:     {CashInflow, true, ActionXIn, "Sell Shares"},
	ActionDiv:      {CashInflow, false, ActionXIn, "Dividend"},
	ActionReinvDiv: {CashNeutral, true, ActionXOut, "Reinvested Dividend"},
	ActionIntInc:   {CashInflow, false, ActionXIn, "Interest Income"},
	ActionReinvInt: {CashNeutral, true, ActionXOut, "Reinvested Interest"},
	ActionCGLong:   {CashInflow, false, ActionXIn, "Long-Term Capital Gain"},
	ActionCGMid:    {CashInflow, false, ActionXIn, "Mid-Term Capital Gain"},
	ActionCGShort:  {CashInflow, false, ActionXIn, "Short-Term Capital Gain"},
	ActionReinvLg:  {CashNeutral, true, ActionXOut, "Reinvested Long-Term Capital Gain"},
	ActionReinvMd:  {CashNeutral, true, ActionXOut, "Reinvested Mid-Term Capital Gain"},
	ActionReinvSh:  {CashNeutral, true, ActionXOut, "Reinvested Short-Term Capital Gain"},
	ActionStkSplit: {CashNeutral, true, "", "Stock Split"},
	ActionShrsIn:   {CashNeutral, true, ActionShrsOut, "Shares Transferred In"},
	ActionShrsOut:  {CashNeutral, true, ActionShrsIn, "Shares Transferred Out"},
	ActionMiscExp:  {CashOutflow, false, ActionXOut, "Miscellaneous Expense"},
	ActionMiscInc:  {CashInflow, false, ActionXIn, "Miscellaneous Income"},
	ActionRtrnCap:  {CashInflow, false, ActionXIn, "Return of Capital"},
	ActionShtSell:  {CashInflow, true, ActionXIn, "Short Sell"},
	ActionCvtShrt:  {CashOutflow, true, ActionXOut, "Cover Short Position"},
	ActionMargInt:  {CashOutflow, false, ActionXOut, "Margin Interest"},
	ActionXfrShrs:  {CashNeutral, true, "", "Transfer Shares Between Accounts"},
	ActionXIn:      {CashInflow, false, ActionXOut, "Cash Transferred In"},
	ActionXOut:     {CashOutflow, false, ActionXIn, "Cash Transferred Out"},
	ActionDeposit:  {CashInflow, false, ActionXOut, "Deposit"},
	ActionWithdraw: {CashOutflow, false, ActionXIn, "Withdraw"},
}

// AllTradeActions returns the full action set in stable declaration order.
func AllTradeActions() []TradeAction {
	return []TradeAction{
		ActionBuy, ActionSell, ActionDiv, ActionReinvDiv, ActionIntInc,
		ActionReinvInt, ActionCGLong, ActionCGMid, ActionCGShort,
		ActionReinvLg, ActionReinvMd, ActionReinvSh, ActionStkSplit,
		ActionShrsIn, ActionShrsOut, ActionMiscExp, ActionMiscInc,
		ActionRtrnCap, ActionShtSell, ActionCvtShrt, ActionMargInt,
		ActionXfrShrs, ActionXIn, ActionXOut, ActionDeposit, ActionWithdraw,
	}
}

// Valid reports whether a is one of the known trade actions.
func (a TradeAction) Valid() bool {
	_, ok := tradeActions[a]
	return ok
}

// CashSign returns the direction of the action's cash effect on its own
// account: CashInflow, CashOutflow or CashNeutral.
func (a TradeAction) CashSign() int {
	return tradeActions[a].cashSign
}

// HasQuantity reports whether the action carries a share quantity.
func (a TradeAction) HasQuantity() bool {
	return tradeActions[a].hasQuantity
}

// PairedAction returns the trade action a linked counterpart transaction
// takes in the transfer target account. The second result is false for
// actions that never produce a counterpart (STKSPLIT, XFRSHRS).
func (a TradeAction) PairedAction() (TradeAction, bool) {
	p := tradeActions[a].paired
	return p, p != ""
}

// Description returns the display text for the action.
func (a TradeAction) Description() string {
	return tradeActions[a].description
}

// IsClosing reports whether the action disposes of existing shares and must
// therefore pass the open-quantity check before being persisted.
func (a TradeAction) IsClosing() bool {
	switch a {
	case ActionSell, ActionShrsOut, ActionCvtShrt:
		return true
	}
	return false
}

// SupportsLotMatch reports whether an explicit lot assignment (match info)
// may be attached to the action.
func (a TradeAction) SupportsLotMatch() bool {
	return a == ActionSell || a == ActionCvtShrt
}
