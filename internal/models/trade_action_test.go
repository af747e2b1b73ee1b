package models

import (
	"testing"
)

func TestAllTradeActionsHaveTraits(t *testing.T) {
	actions := AllTradeActions()
	if len(actions) != 26 {
		t.Fatalf("expected 26 trade actions, got %d", len(actions))
	}
	for _, a := range actions {
		if !a.Valid() {
			t.Errorf("action %s missing from traits table", a)
		}
		if a.Description() == "" {
			t.Errorf("action %s has no description", a)
		}
	}
}

func TestUnknownActionInvalid(t *testing.T) {
	if TradeAction("BOGUS").Valid() {
		t.Fatal("unknown action reported valid")
	}
}

func TestPairedActionTable(t *testing.T) {
	cases := []struct {
		action TradeAction
		paired TradeAction
		ok     bool
	}{
		{ActionBuy, ActionXOut, true},
		{ActionSell, ActionXIn, true},
		{ActionDiv, ActionXIn, true},
		{ActionReinvDiv, ActionXOut, true},
		{ActionDeposit, ActionXOut, true},
		{ActionWithdraw, ActionXIn, true},
		{ActionXIn, ActionXOut, true},
		{ActionXOut, ActionXIn, true},
		{ActionShrsIn, ActionShrsOut, true},
		{ActionShrsOut, ActionShrsIn, true},
		{ActionMargInt, ActionXOut, true},
		{ActionMiscInc, ActionXIn, true},
		{ActionRtrnCap, ActionXIn, true},
		{ActionStkSplit, "", false},
		{ActionXfrShrs, "", false},
	}
	for _, c := range cases {
		paired, ok := c.action.PairedAction()
		if ok != c.ok || paired != c.paired {
			t.Errorf("%s: got (%s, %v), want (%s, %v)", c.action, paired, ok, c.paired, c.ok)
		}
	}
}

func TestCashSignDirections(t *testing.T) {
	inflows := []TradeAction{ActionSell, ActionDiv, ActionIntInc, ActionCGLong, ActionCGMid,
		ActionCGShort, ActionMiscInc, ActionRtrnCap, ActionShtSell, ActionXIn, ActionDeposit}
	outflows := []TradeAction{ActionBuy, ActionMiscExp, ActionCvtShrt, ActionMargInt,
		ActionXOut, ActionWithdraw}
	neutral := []TradeAction{ActionReinvDiv, ActionReinvInt, ActionReinvLg, ActionReinvMd,
		ActionReinvSh, ActionStkSplit, ActionShrsIn, ActionShrsOut, ActionXfrShrs}

	for _, a := range inflows {
		if a.CashSign() != CashInflow {
			t.Errorf("%s should be an inflow", a)
		}
	}
	for _, a := range outflows {
		if a.CashSign() != CashOutflow {
			t.Errorf("%s should be an outflow", a)
		}
	}
	for _, a := range neutral {
		if a.CashSign() != CashNeutral {
			t.Errorf("%s should be cash neutral", a)
		}
	}
}

func TestClosingActions(t *testing.T) {
	for _, a := range AllTradeActions() {
		closing := a == ActionSell || a == ActionShrsOut || a == ActionCvtShrt
		if a.IsClosing() != closing {
			t.Errorf("%s: IsClosing = %v", a, a.IsClosing())
		}
		matchable := a == ActionSell || a == ActionCvtShrt
		if a.SupportsLotMatch() != matchable {
			t.Errorf("%s: SupportsLotMatch = %v", a, a.SupportsLotMatch())
		}
	}
}
