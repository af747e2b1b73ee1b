package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	apperrors "github.com/tropicaldog17/ledger/internal/errors"
	"github.com/tropicaldog17/ledger/internal/services"
)

type HoldingsHandler struct {
	holdings services.HoldingsService
	logger   *zap.Logger
}

func NewHoldingsHandler(holdings services.HoldingsService, logger *zap.Logger) *HoldingsHandler {
	return &HoldingsHandler{holdings: holdings, logger: logger}
}

// HandleHoldings reports an account's holdings as of a date.
// @Summary Account holdings
// @Description Per-security quantity, price, market value and basis, plus CASH and TOTAL lines
// @Tags holdings
// @Produce json
// @Param id path int true "Account ID"
// @Param as_of query string false "Valuation date (YYYY-MM-DD), defaults to today"
// @Success 200 {array} models.SecurityHolding
// @Failure 400 {string} string "Bad request"
// @Failure 500 {string} string "Internal server error"
// @Router /accounts/{id}/holdings [get]
func (h *HoldingsHandler) HandleHoldings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accountID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}

	asOf := time.Now()
	if s := r.URL.Query().Get("as_of"); s != "" {
		asOf, err = time.Parse("2006-01-02", s)
		if err != nil {
			http.Error(w, "Invalid as_of date", http.StatusBadRequest)
			return
		}
	}

	report, err := h.holdings.AccountHoldings(r.Context(), accountID, asOf)
	if err != nil {
		h.writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(report)
}

// HandleLedger lists an account's transactions in ledger order with
// running balances stamped.
// @Summary Account ledger
// @Description Transactions of one account in register order with running balance
// @Tags holdings
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {array} models.Transaction
// @Failure 400 {string} string "Bad request"
// @Failure 500 {string} string "Internal server error"
// @Router /accounts/{id}/ledger [get]
func (h *HoldingsHandler) HandleLedger(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accountID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}

	ledger, err := h.holdings.AccountLedger(r.Context(), accountID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(ledger)
}

func (h *HoldingsHandler) writeError(w http.ResponseWriter, err error) {
	var ve *apperrors.ErrValidation
	if errors.As(err, &ve) {
		http.Error(w, ve.Error(), http.StatusBadRequest)
		return
	}
	h.logger.Error("holdings request failed", zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
