package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	apperrors "github.com/tropicaldog17/ledger/internal/errors"
	"github.com/tropicaldog17/ledger/internal/models"
	"github.com/tropicaldog17/ledger/internal/services"
	"github.com/tropicaldog17/ledger/internal/store"
)

type TransactionHandler struct {
	alter  services.AlterService
	store  *store.TransactionStore
	logger *zap.Logger
}

func NewTransactionHandler(alter services.AlterService, txStore *store.TransactionStore, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{alter: alter, store: txStore, logger: logger}
}

// transactionRequest carries a transaction plus its optional explicit lot
// matches in one payload.
type transactionRequest struct {
	models.Transaction
	Matches []models.MatchInfo `json:"matches,omitempty"`
}

// HandleTransactions handles collection-level operations for transactions.
// @Summary List or create transactions
// @Description Get all transactions or create a new one with counterpart resolution
// @Tags transactions
// @Accept json
// @Produce json
// @Param account_id query int false "Restrict to one account, in ledger order"
// @Success 200 {array} models.Transaction
// @Failure 400 {string} string "Invalid request"
// @Failure 500 {string} string "Internal server error"
// @Router /transactions [get]
// @Router /transactions [post]
func (h *TransactionHandler) HandleTransactions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case "GET":
		h.listTransactions(w, r)
	case "POST":
		h.createTransaction(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandleTransaction handles item-level operations for a transaction.
// @Summary Get, update, or delete a transaction
// @Description Operate on a single transaction by ID
// @Tags transactions
// @Accept json
// @Produce json
// @Param id path int true "Transaction ID"
// @Success 200 {object} models.Transaction
// @Failure 400 {string} string "Bad request"
// @Failure 404 {string} string "Not found"
// @Failure 500 {string} string "Internal server error"
// @Router /transactions/{id} [get]
// @Router /transactions/{id} [put]
// @Router /transactions/{id} [delete]
func (h *TransactionHandler) HandleTransaction(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid transaction ID", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case "GET":
		h.getTransaction(w, r, id)
	case "PUT":
		h.updateTransaction(w, r, id)
	case "DELETE":
		h.deleteTransaction(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *TransactionHandler) listTransactions(w http.ResponseWriter, r *http.Request) {
	if accountStr := r.URL.Query().Get("account_id"); accountStr != "" {
		accountID, err := strconv.ParseInt(accountStr, 10, 64)
		if err != nil {
			http.Error(w, "Invalid account ID", http.StatusBadRequest)
			return
		}
		investing := r.URL.Query().Get("investing") == "true"
		json.NewEncoder(w).Encode(h.store.ForAccount(accountID, investing))
		return
	}
	json.NewEncoder(w).Encode(h.store.All())
}

func (h *TransactionHandler) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	req.Transaction.ID = 0
	created, err := h.alter.Insert(r.Context(), &req.Transaction, req.Matches)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

func (h *TransactionHandler) getTransaction(w http.ResponseWriter, r *http.Request, id int64) {
	t, ok := h.store.Get(id)
	if !ok {
		http.Error(w, "Transaction not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(t)
}

func (h *TransactionHandler) updateTransaction(w http.ResponseWriter, r *http.Request, id int64) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	req.Transaction.ID = id
	updated, err := h.alter.Update(r.Context(), &req.Transaction, req.Matches)
	if err != nil {
		h.writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(updated)
}

func (h *TransactionHandler) deleteTransaction(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.alter.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TransactionHandler) writeError(w http.ResponseWriter, err error) {
	var ve *apperrors.ErrValidation
	if errors.As(err, &ve) {
		http.Error(w, ve.Error(), http.StatusBadRequest)
		return
	}
	h.logger.Error("transaction request failed", zap.Error(err))
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
