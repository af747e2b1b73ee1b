package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/tropicaldog17/ledger/internal/models"
	"github.com/tropicaldog17/ledger/internal/repositories"
	"github.com/tropicaldog17/ledger/internal/services"
)

type AdminHandler struct {
	accounts   repositories.AccountRepository
	securities repositories.SecurityRepository
	prices     repositories.PriceRepository
	alter      services.AlterService
	logger     *zap.Logger
}

func NewAdminHandler(
	accounts repositories.AccountRepository,
	securities repositories.SecurityRepository,
	prices repositories.PriceRepository,
	alter services.AlterService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		accounts:   accounts,
		securities: securities,
		prices:     prices,
		alter:      alter,
		logger:     logger,
	}
}

// Accounts handlers
func (h *AdminHandler) HandleAccounts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case "GET":
		accounts, err := h.accounts.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(accounts)
	case "POST":
		var account models.Account
		if err := json.NewDecoder(r.Body).Decode(&account); err != nil {
			http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.accounts.Create(r.Context(), &account); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(&account)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AdminHandler) HandleAccount(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid account ID", http.StatusBadRequest)
		return
	}

	account, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(account)
}

// Securities handlers
func (h *AdminHandler) HandleSecurities(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case "GET":
		securities, err := h.securities.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(securities)
	case "POST":
		var security models.Security
		if err := json.NewDecoder(r.Body).Decode(&security); err != nil {
			http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.securities.Create(r.Context(), &security); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(&security)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// HandlePrices imports quotes without overwriting existing ones.
func (h *AdminHandler) HandlePrices(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var prices []models.Price
	if err := json.NewDecoder(r.Body).Decode(&prices); err != nil {
		http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	merged := 0
	for i := range prices {
		ok, err := h.prices.Merge(r.Context(), &prices[i])
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if ok {
			merged++
		}
	}
	json.NewEncoder(w).Encode(map[string]int{"received": len(prices), "merged": merged})
}

// HandleReload rebuilds the in-memory transaction store from the database.
func (h *AdminHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != "POST" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.alter.Reload(r.Context()); err != nil {
		h.logger.Error("store reload failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "reloaded"})
}
