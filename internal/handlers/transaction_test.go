package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/tropicaldog17/ledger/internal/errors"
	"github.com/tropicaldog17/ledger/internal/models"
	"github.com/tropicaldog17/ledger/internal/services"
	"github.com/tropicaldog17/ledger/internal/store"
)

type mockAlterService struct {
	inserted *models.Transaction
	matches  []models.MatchInfo
	deleted  int64
	err      error
}

func (m *mockAlterService) Alter(_ context.Context, _, newT *models.Transaction, matches []models.MatchInfo) (*models.Transaction, error) {
	return newT, m.err
}
func (m *mockAlterService) Insert(_ context.Context, t *models.Transaction, matches []models.MatchInfo) (*models.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.inserted = t
	m.matches = matches
	t.ID = 42
	return t, nil
}
func (m *mockAlterService) Update(_ context.Context, t *models.Transaction, matches []models.MatchInfo) (*models.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.matches = matches
	return t, nil
}
func (m *mockAlterService) Delete(_ context.Context, id int64) error {
	m.deleted = id
	return m.err
}
func (m *mockAlterService) Reload(_ context.Context) error { return m.err }

var _ services.AlterService = (*mockAlterService)(nil)

func newRouter(h *TransactionHandler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/transactions", h.HandleTransactions)
	r.HandleFunc("/api/transactions/{id}", h.HandleTransaction)
	return r
}

func TestCreateTransactionPassesMatches(t *testing.T) {
	svc := &mockAlterService{}
	h := NewTransactionHandler(svc, store.New(), zap.NewNop())

	body, _ := json.Marshal(map[string]interface{}{
		"account_id": 1,
		"date":       time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		"action":     "SELL",
		"quantity":   "40",
		"amount":     "600",
		"matches": []map[string]interface{}{
			{"match_transaction_id": 9, "quantity": "40"},
		},
	})

	req := httptest.NewRequest("POST", "/api/transactions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	newRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (%s)", w.Code, http.StatusCreated, w.Body.String())
	}
	if svc.inserted == nil || svc.inserted.Action != models.ActionSell {
		t.Fatal("service did not receive the transaction")
	}
	if len(svc.matches) != 1 || svc.matches[0].MatchTransactionID != 9 {
		t.Fatalf("matches not forwarded: %+v", svc.matches)
	}
	if !svc.matches[0].Quantity.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("match quantity: %s", svc.matches[0].Quantity)
	}
}

func TestValidationErrorsMapToBadRequest(t *testing.T) {
	svc := &mockAlterService{err: &apperrors.ErrValidation{Field: "quantity", Message: "insufficient"}}
	h := NewTransactionHandler(svc, store.New(), zap.NewNop())

	body := []byte(`{"account_id":1,"action":"SELL"}`)
	req := httptest.NewRequest("POST", "/api/transactions", bytes.NewReader(body))
	w := httptest.NewRecorder()
	newRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestGetTransactionFromStore(t *testing.T) {
	txStore := store.New()
	txStore.Upsert(&models.Transaction{ID: 7, AccountID: 1, Action: models.ActionDeposit})
	h := NewTransactionHandler(&mockAlterService{}, txStore, zap.NewNop())

	req := httptest.NewRequest("GET", "/api/transactions/7", nil)
	w := httptest.NewRecorder()
	newRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
	var got models.Transaction
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if got.ID != 7 {
		t.Fatalf("id: got %d, want 7", got.ID)
	}

	req = httptest.NewRequest("GET", "/api/transactions/404", nil)
	w = httptest.NewRecorder()
	newRouter(h).ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing id: got %d, want 404", w.Code)
	}
}

func TestDeleteTransaction(t *testing.T) {
	svc := &mockAlterService{}
	h := NewTransactionHandler(svc, store.New(), zap.NewNop())

	req := httptest.NewRequest("DELETE", "/api/transactions/11", nil)
	w := httptest.NewRecorder()
	newRouter(h).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", w.Code)
	}
	if svc.deleted != 11 {
		t.Fatalf("deleted id: got %d, want 11", svc.deleted)
	}
}
