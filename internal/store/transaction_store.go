// Package store keeps the canonical in-memory transaction set. All
// mutation goes through the id index; readers get copies in either id order
// or the canonical per-account ledger order.
package store

import (
	"sort"
	"sync"

	"github.com/tropicaldog17/ledger/internal/models"
)

// TransactionStore owns the full transaction set, ordered and indexed by
// id. Mutation is permitted only from the commit step of an alteration or a
// bulk reload; reads may happen anytime.
type TransactionStore struct {
	mu  sync.RWMutex
	txs []*models.Transaction // ascending id
}

// New creates an empty store.
func New() *TransactionStore {
	return &TransactionStore{}
}

// Reload replaces the whole set. Input order does not matter.
func (s *TransactionStore) Reload(txs []*models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txs = make([]*models.Transaction, len(txs))
	for i, t := range txs {
		s.txs[i] = t.Clone()
	}
	sort.Slice(s.txs, func(i, j int) bool { return s.txs[i].ID < s.txs[j].ID })
}

// Size returns the number of stored transactions.
func (s *TransactionStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txs)
}

// Get returns a copy of the transaction with the given id.
func (s *TransactionStore) Get(id int64) (*models.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i, ok := s.search(id); ok {
		return s.txs[i].Clone(), true
	}
	return nil, false
}

// Upsert inserts or replaces a transaction by id.
func (s *TransactionStore) Upsert(t *models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := t.Clone()
	i, ok := s.search(c.ID)
	if ok {
		s.txs[i] = c
		return
	}
	s.txs = append(s.txs, nil)
	copy(s.txs[i+1:], s.txs[i:])
	s.txs[i] = c
}

// Delete removes a transaction by id, reporting whether it was present.
func (s *TransactionStore) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.search(id)
	if !ok {
		return false
	}
	s.txs = append(s.txs[:i], s.txs[i+1:]...)
	return true
}

// All returns copies of every transaction in id order.
func (s *TransactionStore) All() []*models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Transaction, len(s.txs))
	for i, t := range s.txs {
		out[i] = t.Clone()
	}
	return out
}

// ForAccount returns copies of the account's transactions in the canonical
// processing/display order: trade date ascending, then status descending,
// then (for non-investing accounts) cash flow descending, then id
// ascending.
func (s *TransactionStore) ForAccount(accountID int64, investing bool) []*models.Transaction {
	s.mu.RLock()
	var out []*models.Transaction
	for _, t := range s.txs {
		if t.AccountID == accountID {
			out = append(out, t.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return CanonicalLess(out[i], out[j], investing)
	})
	return out
}

// CanonicalLess orders two transactions of one account for replay and
// display.
func CanonicalLess(a, b *models.Transaction, investing bool) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.Before(b.Date)
	}
	if a.Status != b.Status {
		return a.Status > b.Status
	}
	if !investing {
		af, bf := a.CashFlow(), b.CashFlow()
		if !af.Equal(bf) {
			return af.GreaterThan(bf)
		}
	}
	return a.ID < b.ID
}

// search returns the insertion index for id and whether it is present.
// Caller must hold at least the read lock.
func (s *TransactionStore) search(id int64) (int, bool) {
	i := sort.Search(len(s.txs), func(i int) bool { return s.txs[i].ID >= id })
	return i, i < len(s.txs) && s.txs[i].ID == id
}
