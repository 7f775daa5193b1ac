package memory

import (
	"context"
	"sync"
	"time"

	"tripledger/internal/core"
	"tripledger/internal/ledger"
)

var _ ledger.Store = (*Store)(nil)

// Store keeps ledger rows in process memory. It is append-only like the SQL stores.
type Store struct {
	mu     sync.Mutex
	nextID int64
	rows   []core.LedgerRow
}

func New() *Store {
	return &Store{}
}

// Insert appends the whole batch under one lock, so readers never see half of it.
func (s *Store) Insert(_ context.Context, sub core.Submission, batchID string, createdAt time.Time) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	rows := sub.Rows(batchID, createdAt)

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range rows {
		s.nextID++
		rows[i].ID = s.nextID
	}
	s.rows = append(s.rows, rows...)
	return nil
}

// ListPeriods returns distinct periods in first-insert order.
func (s *Store) ListPeriods(_ context.Context) ([]core.Period, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[core.Period]struct{}{}
	var out []core.Period
	for _, r := range s.rows {
		if _, ok := seen[r.Period]; ok {
			continue
		}
		seen[r.Period] = struct{}{}
		out = append(out, r.Period)
	}
	return out, nil
}

// Fetch returns copies of every row of the period in insertion order.
func (s *Store) Fetch(_ context.Context, p core.Period) ([]core.LedgerRow, error) {
	p = p.Canonical()
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.LedgerRow
	for _, r := range s.rows {
		if r.Period != p {
			continue
		}
		cp := r
		cp.Amounts = make(map[core.Category]int64, len(r.Amounts))
		for k, v := range r.Amounts {
			cp.Amounts[k] = v
		}
		out = append(out, cp)
	}
	return out, nil
}
