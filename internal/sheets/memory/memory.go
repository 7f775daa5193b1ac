// Package memory is an in-process settlement sheet used in development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"tripledger/internal/settlement"
	ports "tripledger/internal/sheets"
)

var _ ports.SettlementWriter = (*Sheet)(nil)

type Sheet struct {
	mu          sync.Mutex
	rows        [][]any
	settlements []settlement.Settlement
}

func New() *Sheet {
	return &Sheet{rows: [][]any{ports.Header}}
}

// AppendSettlement appends the rows and returns an A1-style range reference.
func (s *Sheet) AppendSettlement(_ context.Context, st settlement.Settlement) (string, error) {
	if st.Period == "" {
		return "", fmt.Errorf("append settlement: missing period")
	}
	rows := ports.Rows(st)

	s.mu.Lock()
	defer s.mu.Unlock()
	first := len(s.rows) + 1
	s.rows = append(s.rows, rows...)
	s.settlements = append(s.settlements, st)
	return fmt.Sprintf("mem!A%d:H%d", first, len(s.rows)), nil
}

// HasBatch scans the batch column of every written row.
func (s *Sheet) HasBatch(_ context.Context, batchID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows[1:] {
		if len(r) > ports.BatchColumn && r[ports.BatchColumn] == batchID {
			return true, nil
		}
	}
	return false, nil
}

// Rows returns a copy of every row written so far, header included.
func (s *Sheet) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]any(nil), r...)
	}
	return out
}

// Settlements returns the settlements appended so far, oldest first.
func (s *Sheet) Settlements() []settlement.Settlement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]settlement.Settlement(nil), s.settlements...)
}
