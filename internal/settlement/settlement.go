// Package settlement reduces the ledger rows of a period into the reconciled
// summary shown to users: totals, remaining budget, what each participant owes
// the payer, and a flow graph for Sankey-style charts.
//
// Everything here is pure computation over rows already read from a store.
package settlement

import (
	"errors"
	"time"

	"tripledger/internal/core"
)

// ErrNoData is returned when a period has no rows at all.
var ErrNoData = errors.New("no data")

// Settlement is the reconciled view of the latest batch of a period.
type Settlement struct {
	Period          core.Period      `json:"period"`
	BatchID         string           `json:"batch_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	Payer           string           `json:"payer"`
	Comment         string           `json:"comment"`
	Participants    []string         `json:"participants"`
	Contributions   map[string]int64 `json:"contributions"`
	TotalIncome     int64            `json:"total_income"`
	TotalExpense    int64            `json:"total_expense"`
	RemainingBudget int64            `json:"remaining_budget"`
	// AmountOwed holds each non-payer's own spend. It is not netted against an
	// equal split of the total.
	AmountOwed map[string]int64 `json:"amount_owed"`
	FlowGraph  FlowGraph        `json:"flow_graph"`
}

// LatestBatch keeps only the rows sharing the most recent creation time.
// The input order of the retained rows is preserved.
func LatestBatch(rows []core.LedgerRow) []core.LedgerRow {
	if len(rows) == 0 {
		return nil
	}
	latest := rows[0].CreatedAt
	for _, r := range rows[1:] {
		if r.CreatedAt.After(latest) {
			latest = r.CreatedAt
		}
	}
	out := make([]core.LedgerRow, 0, len(rows))
	for _, r := range rows {
		if r.CreatedAt.Equal(latest) {
			out = append(out, r)
		}
	}
	return out
}

// Aggregate computes the settlement of a period from all of its rows.
// Older batches are discarded; an empty input yields ErrNoData.
func Aggregate(rows []core.LedgerRow, categories []core.Category) (Settlement, error) {
	batch := LatestBatch(rows)
	if len(batch) == 0 {
		return Settlement{}, ErrNoData
	}

	head := batch[0]
	s := Settlement{
		Period:        head.Period,
		BatchID:       head.BatchID,
		CreatedAt:     head.CreatedAt,
		Payer:         head.Payer,
		Comment:       head.Comment,
		TotalIncome:   head.TotalIncome,
		Contributions: make(map[string]int64, len(batch)),
		AmountOwed:    make(map[string]int64, len(batch)),
	}

	spend := make(map[string]map[core.Category]int64, len(batch))
	for _, r := range batch {
		if _, seen := s.Contributions[r.Name]; !seen {
			s.Participants = append(s.Participants, r.Name)
			spend[r.Name] = make(map[core.Category]int64, len(categories))
		}
		s.Contributions[r.Name] += r.Total()
		for _, c := range categories {
			spend[r.Name][c] += r.Amount(c)
		}
	}

	for _, name := range s.Participants {
		s.TotalExpense += s.Contributions[name]
		if name != s.Payer {
			s.AmountOwed[name] = s.Contributions[name]
		}
	}
	s.RemainingBudget = s.TotalIncome - s.TotalExpense
	s.FlowGraph = buildFlowGraph(s, categories, spend)

	return s, nil
}
