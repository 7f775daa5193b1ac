// Package sheets mirrors settlements to a spreadsheet.
package sheets

import (
	"context"
	"time"

	"tripledger/internal/settlement"
)

// Ports for outbound adapters.
type (
	// SettlementWriter appends a settlement and returns a reference to the written range.
	// HasBatch reports whether rows for batchID are already on the sheet.
	SettlementWriter interface {
		AppendSettlement(ctx context.Context, s settlement.Settlement) (ref string, err error)
		HasBatch(ctx context.Context, batchID string) (bool, error)
	}
)

// BatchColumn is the index of the batch id in Header.
const BatchColumn = 1

// Header is the column layout of the settlement sheet.
var Header = []any{"Period", "Batch", "Recorded At", "Row", "Name", "Amount", "Owed To Payer", "Comment"}

// Rows lays a settlement out as one summary row followed by one row per
// participant. Amounts are plain integers so the sheet can sum them.
func Rows(s settlement.Settlement) [][]any {
	at := s.CreatedAt.UTC().Format(time.RFC3339)
	rows := make([][]any, 0, len(s.Participants)+3)
	rows = append(rows,
		[]any{s.Period.String(), s.BatchID, at, "Total Income", s.Payer, s.TotalIncome, "", s.Comment},
		[]any{s.Period.String(), s.BatchID, at, "Total Expense", s.Payer, s.TotalExpense, "", ""},
		[]any{s.Period.String(), s.BatchID, at, "Remaining Budget", s.Payer, s.RemainingBudget, "", ""},
	)
	for _, name := range s.Participants {
		owed, ok := s.AmountOwed[name]
		var owedCell any = ""
		if ok {
			owedCell = owed
		}
		rows = append(rows, []any{s.Period.String(), s.BatchID, at, "Participant", name, s.Contributions[name], owedCell, ""})
	}
	return rows
}
