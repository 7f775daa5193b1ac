// Package export renders a settlement as an Excel workbook.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"tripledger/internal/core"
	"tripledger/internal/settlement"
)

const (
	SummarySheet = "Summary"
	FlowSheet    = "Flow"
)

// ContentType of the workbook produced by Write.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Workbook builds the Summary and Flow sheets for s. Amounts on the Summary
// sheet are written twice: as numbers and formatted with currency.
func Workbook(s settlement.Settlement, currency string) (*excelize.File, error) {
	f := excelize.NewFile()

	// NewFile starts with "Sheet1"; rename it instead of adding a sheet.
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSummary(f, s, currency); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(FlowSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("create flow sheet: %w", err)
	}
	if err := writeFlow(f, s.FlowGraph); err != nil {
		f.Close()
		return nil, err
	}

	idx, err := f.GetSheetIndex(SummarySheet)
	if err == nil {
		f.SetActiveSheet(idx)
	}
	return f, nil
}

// Write streams the workbook for s to w.
func Write(w io.Writer, s settlement.Settlement, currency string) error {
	f, err := Workbook(s, currency)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Filename is the download name for a period's workbook.
func Filename(p core.Period) string {
	return fmt.Sprintf("settlement_%s.xlsx", p)
}

func writeSummary(f *excelize.File, s settlement.Settlement, currency string) error {
	rows := [][]any{
		{"Period", s.Period.String()},
		{"Recorded At", s.CreatedAt.UTC().Format(time.RFC3339)},
		{"Payer", s.Payer},
		{"Comment", s.Comment},
		{},
		{"Item", "Amount", "Display"},
		{"Total Income", s.TotalIncome, core.FormatAmount(currency, s.TotalIncome)},
		{"Total Expense", s.TotalExpense, core.FormatAmount(currency, s.TotalExpense)},
		{"Remaining Budget", s.RemainingBudget, core.FormatAmount(currency, s.RemainingBudget)},
		{},
		{fmt.Sprintf("Amount Owed to %s", s.Payer), "Amount", "Display"},
	}
	for _, name := range s.Participants {
		owed, ok := s.AmountOwed[name]
		if !ok {
			continue
		}
		rows = append(rows, []any{name, owed, core.FormatAmount(currency, owed)})
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("summary cell: %w", err)
		}
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}

	if err := f.SetColWidth(SummarySheet, "A", "A", 24); err != nil {
		return fmt.Errorf("summary column width: %w", err)
	}
	return f.SetColWidth(SummarySheet, "B", "C", 16)
}

func writeFlow(f *excelize.File, g settlement.FlowGraph) error {
	header := []any{"Source", "Target", "Weight"}
	if err := f.SetSheetRow(FlowSheet, "A1", &header); err != nil {
		return fmt.Errorf("write flow header: %w", err)
	}

	for i, e := range g.Edges {
		if e.Source < 0 || e.Source >= len(g.Nodes) || e.Target < 0 || e.Target >= len(g.Nodes) {
			return fmt.Errorf("flow edge %d references unknown node", i)
		}
		weight, _ := e.Weight.Float64()
		row := []any{g.Nodes[e.Source], g.Nodes[e.Target], weight}
		if err := f.SetSheetRow(FlowSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("write flow row %d: %w", i+2, err)
		}
	}

	return f.SetColWidth(FlowSheet, "A", "B", 20)
}
