package memory

import (
	"context"
	"testing"
	"time"

	"tripledger/internal/settlement"
)

func TestSheetAppendSettlement(t *testing.T) {
	s := New()
	st := settlement.Settlement{
		Period:          "2024_March",
		BatchID:         "b1",
		CreatedAt:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Payer:           "A",
		Participants:    []string{"A", "B"},
		Contributions:   map[string]int64{"A": 100, "B": 70},
		TotalIncome:     1000,
		TotalExpense:    170,
		RemainingBudget: 830,
		AmountOwed:      map[string]int64{"B": 70},
	}

	ref, err := s.AppendSettlement(context.Background(), st)
	if err != nil {
		t.Fatalf("AppendSettlement: %v", err)
	}
	if ref != "mem!A2:H6" {
		t.Errorf("ref = %q", ref)
	}

	rows := s.Rows()
	if len(rows) != 6 {
		t.Fatalf("expected header + 5 rows, got %d", len(rows))
	}
	if rows[5][4] != "B" || rows[5][5] != int64(70) || rows[5][6] != int64(70) {
		t.Errorf("unexpected participant row %v", rows[5])
	}
	if rows[4][6] != "" {
		t.Errorf("payer row must leave owed empty, got %v", rows[4][6])
	}

	ref, _ = s.AppendSettlement(context.Background(), st)
	if ref != "mem!A7:H11" {
		t.Errorf("second ref = %q", ref)
	}
	if len(s.Settlements()) != 2 {
		t.Errorf("expected 2 settlements")
	}
}

func TestSheetRejectsEmptyPeriod(t *testing.T) {
	if _, err := New().AppendSettlement(context.Background(), settlement.Settlement{}); err == nil {
		t.Error("expected error")
	}
}

func TestSheetHasBatch(t *testing.T) {
	s := New()
	ctx := context.Background()
	if ok, _ := s.HasBatch(ctx, "Batch"); ok {
		t.Error("header must not count as a batch")
	}

	st := settlement.Settlement{Period: "2024_March", BatchID: "b1", Payer: "A", Participants: []string{"A"}}
	if _, err := s.AppendSettlement(ctx, st); err != nil {
		t.Fatalf("AppendSettlement: %v", err)
	}
	if ok, err := s.HasBatch(ctx, "b1"); err != nil || !ok {
		t.Errorf("HasBatch(b1) = %v, %v", ok, err)
	}
	if ok, _ := s.HasBatch(ctx, "b2"); ok {
		t.Error("HasBatch(b2) = true")
	}
}
