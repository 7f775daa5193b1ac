package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tripledger/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "ledger.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testSubmission() core.Submission {
	return core.Submission{
		Period:       "2024_March",
		TotalIncome:  1000,
		Participants: []string{"A", "B"},
		Payer:        "A",
		Amounts: map[string]map[string]int64{
			"A": {"Food and Drinks": 100},
			"B": {"Food and Drinks": 50, "Transport": 20, "extra": 5},
		},
		Comment: "lake trip",
	}
}

func TestSQLiteRepositoryInsertFetch(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	at := time.Date(2024, 3, 2, 9, 30, 0, 123, time.UTC)

	if err := repo.Insert(ctx, testSubmission(), "batch-1", at); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rows, err := repo.Fetch(ctx, "2024_March")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	b := rows[1]
	if b.Name != "B" || b.Payer != "A" || b.BatchID != "batch-1" || b.TotalIncome != 1000 {
		t.Fatalf("unexpected row: %+v", b)
	}
	if b.Amount(core.FoodAndDrinks) != 50 || b.Amount(core.Transport) != 20 || b.Amount(core.Shopping) != 0 {
		t.Fatalf("unexpected amounts: %v", b.Amounts)
	}
	if b.Extra != 5 || b.Comment != "lake trip" {
		t.Fatalf("unexpected extra/comment: %d %q", b.Extra, b.Comment)
	}
	if !b.CreatedAt.Equal(at) {
		t.Fatalf("timestamp round trip: got %v want %v", b.CreatedAt, at)
	}

	empty, err := repo.Fetch(ctx, "2024_April")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected no rows for unknown period, got %d err=%v", len(empty), err)
	}
}

func TestSQLiteRepositoryListPeriods(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	at := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)

	march := testSubmission()
	april := testSubmission()
	april.Period = "2024_April"

	for i, s := range []core.Submission{march, april, march} {
		if err := repo.Insert(ctx, s, "batch-"+string(rune('a'+i)), at); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	periods, err := repo.ListPeriods(ctx)
	if err != nil {
		t.Fatalf("ListPeriods: %v", err)
	}
	if len(periods) != 2 || periods[0] != "2024_March" || periods[1] != "2024_April" {
		t.Fatalf("unexpected periods: %v", periods)
	}
}

func TestSQLiteRepositoryRejectsInvalidSubmission(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	bad := testSubmission()
	bad.Payer = "Z"
	if err := repo.Insert(ctx, bad, "batch-1", time.Now()); err == nil {
		t.Fatal("expected validation error")
	}
	rows, _ := repo.Fetch(ctx, "2024_March")
	if len(rows) != 0 {
		t.Fatalf("invalid batch wrote %d rows", len(rows))
	}
}

func TestSQLiteRepositoryBatchIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	at := time.Now().UTC()

	// The second row collides on (batch_id, name) and must take the first one down with it.
	rows := testSubmission().Rows("batch-1", at)
	rows = append(rows, rows[0])

	if err := repo.insertRows(ctx, rows); err == nil {
		t.Fatal("expected unique constraint violation")
	}

	got, err := repo.Fetch(ctx, "2024_March")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("partial batch persisted: %d rows", len(got))
	}
}

func TestSQLiteRepositoryCoercesBadAmounts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.db.ExecContext(ctx, `INSERT INTO ledger_rows
		(period, batch_id, total_income, name, payer, extra, shopping, transport, comment, created_at)
		VALUES ('2024_March', 'b', '1000', 'A', 'A', NULL, 'abc', '12.9', '', ?)`,
		formatTimestamp(time.Now()))
	if err != nil {
		t.Fatalf("raw insert: %v", err)
	}

	rows, err := repo.Fetch(ctx, "2024_March")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.TotalIncome != 1000 || r.Extra != 0 || r.Amount(core.Shopping) != 0 || r.Amount(core.Transport) != 12 {
		t.Fatalf("unexpected coercion: income=%d extra=%d amounts=%v", r.TotalIncome, r.Extra, r.Amounts)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 2; i++ {
		version, err := RunMigrations(path)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if version != 1 {
			t.Fatalf("run %d: schema version = %d, want 1", i, version)
		}
	}
}
