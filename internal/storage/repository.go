package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tripledger/internal/core"
	"tripledger/internal/ledger"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*SQLiteRepository)(nil)

const (
	insertRowSQL = `INSERT INTO ledger_rows (
	period, batch_id, total_income, name, payer, extra,
	shopping, transport, accommodation, entertainment, miscellaneous, food_drinks,
	comment, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	listPeriodsSQL = `SELECT period FROM ledger_rows GROUP BY period ORDER BY MIN(id)`

	fetchPeriodSQL = `SELECT id, period, batch_id, total_income, name, payer, extra,
	shopping, transport, accommodation, entertainment, miscellaneous, food_drinks,
	comment, created_at
FROM ledger_rows WHERE period = ? ORDER BY id`
)

// Column order of the per-category amounts in the statements above.
var amountColumns = []core.Category{
	core.Shopping,
	core.Transport,
	core.Accommodation,
	core.Entertainment,
	core.Miscellaneous,
	core.FoodAndDrinks,
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "db_path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping implements a readiness check.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Insert implements ledger.BatchWriter. The whole batch is written in one transaction.
func (r *SQLiteRepository) Insert(ctx context.Context, s core.Submission, batchID string, createdAt time.Time) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validate submission: %w", err)
	}
	return r.insertRows(ctx, s.Rows(batchID, createdAt))
}

func (r *SQLiteRepository) insertRows(ctx context.Context, rows []core.LedgerRow) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertRowSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := []any{row.Period.String(), row.BatchID, row.TotalIncome, row.Name, row.Payer, row.Extra}
		for _, c := range amountColumns {
			args = append(args, row.Amount(c))
		}
		args = append(args, row.Comment, formatTimestamp(row.CreatedAt))

		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row for %q: %w", row.Name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	if len(rows) > 0 {
		slog.InfoContext(ctx, "Ledger batch saved to SQLite",
			"period", rows[0].Period,
			"batch_id", rows[0].BatchID,
			"rows", len(rows))
	}
	return nil
}

// ListPeriods implements ledger.PeriodLister
func (r *SQLiteRepository) ListPeriods(ctx context.Context) ([]core.Period, error) {
	rows, err := r.db.QueryContext(ctx, listPeriodsSQL)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	var periods []core.Period
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		periods = append(periods, core.Period(p))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate periods: %w", err)
	}
	return periods, nil
}

// Fetch implements ledger.PeriodFetcher
func (r *SQLiteRepository) Fetch(ctx context.Context, p core.Period) ([]core.LedgerRow, error) {
	p = p.Canonical()
	rows, err := r.db.QueryContext(ctx, fetchPeriodSQL, p.String())
	if err != nil {
		return nil, fmt.Errorf("fetch period %s: %w", p, err)
	}
	defer rows.Close()

	var out []core.LedgerRow
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("fetch period %s: %w", p, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate period %s: %w", p, err)
	}
	return out, nil
}

// scanRow reads amounts loosely: SQLite keeps whatever was written, so a
// non-numeric or NULL cell is coerced to zero instead of failing the scan.
func scanRow(rows *sql.Rows) (core.LedgerRow, error) {
	var (
		row       core.LedgerRow
		period    string
		comment   sql.NullString
		createdAt string
		income    any
		extra     any
		amounts   = make([]any, len(amountColumns))
	)
	dest := []any{&row.ID, &period, &row.BatchID, &income, &row.Name, &row.Payer, &extra}
	for i := range amounts {
		dest = append(dest, &amounts[i])
	}
	dest = append(dest, &comment, &createdAt)

	if err := rows.Scan(dest...); err != nil {
		return core.LedgerRow{}, fmt.Errorf("scan row: %w", err)
	}

	ts, err := parseTimestamp(createdAt)
	if err != nil {
		return core.LedgerRow{}, fmt.Errorf("row %d: %w", row.ID, err)
	}

	row.Period = core.Period(period)
	row.TotalIncome = core.CoerceAmount(income)
	row.Extra = core.CoerceAmount(extra)
	row.Comment = comment.String
	row.CreatedAt = ts
	row.Amounts = make(map[core.Category]int64, len(amountColumns))
	for i, c := range amountColumns {
		row.Amounts[c] = core.CoerceAmount(amounts[i])
	}
	return row, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t, nil
}
