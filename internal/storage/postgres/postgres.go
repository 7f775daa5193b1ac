// Package postgres is the PostgreSQL ledger store. Each operation opens its own
// connection and closes it when done.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"

	"tripledger/internal/core"
	"tripledger/internal/ledger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var _ ledger.Store = (*Store)(nil)

const (
	insertRowSQL = `INSERT INTO ledger_rows (
	period, batch_id, total_income, name, payer, extra,
	shopping, transport, accommodation, entertainment, miscellaneous, food_drinks,
	comment, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	listPeriodsSQL = `SELECT period FROM ledger_rows GROUP BY period ORDER BY MIN(id)`

	fetchPeriodSQL = `SELECT id, period, batch_id, total_income, name, payer, extra,
	shopping, transport, accommodation, entertainment, miscellaneous, food_drinks,
	comment, created_at
FROM ledger_rows WHERE period = $1 ORDER BY id`
)

var amountColumns = []core.Category{
	core.Shopping,
	core.Transport,
	core.Accommodation,
	core.Entertainment,
	core.Miscellaneous,
	core.FoodAndDrinks,
}

// Config holds the connection parameters. All of them come from the environment.
type Config struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// DSN renders the connection URL for the given scheme ("postgres" for pgx,
// "pgx5" for the migrator).
func (c Config) DSN(scheme string) string {
	u := url.URL{
		Scheme: scheme,
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", c.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

type Store struct {
	cfg Config
}

// New runs the embedded migrations and returns a store for cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	s := &Store{cfg: cfg}
	if err := s.ping(ctx); err != nil {
		return nil, err
	}
	if err := RunMigrations(cfg); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

func RunMigrations(cfg Config) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, cfg.DSN("pgx5"))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *Store) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, s.cfg.DSN("postgres"))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres %s/%s: %w", s.cfg.Host, s.cfg.Name, err)
	}
	return conn, nil
}

func (s *Store) ping(ctx context.Context) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Ping implements a readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return s.ping(ctx)
}

// Close is a no-op; connections never outlive an operation.
func (s *Store) Close() error {
	return nil
}

// Insert implements ledger.BatchWriter
func (s *Store) Insert(ctx context.Context, sub core.Submission, batchID string, createdAt time.Time) error {
	if err := sub.Validate(); err != nil {
		return fmt.Errorf("validate submission: %w", err)
	}
	rows := sub.Rows(batchID, createdAt)

	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, row := range rows {
			args := []any{row.Period.String(), row.BatchID, row.TotalIncome, row.Name, row.Payer, row.Extra}
			for _, c := range amountColumns {
				args = append(args, row.Amount(c))
			}
			args = append(args, row.Comment, row.CreatedAt.UTC())
			batch.Queue(insertRowSQL, args...)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("insert batch %s: %w", batchID, err)
	}

	slog.InfoContext(ctx, "Ledger batch saved to PostgreSQL",
		"period", sub.Period,
		"batch_id", batchID,
		"rows", len(rows))
	return nil
}

// ListPeriods implements ledger.PeriodLister
func (s *Store) ListPeriods(ctx context.Context) ([]core.Period, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	rows, err := conn.Query(ctx, listPeriodsSQL)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	periods, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Period, error) {
		var p string
		err := row.Scan(&p)
		return core.Period(p), err
	})
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	return periods, nil
}

// Fetch implements ledger.PeriodFetcher
func (s *Store) Fetch(ctx context.Context, p core.Period) ([]core.LedgerRow, error) {
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close(ctx)

	p = p.Canonical()
	rows, err := conn.Query(ctx, fetchPeriodSQL, p.String())
	if err != nil {
		return nil, fmt.Errorf("fetch period %s: %w", p, err)
	}
	out, err := pgx.CollectRows(rows, scanRow)
	if err != nil {
		return nil, fmt.Errorf("fetch period %s: %w", p, err)
	}
	return out, nil
}

func scanRow(rows pgx.CollectableRow) (core.LedgerRow, error) {
	var (
		row     core.LedgerRow
		period  string
		comment *string
		income  any
		extra   any
		amounts = make([]any, len(amountColumns))
	)
	dest := []any{&row.ID, &period, &row.BatchID, &income, &row.Name, &row.Payer, &extra}
	for i := range amounts {
		dest = append(dest, &amounts[i])
	}
	dest = append(dest, &comment, &row.CreatedAt)

	if err := rows.Scan(dest...); err != nil {
		return core.LedgerRow{}, fmt.Errorf("scan row: %w", err)
	}

	row.Period = core.Period(period)
	row.TotalIncome = core.CoerceAmount(income)
	row.Extra = core.CoerceAmount(extra)
	if comment != nil {
		row.Comment = *comment
	}
	row.CreatedAt = row.CreatedAt.UTC()
	row.Amounts = make(map[core.Category]int64, len(amountColumns))
	for i, c := range amountColumns {
		row.Amounts[c] = core.CoerceAmount(amounts[i])
	}
	return row, nil
}
