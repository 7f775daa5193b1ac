package postgres

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"

	"tripledger/internal/core"
)

func TestConfigDSN(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		scheme string
		want   string
	}{
		{
			name:   "with sslmode",
			cfg:    Config{Host: "db", Port: 5432, Name: "ledger", User: "trip", Password: "s3cret", SSLMode: "disable"},
			scheme: "postgres",
			want:   "postgres://trip:s3cret@db:5432/ledger?sslmode=disable",
		},
		{
			name:   "migrator scheme",
			cfg:    Config{Host: "db", Port: 6543, Name: "ledger", User: "trip", Password: "pw"},
			scheme: "pgx5",
			want:   "pgx5://trip:pw@db:6543/ledger",
		},
		{
			name:   "password is escaped",
			cfg:    Config{Host: "db", Port: 5432, Name: "ledger", User: "trip", Password: "p@ss/word"},
			scheme: "postgres",
			want:   "postgres://trip:p%40ss%2Fword@db:5432/ledger",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.DSN(tt.scheme); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Runs only against a real server: TEST_DB_HOST, TEST_DB_PORT, TEST_DB_NAME,
// TEST_DB_USER and TEST_DB_PASSWORD must be set.
func TestStoreIntegration(t *testing.T) {
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("TEST_DB_PORT"))
	if port == 0 {
		port = 5432
	}
	cfg := Config{
		Host:     host,
		Port:     port,
		Name:     os.Getenv("TEST_DB_NAME"),
		User:     os.Getenv("TEST_DB_USER"),
		Password: os.Getenv("TEST_DB_PASSWORD"),
		SSLMode:  "disable",
	}

	ctx := context.Background()
	store, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	period := core.Period("1999_January")
	sub := core.Submission{
		Period:       period,
		TotalIncome:  500,
		Participants: []string{"A", "B"},
		Payer:        "B",
		Amounts:      map[string]map[string]int64{"A": {"Shopping": 12}},
	}
	batchID := uuid.NewString()
	if err := store.Insert(ctx, sub, batchID, time.Now()); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	rows, err := store.Fetch(ctx, period)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	found := 0
	for _, r := range rows {
		if r.BatchID == batchID {
			found++
			if r.Name == "A" && r.Amount(core.Shopping) != 12 {
				t.Errorf("unexpected shopping amount %d", r.Amount(core.Shopping))
			}
		}
	}
	if found != 2 {
		t.Fatalf("expected 2 rows for batch, got %d", found)
	}
}
