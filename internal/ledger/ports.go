// Package ledger declares the ports of the expense ledger store.
package ledger

import (
	"context"
	"time"

	"tripledger/internal/core"
)

// Ports for storage adapters.
type (
	// BatchWriter persists one row per participant of a submission, all sharing
	// batchID and createdAt. A failed insert must leave no partial batch.
	BatchWriter interface {
		Insert(ctx context.Context, s core.Submission, batchID string, createdAt time.Time) error
	}

	// PeriodLister returns the distinct periods currently persisted.
	PeriodLister interface {
		ListPeriods(ctx context.Context) ([]core.Period, error)
	}

	// PeriodFetcher returns every row of a period, older batches included.
	PeriodFetcher interface {
		Fetch(ctx context.Context, p core.Period) ([]core.LedgerRow, error)
	}

	Store interface {
		BatchWriter
		PeriodLister
		PeriodFetcher
	}
)
