package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"tripledger/internal/core"
	"tripledger/internal/events"
	"tripledger/internal/ledger"
	"tripledger/internal/log"
	"tripledger/internal/settlement"
)

// LedgerService is the boundary between callers and the ledger store: store
// faults are logged here and turned into false or empty results.
type LedgerService struct {
	store     ledger.Store
	publisher events.Publisher
	logger    *log.Logger
	now       func() time.Time
	newID     func() string
}

// NewLedgerService wires store and an optional publisher (nil disables events).
func NewLedgerService(store ledger.Store, publisher events.Publisher) *LedgerService {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// WithLogger replaces the service logger.
func (s *LedgerService) WithLogger(l *log.Logger) *LedgerService {
	s.logger = l.WithComponent(log.ComponentLedger)
	return s
}

// Insert writes the submission as one batch stamped with a fresh batch ID and a
// single UTC timestamp. It reports false on any failure.
func (s *LedgerService) Insert(ctx context.Context, sub core.Submission) bool {
	if err := sub.Validate(); err != nil {
		s.logger.WarnContext(ctx, "Rejected invalid submission",
			log.NewFields().
				WithOperation(log.OpValidate).
				WithPeriod(sub.Period.String()).
				WithErrorType(log.ErrorTypeValidation).
				WithError(err).
				ToSlice()...)
		return false
	}
	sub.Period = sub.Period.Canonical()

	batchID := s.newID()
	createdAt := s.now().UTC()

	if err := s.store.Insert(ctx, sub, batchID, createdAt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save ledger batch",
			log.NewFields().
				WithOperation(log.OpInsert).
				WithPeriod(sub.Period.String()).
				WithErrorType(log.ErrorTypeDatabase).
				WithError(err).
				ToSlice()...)
		return false
	}

	s.logger.InfoContext(ctx, "Ledger batch saved",
		log.NewFields().
			WithOperation(log.OpInsert).
			WithBatch(sub.Period.String(), batchID, sub.Payer, len(sub.Participants), sub.TotalIncome).
			ToSlice()...)

	// The batch is committed; a lost notification only delays the sheet mirror.
	msg := events.NewBatchRecorded(sub.Period, batchID, sub.Participants, createdAt)
	if err := s.publisher.PublishBatchRecorded(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish batch recorded event",
			log.NewFields().
				WithOperation(log.OpPublish).
				WithPeriod(sub.Period.String()).
				WithErrorType(log.ErrorTypeNetwork).
				WithError(err).
				ToSlice()...)
	}
	return true
}

// ListPeriods returns the distinct stored periods, or nil when the store fails.
func (s *LedgerService) ListPeriods(ctx context.Context) []core.Period {
	periods, err := s.store.ListPeriods(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list periods",
			log.NewFields().
				WithOperation(log.OpList).
				WithErrorType(log.ErrorTypeDatabase).
				WithError(err).
				ToSlice()...)
		return nil
	}
	return periods
}

// Fetch returns every row of the period, or nil when there are none or the store fails.
func (s *LedgerService) Fetch(ctx context.Context, p core.Period) []core.LedgerRow {
	rows, err := s.store.Fetch(ctx, p)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to fetch period",
			log.NewFields().
				WithOperation(log.OpFetch).
				WithPeriod(p.String()).
				WithErrorType(log.ErrorTypeDatabase).
				WithError(err).
				ToSlice()...)
		return nil
	}
	if len(rows) == 0 {
		return nil
	}
	return rows
}

// Settle aggregates the latest batch of the period. A store failure reads as
// settlement.ErrNoData, like an empty period.
func (s *LedgerService) Settle(ctx context.Context, p core.Period) (settlement.Settlement, error) {
	rows := s.Fetch(ctx, p)
	result, err := settlement.Aggregate(rows, core.Categories)
	if err != nil {
		if !errors.Is(err, settlement.ErrNoData) {
			return settlement.Settlement{}, fmt.Errorf("settle %s: %w", p, err)
		}
		return settlement.Settlement{}, err
	}
	return result, nil
}

// Ping reports whether the store answers, for readiness checks.
func (s *LedgerService) Ping(ctx context.Context) error {
	if p, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	_, err := s.store.ListPeriods(ctx)
	return err
}

// Close releases the store and the publisher.
func (s *LedgerService) Close() error {
	var errs []error

	if c, ok := s.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if err := s.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("publisher: %w", err))
	}

	return errors.Join(errs...)
}
