// Package worker mirrors settlements to the spreadsheet when batches are recorded.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"tripledger/internal/core"
	"tripledger/internal/events"
	"tripledger/internal/ledger"
	"tripledger/internal/log"
	"tripledger/internal/settlement"
	"tripledger/internal/sheets"
)

// Reader is the part of the ledger store the worker needs.
type Reader interface {
	ledger.PeriodLister
	ledger.PeriodFetcher
}

// SyncWorker appends the latest settlement of a period to the sheet. A batch
// already present on the sheet is never written again, so redelivered messages
// and restarts do not duplicate rows.
type SyncWorker struct {
	store       Reader
	sheets      sheets.SettlementWriter
	concurrency int
	logger      *log.Logger

	mu       sync.Mutex
	mirrored map[core.Period]string
}

func NewSyncWorker(store Reader, writer sheets.SettlementWriter, concurrency int) *SyncWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SyncWorker{
		store:       store,
		sheets:      writer,
		concurrency: concurrency,
		logger:      log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker),
		mirrored:    make(map[core.Period]string),
	}
}

func (w *SyncWorker) WithLogger(l *log.Logger) *SyncWorker {
	w.logger = l.WithComponent(log.ComponentWorker)
	return w
}

// HandleBatchRecorded implements events.Handler. A message whose batch is no
// longer the latest of its period is acknowledged without writing.
func (w *SyncWorker) HandleBatchRecorded(ctx context.Context, msg events.BatchRecorded) error {
	w.logger.InfoContext(ctx, "Processing batch recorded message",
		log.FieldPeriod, msg.Period,
		log.FieldBatchID, msg.BatchID)

	s, err := w.settle(ctx, msg.Period)
	if errors.Is(err, settlement.ErrNoData) {
		w.logger.WarnContext(ctx, "No rows for recorded batch, skipping",
			log.FieldPeriod, msg.Period,
			log.FieldBatchID, msg.BatchID)
		return nil
	}
	if err != nil {
		return err
	}

	if s.BatchID != msg.BatchID {
		w.logger.InfoContext(ctx, "Skipping stale batch",
			log.FieldPeriod, msg.Period,
			log.FieldBatchID, msg.BatchID,
			"latest_batch_id", s.BatchID)
		return nil
	}
	return w.mirror(ctx, s)
}

// SyncAll mirrors the latest settlement of every stored period, at most
// concurrency periods at a time. Every period is attempted; the first error is returned.
func (w *SyncWorker) SyncAll(ctx context.Context) error {
	periods, err := w.store.ListPeriods(ctx)
	if err != nil {
		return fmt.Errorf("list periods: %w", err)
	}

	var g errgroup.Group
	g.SetLimit(w.concurrency)

	for _, p := range periods {
		g.Go(func() error {
			s, err := w.settle(ctx, p)
			if errors.Is(err, settlement.ErrNoData) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := w.mirror(ctx, s); err != nil {
				w.logger.ErrorContext(ctx, "Failed to sync period",
					log.NewFields().
						WithOperation(log.OpSync).
						WithPeriod(p.String()).
						WithError(err).
						ToSlice()...)
				return err
			}
			return nil
		})
	}

	err = g.Wait()
	w.logger.InfoContext(ctx, "Startup sync completed",
		"periods", len(periods),
		"success", err == nil)
	return err
}

func (w *SyncWorker) settle(ctx context.Context, p core.Period) (settlement.Settlement, error) {
	rows, err := w.store.Fetch(ctx, p)
	if err != nil {
		return settlement.Settlement{}, fmt.Errorf("fetch %s: %w", p, err)
	}
	return settlement.Aggregate(rows, core.Categories)
}

func (w *SyncWorker) mirror(ctx context.Context, s settlement.Settlement) error {
	if w.alreadyMirrored(s.Period, s.BatchID) {
		w.logger.DebugContext(ctx, "Batch already mirrored",
			log.FieldPeriod, s.Period,
			log.FieldBatchID, s.BatchID)
		return nil
	}

	// The in-memory record is lost on restart; the sheet itself is the durable one.
	onSheet, err := w.sheets.HasBatch(ctx, s.BatchID)
	if err != nil {
		return fmt.Errorf("check sheet for batch %s: %w", s.BatchID, err)
	}
	if onSheet {
		w.remember(s.Period, s.BatchID)
		w.logger.DebugContext(ctx, "Batch already on sheet",
			log.FieldPeriod, s.Period,
			log.FieldBatchID, s.BatchID)
		return nil
	}

	ref, err := w.sheets.AppendSettlement(ctx, s)
	if err != nil {
		return fmt.Errorf("append settlement %s: %w", s.Period, err)
	}

	w.remember(s.Period, s.BatchID)

	w.logger.InfoContext(ctx, "Settlement mirrored",
		log.FieldPeriod, s.Period,
		log.FieldBatchID, s.BatchID,
		log.FieldSheetsRef, ref)
	return nil
}

func (w *SyncWorker) alreadyMirrored(p core.Period, batchID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mirrored[p] == batchID
}

func (w *SyncWorker) remember(p core.Period, batchID string) {
	w.mu.Lock()
	w.mirrored[p] = batchID
	w.mu.Unlock()
}
