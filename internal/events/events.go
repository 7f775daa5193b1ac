// Package events defines the notification emitted after a ledger batch is saved
// and the ports the brokers implement.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tripledger/internal/core"
)

// BatchRecorded announces a committed batch. Consumers re-read the period from
// the store; the message itself carries no amounts.
type BatchRecorded struct {
	Period       core.Period `json:"period"`
	BatchID      string      `json:"batch_id"`
	Participants []string    `json:"participants"`
	CreatedAt    time.Time   `json:"created_at"`
}

func NewBatchRecorded(p core.Period, batchID string, participants []string, createdAt time.Time) BatchRecorded {
	return BatchRecorded{
		Period:       p,
		BatchID:      batchID,
		Participants: append([]string(nil), participants...),
		CreatedAt:    createdAt.UTC(),
	}
}

func (m BatchRecorded) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BatchRecordedFromJSON(data []byte) (BatchRecorded, error) {
	var msg BatchRecorded
	if err := json.Unmarshal(data, &msg); err != nil {
		return BatchRecorded{}, fmt.Errorf("decode batch recorded: %w", err)
	}
	if err := msg.Period.Validate(); err != nil {
		return BatchRecorded{}, fmt.Errorf("decode batch recorded: %w", err)
	}
	if msg.BatchID == "" {
		return BatchRecorded{}, fmt.Errorf("decode batch recorded: missing batch_id")
	}
	return msg, nil
}

// Handler processes one message. Returning an error asks the broker to redeliver.
type Handler func(ctx context.Context, msg BatchRecorded) error

type (
	Publisher interface {
		PublishBatchRecorded(ctx context.Context, msg BatchRecorded) error
		Close() error
	}

	Consumer interface {
		ConsumeBatchRecorded(ctx context.Context, handler Handler) error
		Close() error
	}
)

// Nop discards every message. Used when EVENTS_BACKEND is "none".
type Nop struct{}

func (Nop) PublishBatchRecorded(context.Context, BatchRecorded) error { return nil }
func (Nop) Close() error { return nil }
