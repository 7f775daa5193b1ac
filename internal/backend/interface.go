// Package backend builds the store, event and sheet adapters selected by configuration.
package backend

import (
	"context"

	"tripledger/internal/events"
	"tripledger/internal/ledger"
	"tripledger/internal/sheets"
	"tripledger/internal/storage/postgres"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// StoreResult is the ledger store and its cleanup function.
type StoreResult struct {
	Store   ledger.Store
	Cleanup CleanupFunc
}

// Factory creates adapters based on configuration.
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
	CreatePublisher(ctx context.Context, config Config) (events.Publisher, error)
	CreateConsumer(ctx context.Context, config Config) (events.Consumer, error)
	CreateSheetWriter(ctx context.Context, config Config) (sheets.SettlementWriter, error)
}

type Config struct {
	Type   BackendType
	Events EventsType

	// SQLite specific
	SQLiteDBPath string

	// PostgreSQL specific
	Postgres postgres.Config

	// AMQP specific
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Kafka specific
	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroupID string

	// Google Sheets; an empty spreadsheet ID selects the in-memory sheet
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

// BackendType is the ledger store implementation.
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// EventsType is the broker carrying BatchRecorded messages.
type EventsType string

const (
	NoEvents    EventsType = "none"
	AMQPEvents  EventsType = "amqp"
	KafkaEvents EventsType = "kafka"
)

func (et EventsType) IsValid() bool {
	switch et {
	case NoEvents, AMQPEvents, KafkaEvents:
		return true
	default:
		return false
	}
}
