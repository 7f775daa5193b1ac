package backend

import (
	"context"
	"errors"
	"fmt"

	"tripledger/internal/amqp"
	"tripledger/internal/events"
	"tripledger/internal/events/kafka"
	"tripledger/internal/ledger/memory"
	"tripledger/internal/log"
	"tripledger/internal/sheets"
	gsheet "tripledger/internal/sheets/google"
	sheetmem "tripledger/internal/sheets/memory"
	"tripledger/internal/storage"
	"tripledger/internal/storage/postgres"
)

// ErrNoConsumer is returned by CreateConsumer when events are disabled.
var ErrNoConsumer = errors.New("events backend is none: nothing to consume")

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return &StoreResult{Store: repo, Cleanup: repo.Close}, nil

	case PostgresBackend:
		store, err := postgres.New(ctx, config.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL store: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized PostgreSQL backend",
			"host", config.Postgres.Host,
			"database", config.Postgres.Name)
		return &StoreResult{Store: store, Cleanup: store.Close}, nil

	case MemoryBackend:
		f.logger.InfoContext(ctx, "Initialized memory backend")
		return &StoreResult{Store: memory.New()}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreatePublisher never fails for a broker outage: the service keeps saving
// batches and only loses the notification.
func (f *DefaultFactory) CreatePublisher(ctx context.Context, config Config) (events.Publisher, error) {
	switch config.Events {
	case AMQPEvents:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without events", "error", err)
			return events.Nop{}, nil
		}
		f.logger.InfoContext(ctx, "Initialized AMQP publisher",
			"exchange", config.AMQPExchange,
			"queue", config.AMQPQueue)
		return client, nil

	case KafkaEvents:
		f.logger.InfoContext(ctx, "Initialized Kafka publisher", "topic", config.KafkaTopic)
		return kafka.NewPublisher(config.KafkaBrokers, config.KafkaTopic), nil

	case NoEvents, "":
		return events.Nop{}, nil

	default:
		return nil, fmt.Errorf("unsupported events backend: %s", config.Events)
	}
}

func (f *DefaultFactory) CreateConsumer(ctx context.Context, config Config) (events.Consumer, error) {
	switch config.Events {
	case AMQPEvents:
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize AMQP consumer: %w", err)
		}
		return client, nil

	case KafkaEvents:
		return kafka.NewConsumer(config.KafkaBrokers, config.KafkaTopic, config.KafkaGroupID), nil

	case NoEvents, "":
		return nil, ErrNoConsumer

	default:
		return nil, fmt.Errorf("unsupported events backend: %s", config.Events)
	}
}

func (f *DefaultFactory) CreateSheetWriter(ctx context.Context, config Config) (sheets.SettlementWriter, error) {
	if config.GoogleSpreadsheetID == "" {
		f.logger.WarnContext(ctx, "GOOGLE_SPREADSHEET_ID not set, settlements are mirrored in memory only")
		return sheetmem.New(), nil
	}
	cli, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets writer", "sheet", config.GoogleSheetName)
	return cli, nil
}
