package backend

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tripledger/internal/config"
	"tripledger/internal/core"
	"tripledger/internal/events"
	"tripledger/internal/events/kafka"
	"tripledger/internal/log"
	sheetmem "tripledger/internal/sheets/memory"
)

func testFactory() Factory {
	var buf bytes.Buffer
	return NewFactory(log.New(log.Config{Output: &buf}))
}

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		DataBackend:   "postgres",
		EventsBackend: "kafka",
		DBHost:        "db",
		DBPort:        5432,
		DBName:        "ledger",
		DBUser:        "trip",
		DBPassword:    "pw",
		DBSSLMode:     "disable",
		KafkaBrokers:  []string{"k:9092"},
		KafkaTopic:    "t",
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.Events != KafkaEvents || cfg.Postgres.Password != "pw" {
		t.Errorf("unexpected config %+v", cfg)
	}

	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend, Events: NoEvents}, false},
		{"sqlite without path", Config{Type: SQLiteBackend, Events: NoEvents}, true},
		{"postgres without host", Config{Type: PostgresBackend, Events: NoEvents}, true},
		{"amqp without url", Config{Type: MemoryBackend, Events: AMQPEvents}, true},
		{"kafka without brokers", Config{Type: MemoryBackend, Events: KafkaEvents, KafkaTopic: "t"}, true},
		{"bad events", Config{Type: MemoryBackend, Events: "nats"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateStore(t *testing.T) {
	ctx := context.Background()
	f := testFactory()

	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateStore(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateStore: %v", err)
			}
			if res.Cleanup != nil {
				defer res.Cleanup()
			}

			sub := core.Submission{Period: "2024_March", TotalIncome: 10, Participants: []string{"A"}, Payer: "A"}
			if err := res.Store.Insert(ctx, sub, "b1", time.Now()); err != nil {
				t.Fatalf("Insert: %v", err)
			}
			rows, err := res.Store.Fetch(ctx, "2024_March")
			if err != nil || len(rows) != 1 {
				t.Fatalf("Fetch = %d rows, err %v", len(rows), err)
			}
		})
	}

	if _, err := f.CreateStore(ctx, Config{Type: "oracle"}); err == nil {
		t.Error("expected error for unsupported backend")
	}
}

func TestCreatePublisherAndConsumer(t *testing.T) {
	ctx := context.Background()
	f := testFactory()

	pub, err := f.CreatePublisher(ctx, Config{Events: NoEvents})
	if err != nil {
		t.Fatalf("CreatePublisher: %v", err)
	}
	if _, ok := pub.(events.Nop); !ok {
		t.Errorf("expected Nop publisher, got %T", pub)
	}

	pub, err = f.CreatePublisher(ctx, Config{Events: KafkaEvents, KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"})
	if err != nil {
		t.Fatalf("CreatePublisher kafka: %v", err)
	}
	if _, ok := pub.(*kafka.Publisher); !ok {
		t.Errorf("expected kafka publisher, got %T", pub)
	}
	pub.Close()

	if _, err := f.CreateConsumer(ctx, Config{Events: NoEvents}); !errors.Is(err, ErrNoConsumer) {
		t.Errorf("expected ErrNoConsumer, got %v", err)
	}
}

func TestCreateSheetWriterDefaultsToMemory(t *testing.T) {
	w, err := testFactory().CreateSheetWriter(context.Background(), Config{})
	if err != nil {
		t.Fatalf("CreateSheetWriter: %v", err)
	}
	if _, ok := w.(*sheetmem.Sheet); !ok {
		t.Errorf("expected memory sheet, got %T", w)
	}
}
