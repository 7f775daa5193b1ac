// Package config reads the service configuration from the environment.
// Credentials have no defaults: they must be supplied explicitly.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"tripledger/internal/log"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	EventsNone  = "none"
	EventsAMQP  = "amqp"
	EventsKafka = "kafka"
)

type Config struct {
	// HTTP Server
	Port string

	// Backend selection
	DataBackend string

	// SQLite
	SQLiteDBPath string

	// PostgreSQL
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// Events
	EventsBackend string
	AMQPURL       string
	AMQPExchange  string
	AMQPQueue     string
	KafkaBrokers  []string
	KafkaTopic    string
	KafkaGroupID  string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Presentation and caching
	Currency string
	CacheTTL time.Duration

	// Worker
	SyncConcurrency int

	LogLevel string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/tripledger.db"),

		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBName:     getEnv("DB_NAME", ""),
		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBSSLMode:  getEnv("DB_SSLMODE", "require"),

		EventsBackend: getEnv("EVENTS_BACKEND", EventsNone),
		AMQPURL:       getEnv("AMQP_URL", ""),
		AMQPExchange:  getEnv("AMQP_EXCHANGE", "tripledger"),
		AMQPQueue:     getEnv("AMQP_QUEUE", "batch_recorded"),
		KafkaBrokers:  getEnvList("KAFKA_BROKERS"),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "tripledger.batch_recorded"),
		KafkaGroupID:  getEnv("KAFKA_GROUP_ID", "tripledger-worker"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Settlements"),

		Currency: getEnv("CURRENCY", "RS"),
		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		SyncConcurrency: getEnvInt("SYNC_CONCURRENCY", 4),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSQLite, BackendPostgres}
	if !slices.Contains(validBackends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendSQLite:
		errs = append(errs, c.validateSQLite()...)
	case BackendPostgres:
		errs = append(errs, c.validatePostgres()...)
	}

	validEvents := []string{EventsNone, EventsAMQP, EventsKafka}
	if !slices.Contains(validEvents, c.EventsBackend) {
		errs = append(errs, fmt.Sprintf("invalid events backend '%s': must be one of %v", c.EventsBackend, validEvents))
	}

	switch c.EventsBackend {
	case EventsAMQP:
		errs = append(errs, c.validateAMQP()...)
	case EventsKafka:
		if len(c.KafkaBrokers) == 0 {
			errs = append(errs, "KAFKA_BROKERS is required when using kafka events")
		}
		if c.KafkaTopic == "" {
			errs = append(errs, "Kafka topic cannot be empty when using kafka events")
		}
	}

	if strings.TrimSpace(c.Currency) == "" {
		errs = append(errs, "currency label cannot be empty")
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must not be negative", c.CacheTTL))
	}
	if c.SyncConcurrency < 1 || c.SyncConcurrency > 64 {
		errs = append(errs, fmt.Sprintf("invalid sync concurrency %d: must be between 1 and 64", c.SyncConcurrency))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (c *Config) validateSQLite() []string {
	if c.SQLiteDBPath == "" {
		return []string{"SQLite database path cannot be empty when using sqlite backend"}
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return []string{fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)}
		}
	}
	return nil
}

func (c *Config) validatePostgres() []string {
	var errs []string
	required := []struct{ key, value string }{
		{"DB_HOST", c.DBHost},
		{"DB_NAME", c.DBName},
		{"DB_USER", c.DBUser},
		{"DB_PASSWORD", c.DBPassword},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Sprintf("%s is required when using postgres backend", r.key))
		}
	}
	if c.DBPort < 1 || c.DBPort > 65535 {
		errs = append(errs, fmt.Sprintf("invalid DB port %d: must be between 1 and 65535", c.DBPort))
	}
	validModes := []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validModes, c.DBSSLMode) {
		errs = append(errs, fmt.Sprintf("invalid DB sslmode '%s': must be one of %v", c.DBSSLMode, validModes))
	}
	return errs
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return []string{"AMQP_URL is required when using amqp events"}
	}
	var errs []string
	if parsed, err := url.Parse(c.AMQPURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL: %v", err))
	} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
	}
	if c.AMQPExchange == "" {
		errs = append(errs, "AMQP exchange name cannot be empty when using amqp events")
	}
	if c.AMQPQueue == "" {
		errs = append(errs, "AMQP queue name cannot be empty when using amqp events")
	}
	return errs
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
