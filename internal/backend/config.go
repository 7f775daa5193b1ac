package backend

import (
	"errors"
	"fmt"

	"tripledger/internal/config"
	"tripledger/internal/storage/postgres"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}

	cfg := Config{
		Type:         BackendType(appConfig.DataBackend),
		Events:       EventsType(appConfig.EventsBackend),
		SQLiteDBPath: appConfig.SQLiteDBPath,
		Postgres: postgres.Config{
			Host:     appConfig.DBHost,
			Port:     appConfig.DBPort,
			Name:     appConfig.DBName,
			User:     appConfig.DBUser,
			Password: appConfig.DBPassword,
			SSLMode:  appConfig.DBSSLMode,
		},
		AMQPURL:             appConfig.AMQPURL,
		AMQPExchange:        appConfig.AMQPExchange,
		AMQPQueue:           appConfig.AMQPQueue,
		KafkaBrokers:        appConfig.KafkaBrokers,
		KafkaTopic:          appConfig.KafkaTopic,
		KafkaGroupID:        appConfig.KafkaGroupID,
		GoogleSpreadsheetID: appConfig.GoogleSpreadsheetID,
		GoogleSheetName:     appConfig.GoogleSheetName,
	}
	if cfg.Events == "" {
		cfg.Events = NoEvents
	}
	return cfg, cfg.Validate()
}

// Validate checks what the factory needs for the selected backends.
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if !c.Events.IsValid() {
		return fmt.Errorf("invalid events backend: %s", c.Events)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.Postgres.Host == "" || c.Postgres.Name == "" || c.Postgres.User == "" {
			return errors.New("postgres host, database and user are required for postgres backend")
		}
	}

	switch c.Events {
	case AMQPEvents:
		if c.AMQPURL == "" {
			return errors.New("AMQP URL is required for amqp events")
		}
	case KafkaEvents:
		if len(c.KafkaBrokers) == 0 || c.KafkaTopic == "" {
			return errors.New("Kafka brokers and topic are required for kafka events")
		}
	}
	return nil
}
