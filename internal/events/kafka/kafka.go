// Package kafka carries ledger events over Kafka topics.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"tripledger/internal/events"
)

var (
	_ events.Publisher = (*Publisher)(nil)
	_ events.Consumer  = (*Consumer)(nil)
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
	topic  string
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		topic: topic,
	}
}

// PublishBatchRecorded keys messages by period so one period stays on one partition.
func (p *Publisher) PublishBatchRecorded(ctx context.Context, msg events.BatchRecorded) error {
	data, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Period.String()),
		Value: data,
		Time:  msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("write batch %s to %s: %w", msg.BatchID, p.topic, err)
	}

	slog.InfoContext(ctx, "Published batch recorded message",
		"period", msg.Period,
		"batch_id", msg.BatchID,
		"topic", p.topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

type Consumer struct {
	reader messageReader
	topic  string
}

func NewConsumer(brokers []string, topic, groupID string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		}),
		topic: topic,
	}
}

// ConsumeBatchRecorded commits an offset only after the handler succeeded or the
// message was found malformed. A failed handler stops consumption so the message
// is read again after restart.
func (c *Consumer) ConsumeBatchRecorded(ctx context.Context, handler events.Handler) error {
	slog.InfoContext(ctx, "Started consuming batch recorded messages", "topic", c.topic)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
				return ctx.Err()
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		msg, err := events.BatchRecordedFromJSON(m.Value)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to unmarshal message",
				"error", err,
				"partition", m.Partition,
				"offset", m.Offset)
		} else if err := handler(ctx, msg); err != nil {
			return fmt.Errorf("handle batch %s: %w", msg.BatchID, err)
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("commit offset %d: %w", m.Offset, err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
