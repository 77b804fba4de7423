// Package kafka publishes booking events to a Kafka topic, keyed by booking id so
// that all events of one booking land on the same partition in order.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/avstrong/hotelbooking/internal/booking"
	"github.com/avstrong/hotelbooking/internal/logger"
)

const (
	maxAttempts         = 3
	defaultBatchTimeout = 10 * time.Millisecond
)

type Config struct {
	L       *logger.Logger
	Brokers []string
	Topic   string

	// BatchTimeout bounds how long a synchronous write waits to fill a batch.
	BatchTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	l      *logger.Logger
	writer messageWriter
	topic  string
}

func New(conf Config) (*Publisher, error) {
	if len(conf.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}

	if conf.Topic == "" {
		return nil, errors.New("topic cannot be empty")
	}

	batchTimeout := conf.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = defaultBatchTimeout
	}

	//nolint:exhaustruct
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(conf.Brokers...),
		Topic:                  conf.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            maxAttempts,
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: true,
		Logger:                 kafka.LoggerFunc(conf.L.LogDebugf),
		ErrorLogger:            kafka.LoggerFunc(conf.L.LogErrorf),
	}

	return newWithWriter(conf.L, writer, conf.Topic), nil
}

func newWithWriter(l *logger.Logger, w messageWriter, topic string) *Publisher {
	return &Publisher{l: l, writer: w, topic: topic}
}

func (p *Publisher) Publish(ctx context.Context, event booking.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.Itoa(event.BookingID)),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event to %s: %w", event.Type, p.topic, err)
	}

	p.l.LogDebugf("Published %s for booking %d", event.Type, event.BookingID)

	return nil
}

func (p *Publisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}

	return nil
}
