package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Aidin1998/todos/internal/todos"
	"github.com/Aidin1998/todos/pkg/metrics"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaConfig contains configuration for the Kafka connection
type KafkaConfig struct {
	Brokers      []string      `json:"brokers"`
	Topic        string        `json:"topic"`
	WriteTimeout time.Duration `json:"write_timeout"`
	BatchSize    int           `json:"batch_size"`
	BatchTimeout time.Duration `json:"batch_timeout"`
	RequiredAcks int           `json:"required_acks"`
	RetryMax     int           `json:"retry_max"`
}

// DefaultKafkaConfig returns the default configuration. Publish is called
// inline with each request, so a batch of one is flushed immediately.
func DefaultKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers:      []string{"localhost:9092"},
		Topic:        "todos.events",
		WriteTimeout: 5 * time.Second,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
		RetryMax:     3,
	}
}

// messageWriter is the part of *kafka.Writer used by the publisher
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes todo lifecycle events, keyed by todo id so every
// event for one todo lands on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	logger *zap.Logger
}

var _ todos.Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher writing to config.Topic
func NewKafkaPublisher(config *KafkaConfig, logger *zap.Logger) (*KafkaPublisher, error) {
	if config == nil {
		config = DefaultKafkaConfig()
	}
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("kafka: no topic configured")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Topic:        config.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: config.WriteTimeout,
		BatchSize:    config.BatchSize,
		BatchTimeout: config.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(config.RequiredAcks),
		MaxAttempts:  config.RetryMax,
	}

	return newKafkaPublisher(writer, logger), nil
}

func newKafkaPublisher(writer messageWriter, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{writer: writer, logger: logger.Named("kafka")}
}

// Publish writes a single event
func (p *KafkaPublisher) Publish(ctx context.Context, event todos.Event) error {
	msg, err := encodeEvent(event)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(string(event.Type), "error").Inc()
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.EventsPublished.WithLabelValues(string(event.Type), "error").Inc()
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	metrics.EventsPublished.WithLabelValues(string(event.Type), "ok").Inc()
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		p.logger.Error("Failed to close writer", zap.Error(err))
		return err
	}
	return nil
}

func encodeEvent(event todos.Event) (kafka.Message, error) {
	if event.Todo == nil {
		return kafka.Message{}, fmt.Errorf("event %s has no todo", event.Type)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal message: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.Todo.ID.Hex()),
		Value: data,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}, nil
}
