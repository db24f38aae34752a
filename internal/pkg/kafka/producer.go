package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes CloudEvents to Kafka topics.
type Producer struct {
	writer *kafkago.Writer
	logger *zap.Logger
}

// NewProducer creates a producer for the given brokers. The topic is chosen per message.
func NewProducer(brokers []string, logger *zap.Logger) *Producer {
	return &Producer{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireAll,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

// PublishEvent writes ce to topic keyed by its subject so events of one entity stay ordered.
func (p *Producer) PublishEvent(ctx context.Context, topic string, ce CloudEvent) error {
	value, err := json.Marshal(ce)
	if err != nil {
		return fmt.Errorf("failed to marshal cloud event: %w", err)
	}

	key := ce.Subject
	if key == "" {
		key = ce.ID
	}

	if err := p.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "ce_type", Value: []byte(ce.Type)},
			{Key: "ce_source", Value: []byte(ce.Source)},
		},
	}); err != nil {
		return fmt.Errorf("failed to write to %s: %w", topic, err)
	}

	p.logger.Debug("event published",
		zap.String("topic", topic),
		zap.String("event_type", ce.Type),
		zap.String("event_id", ce.ID),
	)
	return nil
}

// Close flushes pending writes and releases the connection.
func (p *Producer) Close() error {
	return p.writer.Close()
}
