package kafka

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	defaultRetryBase = 200 * time.Millisecond
	defaultRetryMax  = 30 * time.Second
)

// MessageHandler processes one message. A returned error makes Consume retry the
// same message; the offset is committed only after the handler succeeds.
type MessageHandler func(ctx context.Context, msg kafkago.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads one topic as a member of a consumer group.
type Consumer struct {
	reader    messageReader
	topic     string
	retryBase time.Duration
	retryMax  time.Duration
	logger    *zap.Logger
}

// NewConsumer creates a group consumer for topic.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return newConsumer(kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	}), topic, logger)
}

func newConsumer(reader messageReader, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:    reader,
		topic:     topic,
		retryBase: defaultRetryBase,
		retryMax:  defaultRetryMax,
		logger:    logger,
	}
}

// Consume fetches messages until ctx is cancelled. Messages are handled in
// partition order and a failing message blocks its successors until it succeeds.
func (c *Consumer) Consume(ctx context.Context, handle MessageHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return fmt.Errorf("failed to fetch from %s: %w", c.topic, err)
		}

		if err := c.handleWithRetry(ctx, msg, handle); err != nil {
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to commit offset",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// handleWithRetry runs handle until it succeeds. It only fails when ctx ends.
func (c *Consumer) handleWithRetry(ctx context.Context, msg kafkago.Message, handle MessageHandler) error {
	for attempt := 0; ; attempt++ {
		err := handle(ctx, msg)
		if err == nil {
			if attempt > 0 {
				c.logger.Info("message handled after retries",
					zap.String("topic", msg.Topic),
					zap.Int64("offset", msg.Offset),
					zap.Int("attempts", attempt+1),
				)
			}
			return nil
		}

		delay := c.retryDelay(attempt)
		c.logger.Error("message handler failed, retrying",
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Consumer) retryDelay(attempt int) time.Duration {
	delay := float64(c.retryBase) * math.Pow(2, float64(attempt))
	if delay > float64(c.retryMax) {
		return c.retryMax
	}
	return time.Duration(delay)
}

// Close leaves the group and closes the reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}
