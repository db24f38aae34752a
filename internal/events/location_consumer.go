package events

import (
	"context"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/domain/geo"
	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"github.com/Kilat-Ride/service-fare/internal/pkg/events"
	"github.com/Kilat-Ride/service-fare/internal/pkg/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// LocationRecorder applies driver presence changes to the party directory.
// It is implemented by application.ProfileService.
type LocationRecorder interface {
	ApplyLocationUpdate(ctx context.Context, driverID string, point geo.Point, at time.Time) error
	MarkOffline(ctx context.Context, driverID string, at time.Time) error
}

// LocationEventConsumer keeps drivers' live locations current from the driver app stream.
type LocationEventConsumer struct {
	consumer *kafka.Consumer
	recorder LocationRecorder
	logger   *zap.Logger
}

// NewLocationEventConsumer creates a new LocationEventConsumer.
func NewLocationEventConsumer(
	brokers []string,
	groupID string,
	recorder LocationRecorder,
	logger *zap.Logger,
) *LocationEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, events.TopicDriverLocationEvents, logger)
	return &LocationEventConsumer{
		consumer: consumer,
		recorder: recorder,
		logger:   logger,
	}
}

// Start begins consuming location events. This blocks until the context is cancelled.
func (c *LocationEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *LocationEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *LocationEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from location topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case events.DriverLocationUpdated:
		return c.handleLocationUpdated(ctx, cloudEvent)
	case events.DriverWentOffline:
		return c.handleWentOffline(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled location event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *LocationEventConsumer) handleLocationUpdated(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt events.DriverLocationUpdatedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse DriverLocationUpdatedEvent data", zap.Error(err))
		return nil
	}

	at := reportedAt(evt.OccurredAt, cloudEvent)
	err := c.recorder.ApplyLocationUpdate(ctx, evt.DriverID, geo.Point{Lat: evt.Lat, Lng: evt.Lng}, at)
	return c.settle(err, "location update", evt.DriverID)
}

func (c *LocationEventConsumer) handleWentOffline(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt events.DriverWentOfflineEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse DriverWentOfflineEvent data", zap.Error(err))
		return nil
	}

	err := c.recorder.MarkOffline(ctx, evt.DriverID, reportedAt(evt.OccurredAt, cloudEvent))
	return c.settle(err, "went offline", evt.DriverID)
}

// settle drops events that can never apply. Any other error is returned so the
// consumer retries the event before moving past its offset.
func (c *LocationEventConsumer) settle(err error, what, driverID string) error {
	if err == nil {
		return nil
	}
	switch domain.KindOf(err) {
	case domain.KindNotFound, domain.KindValidation:
		c.logger.Warn("dropping "+what+" event",
			zap.String("driver_id", driverID),
			zap.Error(err),
		)
		return nil
	default:
		c.logger.Error("failed to apply "+what+" event",
			zap.String("driver_id", driverID),
			zap.Error(err),
		)
		return err
	}
}

func reportedAt(occurredAt time.Time, ce kafka.CloudEvent) time.Time {
	if !occurredAt.IsZero() {
		return occurredAt
	}
	return ce.Time
}
