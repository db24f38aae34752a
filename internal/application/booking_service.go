package application

import (
	"context"
	"fmt"
	"time"

	bookingDomain "github.com/Kilat-Ride/service-fare/internal/domain/booking"
	"github.com/Kilat-Ride/service-fare/internal/domain/fare"
	"github.com/Kilat-Ride/service-fare/internal/domain/geo"
	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"github.com/Kilat-Ride/service-fare/internal/pkg/events"
	"github.com/Kilat-Ride/service-fare/internal/pkg/kafka"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FareQuoter prices a proposed ride.
type FareQuoter interface {
	Quote(ctx context.Context, req EstimateRequest) (fare.Estimate, error)
}

// EventPublisher publishes CloudEvents to a topic.
type EventPublisher interface {
	PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error
}

// CreateBookingRequest holds the data needed to book a priced ride.
type CreateBookingRequest struct {
	EstimateRequest
	ScheduledAt *time.Time `json:"scheduledAt"`
	Notes       string     `json:"notes"`
}

// CompleteRideRequest optionally overrides the charged fare.
type CompleteRideRequest struct {
	FinalFareCents *int64 `json:"final_fare_cents"`
}

// CancelBookingRequest holds the cancellation reason.
type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

// StopDTO is a pickup or dropoff in responses.
type StopDTO struct {
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID             uuid.UUID                  `json:"id"`
	BookingNumber  string                     `json:"booking_number"`
	PassengerID    string                     `json:"passenger_id"`
	DriverID       string                     `json:"driver_id"`
	VehicleID      string                     `json:"vehicle_id"`
	BookingType    string                     `json:"booking_type"`
	Status         string                     `json:"status"`
	Pickup         StopDTO                    `json:"pickup"`
	Dropoff        StopDTO                    `json:"dropoff"`
	Route          bookingDomain.RouteSummary `json:"route"`
	FareCents      int64                      `json:"fare_cents"`
	TotalFare      string                     `json:"total_fare"`
	FinalFareCents *int64                     `json:"final_fare_cents,omitempty"`
	Currency       string                     `json:"currency"`
	ScheduledAt    *time.Time                 `json:"scheduled_at,omitempty"`
	AcceptedAt     *time.Time                 `json:"accepted_at,omitempty"`
	StartedAt      *time.Time                 `json:"started_at,omitempty"`
	CompletedAt    *time.Time                 `json:"completed_at,omitempty"`
	CancelledAt    *time.Time                 `json:"cancelled_at,omitempty"`
	CancelledBy    string                     `json:"cancelled_by,omitempty"`
	CancelNote     string                     `json:"cancel_note,omitempty"`
	Notes          string                     `json:"notes,omitempty"`
	Version        int64                      `json:"version"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

// BookingService is the application service orchestrating ride booking use cases.
type BookingService struct {
	repo      bookingDomain.BookingRepository
	quoter    FareQuoter
	publisher EventPublisher
	currency  string
	logger    *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	quoter FareQuoter,
	publisher EventPublisher,
	currency string,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:      repo,
		quoter:    quoter,
		publisher: publisher,
		currency:  currency,
		logger:    logger,
	}
}

// CreateBooking re-prices the ride and records it for the passenger.
func (s *BookingService) CreateBooking(ctx context.Context, passengerID string, req CreateBookingRequest) (*BookingDTO, error) {
	est, err := s.quoter.Quote(ctx, req.EstimateRequest)
	if err != nil {
		return nil, err
	}

	bk, err := bookingDomain.NewBooking(
		passengerID,
		req.DriverID,
		est,
		stopFrom(req.Pickup),
		stopFrom(req.Dropoff),
		s.currency,
		req.ScheduledAt,
		req.Notes,
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, bk); err != nil {
		return nil, fmt.Errorf("failed to save booking: %w", err)
	}

	s.logger.Info("ride booked",
		zap.String("booking_number", bk.BookingNumber()),
		zap.String("booking_type", string(bk.BookingType())),
		zap.String("driver_id", bk.DriverID()),
		zap.Int64("fare_cents", bk.FareCents()),
	)
	s.publishBookingRequested(ctx, bk)

	result := toBookingDTO(bk)
	return &result, nil
}

// AcceptBooking lets the priced driver take the ride.
func (s *BookingService) AcceptBooking(ctx context.Context, bookingID uuid.UUID, driverID string) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := bk.Accept(driverID); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.publishStatusChanged(ctx, bk, events.BookingAccepted)

	result := toBookingDTO(bk)
	return &result, nil
}

// StartRide marks the passenger as picked up.
func (s *BookingService) StartRide(ctx context.Context, bookingID uuid.UUID, driverID string) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := bk.Start(driverID); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	s.publishStatusChanged(ctx, bk, events.BookingStarted)

	result := toBookingDTO(bk)
	return &result, nil
}

// CompleteRide finishes the ride. The estimated fare is charged unless req overrides it.
func (s *BookingService) CompleteRide(ctx context.Context, bookingID uuid.UUID, driverID string, req CompleteRideRequest) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	finalFare := bk.FareCents()
	if req.FinalFareCents != nil {
		finalFare = *req.FinalFareCents
	}

	if err := bk.Complete(driverID, finalFare); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	evt := events.BookingCompletedEvent{
		BookingID:      bk.ID(),
		BookingNumber:  bk.BookingNumber(),
		PassengerID:    bk.PassengerID(),
		DriverID:       bk.DriverID(),
		VehicleID:      bk.VehicleID(),
		FinalFareCents: finalFare,
		Currency:       bk.Currency(),
		OccurredAt:     time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicRideBookingEvents, events.BookingCompleted, bk.ID().String(), evt)

	result := toBookingDTO(bk)
	return &result, nil
}

// CancelBooking cancels a ride that has not started. Either participant may cancel.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID, userID, reason string) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := bk.Cancel(userID, reason); err != nil {
		return nil, err
	}

	bk.IncrementVersion()
	if err := s.repo.Update(ctx, bk); err != nil {
		return nil, err
	}

	evt := events.BookingCancelledEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		CancelledBy:   userID,
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicRideBookingEvents, events.BookingCancelled, bk.ID().String(), evt)

	result := toBookingDTO(bk)
	return &result, nil
}

// GetBooking retrieves a booking visible to userID.
func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID, userID string) (*BookingDTO, error) {
	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !bk.IsParticipant(userID) {
		return nil, domain.NewForbiddenError("booking does not belong to this user")
	}
	result := toBookingDTO(bk)
	return &result, nil
}

// GetMyBookings pages through the caller's rides, as driver when asDriver is set
// and as passenger otherwise.
func (s *BookingService) GetMyBookings(ctx context.Context, userID string, asDriver bool, page, limit int) (*domain.PaginatedResult[BookingDTO], error) {
	find := s.repo.FindByPassengerID
	if asDriver {
		find = s.repo.FindByDriverID
	}
	bookings, total, err := find(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}

	dtos := make([]BookingDTO, len(bookings))
	for i, bk := range bookings {
		dtos[i] = toBookingDTO(bk)
	}

	result := domain.NewPaginatedResult(dtos, total, page, limit)
	return &result, nil
}

// --- Helpers ---

func stopFrom(loc *LocationInput) bookingDomain.Stop {
	return bookingDomain.Stop{
		Address: loc.Address,
		Point:   geo.Point{Lat: *loc.Coordinates.Lat, Lng: *loc.Coordinates.Lng},
	}
}

func toStopDTO(s bookingDomain.Stop) StopDTO {
	return StopDTO{Address: s.Address, Lat: s.Point.Lat, Lng: s.Point.Lng}
}

func toBookingDTO(bk *bookingDomain.Booking) BookingDTO {
	return BookingDTO{
		ID:             bk.ID(),
		BookingNumber:  bk.BookingNumber(),
		PassengerID:    bk.PassengerID(),
		DriverID:       bk.DriverID(),
		VehicleID:      bk.VehicleID(),
		BookingType:    string(bk.BookingType()),
		Status:         string(bk.Status()),
		Pickup:         toStopDTO(bk.Pickup()),
		Dropoff:        toStopDTO(bk.Dropoff()),
		Route:          bk.Route(),
		FareCents:      bk.FareCents(),
		TotalFare:      fare.FormatAmount(bk.FareCents()),
		FinalFareCents: bk.FinalFareCents(),
		Currency:       bk.Currency(),
		ScheduledAt:    bk.ScheduledAt(),
		AcceptedAt:     bk.AcceptedAt(),
		StartedAt:      bk.StartedAt(),
		CompletedAt:    bk.CompletedAt(),
		CancelledAt:    bk.CancelledAt(),
		CancelledBy:    bk.CancelledBy(),
		CancelNote:     bk.CancelNote(),
		Notes:          bk.Notes(),
		Version:        bk.Version(),
		CreatedAt:      bk.CreatedAt(),
		UpdatedAt:      bk.UpdatedAt(),
	}
}

func (s *BookingService) publishBookingRequested(ctx context.Context, bk *bookingDomain.Booking) {
	route := bk.Route()
	evt := events.BookingRequestedEvent{
		BookingID:       bk.ID(),
		BookingNumber:   bk.BookingNumber(),
		BookingType:     string(bk.BookingType()),
		PassengerID:     bk.PassengerID(),
		DriverID:        bk.DriverID(),
		VehicleID:       bk.VehicleID(),
		PickupLat:       bk.Pickup().Point.Lat,
		PickupLng:       bk.Pickup().Point.Lng,
		DropoffLat:      bk.Dropoff().Point.Lat,
		DropoffLng:      bk.Dropoff().Point.Lng,
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: route.DurationSeconds,
		FareCents:       bk.FareCents(),
		Currency:        bk.Currency(),
		Route:           route.Description,
		ScheduledAt:     bk.ScheduledAt(),
		OccurredAt:      time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicRideBookingEvents, events.BookingRequested, bk.ID().String(), evt)
}

func (s *BookingService) publishStatusChanged(ctx context.Context, bk *bookingDomain.Booking, eventType string) {
	evt := events.BookingStatusChangedEvent{
		BookingID:     bk.ID(),
		BookingNumber: bk.BookingNumber(),
		PassengerID:   bk.PassengerID(),
		DriverID:      bk.DriverID(),
		Status:        string(bk.Status()),
		OccurredAt:    time.Now().UTC(),
	}
	s.publishEvent(ctx, events.TopicRideBookingEvents, eventType, bk.ID().String(), evt)
}

// publishEvent is best effort: a booking is already persisted when its event fails to publish.
func (s *BookingService) publishEvent(ctx context.Context, topic, eventType, subject string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(events.SourceFareService, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}
	cloudEvent.Subject = subject

	if err := s.publisher.PublishEvent(ctx, topic, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
