package booking

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/domain/fare"
	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"github.com/google/uuid"
)

const bookingNumberChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Booking is the aggregate root for a confirmed ride.
type Booking struct {
	id            uuid.UUID
	bookingNumber string
	passengerID   string
	driverID      string
	vehicleID     string
	bookingType   fare.BookingType
	status        BookingStatus
	pickup        Stop
	dropoff       Stop
	route         RouteSummary

	fareCents      int64
	finalFareCents *int64
	currency       string

	scheduledAt *time.Time
	acceptedAt  *time.Time
	startedAt   *time.Time
	completedAt *time.Time
	cancelledAt *time.Time
	cancelledBy string
	cancelNote  string
	notes       string

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// generateBookingNumber creates a booking number in the format "RB-XXXXXX".
func generateBookingNumber() (string, error) {
	result := make([]byte, 6)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(bookingNumberChars))))
		if err != nil {
			return "", fmt.Errorf("failed to generate booking number: %w", err)
		}
		result[i] = bookingNumberChars[n.Int64()]
	}
	return "RB-" + string(result), nil
}

// NewBooking creates a requested booking priced by est.
// Advance bookings must be scheduled in the future; instant bookings ignore scheduledAt.
func NewBooking(
	passengerID string,
	driverID string,
	est fare.Estimate,
	pickup Stop,
	dropoff Stop,
	currency string,
	scheduledAt *time.Time,
	notes string,
) (*Booking, error) {
	if passengerID == "" {
		return nil, domain.NewValidationError("passenger ID is required")
	}
	if driverID == "" {
		return nil, domain.NewValidationError("driver ID is required")
	}
	if passengerID == driverID {
		return nil, domain.NewValidationError("a driver cannot book their own ride")
	}
	if est.VehicleID == "" {
		return nil, domain.NewValidationError("estimate has no vehicle")
	}
	if err := pickup.Point.Validate(); err != nil {
		return nil, err
	}
	if err := dropoff.Point.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	switch est.BookingType {
	case fare.BookingInstant:
		scheduledAt = nil
	case fare.BookingAdvance:
		if scheduledAt == nil {
			return nil, domain.NewValidationError("scheduledAt is required for advance bookings")
		}
		if !scheduledAt.After(now) {
			return nil, domain.NewValidationError("scheduledAt must be in the future")
		}
		at := scheduledAt.UTC()
		scheduledAt = &at
	default:
		return nil, domain.NewValidationError(fmt.Sprintf("invalid bookingType: %q", est.BookingType))
	}

	bookingNumber, err := generateBookingNumber()
	if err != nil {
		return nil, err
	}

	return &Booking{
		id:            uuid.New(),
		bookingNumber: bookingNumber,
		passengerID:   passengerID,
		driverID:      driverID,
		vehicleID:     est.VehicleID,
		bookingType:   est.BookingType,
		status:        StatusRequested,
		pickup:        pickup,
		dropoff:       dropoff,
		route:         RouteSummaryFromEstimate(est),
		fareCents:     est.FareCents,
		currency:      currency,
		scheduledAt:   scheduledAt,
		notes:         notes,
		version:       1,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	bookingNumber string,
	passengerID string,
	driverID string,
	vehicleID string,
	bookingType fare.BookingType,
	status BookingStatus,
	pickup Stop,
	dropoff Stop,
	route RouteSummary,
	fareCents int64,
	finalFareCents *int64,
	currency string,
	scheduledAt *time.Time,
	acceptedAt *time.Time,
	startedAt *time.Time,
	completedAt *time.Time,
	cancelledAt *time.Time,
	cancelledBy string,
	cancelNote string,
	notes string,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:             id,
		bookingNumber:  bookingNumber,
		passengerID:    passengerID,
		driverID:       driverID,
		vehicleID:      vehicleID,
		bookingType:    bookingType,
		status:         status,
		pickup:         pickup,
		dropoff:        dropoff,
		route:          route,
		fareCents:      fareCents,
		finalFareCents: finalFareCents,
		currency:       currency,
		scheduledAt:    scheduledAt,
		acceptedAt:     acceptedAt,
		startedAt:      startedAt,
		completedAt:    completedAt,
		cancelledAt:    cancelledAt,
		cancelledBy:    cancelledBy,
		cancelNote:     cancelNote,
		notes:          notes,
		version:        version,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// BookingNumber returns the human-readable booking number.
func (b *Booking) BookingNumber() string { return b.bookingNumber }

// PassengerID returns the passenger who requested the ride.
func (b *Booking) PassengerID() string { return b.passengerID }

// DriverID returns the driver the ride was priced for.
func (b *Booking) DriverID() string { return b.driverID }

// VehicleID returns the vehicle the fare was computed with.
func (b *Booking) VehicleID() string { return b.vehicleID }

// BookingType returns instant or advance.
func (b *Booking) BookingType() fare.BookingType { return b.bookingType }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// Pickup returns the passenger pickup.
func (b *Booking) Pickup() Stop { return b.pickup }

// Dropoff returns the passenger dropoff.
func (b *Booking) Dropoff() Stop { return b.dropoff }

// Route returns the route the fare was computed on.
func (b *Booking) Route() RouteSummary { return b.route }

// FareCents returns the quoted fare in cents.
func (b *Booking) FareCents() int64 { return b.fareCents }

// FinalFareCents returns the charged fare in cents, or nil until completion.
func (b *Booking) FinalFareCents() *int64 { return b.finalFareCents }

// Currency returns the currency code.
func (b *Booking) Currency() string { return b.currency }

// ScheduledAt returns the scheduled pickup time of an advance booking.
func (b *Booking) ScheduledAt() *time.Time { return b.scheduledAt }

// AcceptedAt returns the time the driver accepted.
func (b *Booking) AcceptedAt() *time.Time { return b.acceptedAt }

// StartedAt returns the time the passenger was picked up.
func (b *Booking) StartedAt() *time.Time { return b.startedAt }

// CompletedAt returns the time the ride finished.
func (b *Booking) CompletedAt() *time.Time { return b.completedAt }

// CancelledAt returns the time the booking was cancelled.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// CancelledBy returns the user who cancelled.
func (b *Booking) CancelledBy() string { return b.cancelledBy }

// CancelNote returns the cancellation reason.
func (b *Booking) CancelNote() string { return b.cancelNote }

// Notes returns any additional notes for the booking.
func (b *Booking) Notes() string { return b.notes }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// IsParticipant reports whether userID is the passenger or the driver.
func (b *Booking) IsParticipant(userID string) bool {
	return userID == b.passengerID || userID == b.driverID
}

// --- Behavior ---

// Accept transitions the booking from requested to accepted. Only the priced driver may accept.
func (b *Booking) Accept(driverID string) error {
	if !b.status.CanTransitionTo(StatusAccepted) {
		return domain.NewInvalidStateError(string(b.status), string(StatusAccepted))
	}
	if driverID != b.driverID {
		return domain.NewForbiddenError("booking is assigned to another driver")
	}
	now := time.Now().UTC()
	b.status = StatusAccepted
	b.acceptedAt = &now
	b.updatedAt = now
	return nil
}

// Start transitions the booking from accepted to in_progress when the passenger is picked up.
func (b *Booking) Start(driverID string) error {
	if !b.status.CanTransitionTo(StatusInProgress) {
		return domain.NewInvalidStateError(string(b.status), string(StatusInProgress))
	}
	if driverID != b.driverID {
		return domain.NewForbiddenError("booking is assigned to another driver")
	}
	now := time.Now().UTC()
	b.status = StatusInProgress
	b.startedAt = &now
	b.updatedAt = now
	return nil
}

// Complete transitions the booking from in_progress to completed and fixes the charged fare.
func (b *Booking) Complete(driverID string, finalFareCents int64) error {
	if !b.status.CanTransitionTo(StatusCompleted) {
		return domain.NewInvalidStateError(string(b.status), string(StatusCompleted))
	}
	if driverID != b.driverID {
		return domain.NewForbiddenError("booking is assigned to another driver")
	}
	if finalFareCents < 0 {
		return domain.NewValidationError("final fare cannot be negative")
	}
	now := time.Now().UTC()
	b.status = StatusCompleted
	b.finalFareCents = &finalFareCents
	b.completedAt = &now
	b.updatedAt = now
	return nil
}

// Cancel transitions the booking to cancelled before the ride starts.
func (b *Booking) Cancel(userID, reason string) error {
	if !b.status.CanBeCancelled() {
		return domain.NewInvalidStateError(string(b.status), string(StatusCancelled))
	}
	if !b.IsParticipant(userID) {
		return domain.NewForbiddenError("booking does not belong to this user")
	}
	now := time.Now().UTC()
	b.status = StatusCancelled
	b.cancelledBy = userID
	b.cancelNote = reason
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
	b.updatedAt = time.Now().UTC()
}
