package booking

import (
	"context"

	"github.com/google/uuid"
)

// BookingRepository defines the persistence contract for ride booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByNumber retrieves a booking by its human-readable booking number.
	FindByNumber(ctx context.Context, number string) (*Booking, error)

	// FindByPassengerID retrieves bookings made by a passenger with pagination.
	FindByPassengerID(ctx context.Context, passengerID string, page, limit int) ([]*Booking, int64, error)

	// FindByDriverID retrieves bookings assigned to a driver with pagination.
	FindByDriverID(ctx context.Context, driverID string, page, limit int) ([]*Booking, int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}
