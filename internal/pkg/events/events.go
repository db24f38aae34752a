package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics.
const (
	TopicRideBookingEvents    = "ride.booking.events"
	TopicDriverLocationEvents = "driver.location.events"
)

// CloudEvent source of everything this service publishes.
const SourceFareService = "service-fare"

// Ride booking event types.
const (
	BookingRequested = "booking.requested"
	BookingAccepted  = "booking.accepted"
	BookingStarted   = "booking.started"
	BookingCompleted = "booking.completed"
	BookingCancelled = "booking.cancelled"
)

// Driver location event types, produced by the driver app gateway.
const (
	DriverLocationUpdated = "driver.location.updated"
	DriverWentOffline     = "driver.went_offline"
)

// BookingRequestedEvent is published when a passenger confirms a priced ride.
type BookingRequestedEvent struct {
	BookingID       uuid.UUID  `json:"booking_id"`
	BookingNumber   string     `json:"booking_number"`
	BookingType     string     `json:"booking_type"`
	PassengerID     string     `json:"passenger_id"`
	DriverID        string     `json:"driver_id"`
	VehicleID       string     `json:"vehicle_id"`
	PickupLat       float64    `json:"pickup_lat"`
	PickupLng       float64    `json:"pickup_lng"`
	DropoffLat      float64    `json:"dropoff_lat"`
	DropoffLng      float64    `json:"dropoff_lng"`
	DistanceMeters  int64      `json:"distance_meters"`
	DurationSeconds int64      `json:"duration_seconds"`
	FareCents       int64      `json:"fare_cents"`
	Currency        string     `json:"currency"`
	Route           string     `json:"route"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
	OccurredAt      time.Time  `json:"occurred_at"`
}

// BookingStatusChangedEvent is published for accepted and started rides.
type BookingStatusChangedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	PassengerID   string    `json:"passenger_id"`
	DriverID      string    `json:"driver_id"`
	Status        string    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// BookingCompletedEvent carries the charged fare for billing.
type BookingCompletedEvent struct {
	BookingID      uuid.UUID `json:"booking_id"`
	BookingNumber  string    `json:"booking_number"`
	PassengerID    string    `json:"passenger_id"`
	DriverID       string    `json:"driver_id"`
	VehicleID      string    `json:"vehicle_id"`
	FinalFareCents int64     `json:"final_fare_cents"`
	Currency       string    `json:"currency"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// BookingCancelledEvent is published when either participant cancels.
type BookingCancelledEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	CancelledBy   string    `json:"cancelled_by"`
	Reason        string    `json:"reason"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// DriverLocationUpdatedEvent reports a driver's position while online.
type DriverLocationUpdatedEvent struct {
	DriverID   string    `json:"driver_id"`
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DriverWentOfflineEvent reports that a driver stopped sharing a location.
type DriverWentOfflineEvent struct {
	DriverID   string    `json:"driver_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
