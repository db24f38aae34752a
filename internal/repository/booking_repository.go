package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bookingDomain "github.com/Kilat-Ride/service-fare/internal/domain/booking"
	"github.com/Kilat-Ride/service-fare/internal/domain/fare"
	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	BookingNumber  string          `gorm:"uniqueIndex;not null;size:20"`
	PassengerID    string          `gorm:"index;not null;size:64"`
	DriverID       string          `gorm:"index;not null;size:64"`
	VehicleID      string          `gorm:"not null;size:64"`
	BookingType    string          `gorm:"not null;size:20"`
	Status         string          `gorm:"not null;size:30;index"`
	Pickup         json.RawMessage `gorm:"type:jsonb;not null"`
	Dropoff        json.RawMessage `gorm:"type:jsonb;not null"`
	Route          json.RawMessage `gorm:"type:jsonb;not null"`
	FareCents      int64           `gorm:"not null"`
	FinalFareCents *int64          `gorm:""`
	Currency       string          `gorm:"not null;size:3;default:'MYR'"`
	ScheduledAt    *time.Time      `gorm:""`
	AcceptedAt     *time.Time      `gorm:""`
	StartedAt      *time.Time      `gorm:""`
	CompletedAt    *time.Time      `gorm:""`
	CancelledAt    *time.Time      `gorm:""`
	CancelledBy    string          `gorm:"size:64"`
	CancelNote     string          `gorm:"size:500"`
	Notes          string          `gorm:"size:1000"`
	Version        int64           `gorm:"not null;default:1"`
	CreatedAt      time.Time       `gorm:"not null"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByNumber retrieves a booking by its booking number.
func (r *GormBookingRepository) FindByNumber(ctx context.Context, number string) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := r.db.WithContext(ctx).Where("booking_number = ?", number).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", number)
		}
		return nil, fmt.Errorf("failed to find booking by number: %w", err)
	}
	return toDomainBooking(&model)
}

// FindByPassengerID retrieves the rides a passenger booked, newest first.
func (r *GormBookingRepository) FindByPassengerID(ctx context.Context, passengerID string, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPage(ctx, "passenger_id = ?", passengerID, page, limit)
}

// FindByDriverID retrieves the rides assigned to a driver, newest first.
func (r *GormBookingRepository) FindByDriverID(ctx context.Context, driverID string, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return r.findPage(ctx, "driver_id = ?", driverID, page, limit)
}

func (r *GormBookingRepository) findPage(ctx context.Context, where string, arg interface{}, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&BookingModel{}).Where(where, arg).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	var models []BookingModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).
		Where(where, arg).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find bookings: %w", err)
	}

	bookings := make([]*bookingDomain.Booking, len(models))
	for i := range models {
		bk, err := toDomainBooking(&models[i])
		if err != nil {
			return nil, 0, err
		}
		bookings[i] = bk
	}

	return bookings, total, nil
}

// Save persists a new booking.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
// The caller has already called IncrementVersion, so the stored row must be one version behind.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) error {
	model, err := toBookingModel(bk)
	if err != nil {
		return fmt.Errorf("failed to convert booking to model: %w", err)
	}

	expectedVersion := bk.Version() - 1
	result := r.db.WithContext(ctx).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":           model.Status,
			"final_fare_cents": model.FinalFareCents,
			"accepted_at":      model.AcceptedAt,
			"started_at":       model.StartedAt,
			"completed_at":     model.CompletedAt,
			"cancelled_at":     model.CancelledAt,
			"cancelled_by":     model.CancelledBy,
			"cancel_note":      model.CancelNote,
			"notes":            model.Notes,
			"version":          model.Version,
			"updated_at":       model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("booking was modified by another transaction")
	}

	return nil
}

// --- Conversion Helpers ---

func toBookingModel(bk *bookingDomain.Booking) (*BookingModel, error) {
	pickupJSON, err := json.Marshal(bk.Pickup())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal pickup: %w", err)
	}

	dropoffJSON, err := json.Marshal(bk.Dropoff())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dropoff: %w", err)
	}

	routeJSON, err := json.Marshal(bk.Route())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal route: %w", err)
	}

	return &BookingModel{
		ID:             bk.ID(),
		BookingNumber:  bk.BookingNumber(),
		PassengerID:    bk.PassengerID(),
		DriverID:       bk.DriverID(),
		VehicleID:      bk.VehicleID(),
		BookingType:    string(bk.BookingType()),
		Status:         string(bk.Status()),
		Pickup:         pickupJSON,
		Dropoff:        dropoffJSON,
		Route:          routeJSON,
		FareCents:      bk.FareCents(),
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
	}, nil
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	var pickup bookingDomain.Stop
	if err := json.Unmarshal(m.Pickup, &pickup); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pickup: %w", err)
	}

	var dropoff bookingDomain.Stop
	if err := json.Unmarshal(m.Dropoff, &dropoff); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dropoff: %w", err)
	}

	var route bookingDomain.RouteSummary
	if err := json.Unmarshal(m.Route, &route); err != nil {
		return nil, fmt.Errorf("failed to unmarshal route: %w", err)
	}

	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}

	bookingType, err := fare.ParseBookingType(m.BookingType)
	if err != nil {
		return nil, err
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.BookingNumber,
		m.PassengerID,
		m.DriverID,
		m.VehicleID,
		bookingType,
		status,
		pickup,
		dropoff,
		route,
		m.FareCents,
		m.FinalFareCents,
		m.Currency,
		m.ScheduledAt,
		m.AcceptedAt,
		m.StartedAt,
		m.CompletedAt,
		m.CancelledAt,
		m.CancelledBy,
		m.CancelNote,
		m.Notes,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}
