package party

import (
	"math"
	"strings"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"github.com/google/uuid"
)

// Vehicle is a car registered by its owner and priced per kilometre.
type Vehicle struct {
	id           string
	ownerID      string
	registration string
	model        string
	perKmRate    float64
	createdAt    time.Time
	updatedAt    time.Time
}

// NewVehicle registers a vehicle for ownerID.
func NewVehicle(ownerID, registration, model string, perKmRate float64) (*Vehicle, error) {
	if ownerID == "" {
		return nil, domain.NewValidationError("owner ID is required")
	}
	if strings.TrimSpace(registration) == "" {
		return nil, domain.NewValidationError("registration is required")
	}
	if math.IsNaN(perKmRate) || math.IsInf(perKmRate, 0) || perKmRate < 0 {
		return nil, domain.NewValidationError("per-km rate must be a non-negative number")
	}

	now := time.Now().UTC()
	return &Vehicle{
		id:           uuid.New().String(),
		ownerID:      ownerID,
		registration: strings.ToUpper(strings.TrimSpace(registration)),
		model:        model,
		perKmRate:    perKmRate,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// ReconstructVehicle rebuilds a Vehicle from persistence data (no validation).
func ReconstructVehicle(id, ownerID, registration, model string, perKmRate float64, createdAt, updatedAt time.Time) *Vehicle {
	return &Vehicle{
		id:           id,
		ownerID:      ownerID,
		registration: registration,
		model:        model,
		perKmRate:    perKmRate,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (v *Vehicle) ID() string { return v.id }
func (v *Vehicle) OwnerID() string { return v.ownerID }
func (v *Vehicle) Registration() string { return v.registration }
func (v *Vehicle) Model() string { return v.model }
func (v *Vehicle) PerKmRate() float64 { return v.perKmRate }
func (v *Vehicle) CreatedAt() time.Time { return v.createdAt }
func (v *Vehicle) UpdatedAt() time.Time { return v.updatedAt }

// IsOwnedBy checks if the vehicle belongs to the given user.
func (v *Vehicle) IsOwnedBy(userID string) bool {
	return v.ownerID == userID
}
