package party

import (
	"context"
	"time"
)

// UserRepository reads and writes marketplace users.
// Implementations return a NotFound AppError when no user matches.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*User, error)
	Save(ctx context.Context, user *User) error

	// Update persists changes with optimistic locking on version.
	Update(ctx context.Context, user *User) error

	// UpdateCurrentLocation and ClearCurrentLocation touch only the live location,
	// so high-frequency location traffic does not contend with profile edits.
	// Both are conditional: a stored location newer than the change is kept and
	// the returned bool is false.
	UpdateCurrentLocation(ctx context.Context, id string, loc LiveLocation) (bool, error)
	ClearCurrentLocation(ctx context.Context, id string, at time.Time) (bool, error)
}

// VehicleRepository reads and writes vehicles.
type VehicleRepository interface {
	FindByID(ctx context.Context, id string) (*Vehicle, error)
	FindByOwnerID(ctx context.Context, ownerID string) ([]*Vehicle, error)
	Save(ctx context.Context, vehicle *Vehicle) error
}
