package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/domain/geo"
	"github.com/Kilat-Ride/service-fare/internal/domain/party"
	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"gorm.io/gorm"
)

// UserModel is the GORM model for the users table.
type UserModel struct {
	ID                string     `gorm:"type:varchar(64);primaryKey"`
	Name              string     `gorm:"type:varchar(100);not null"`
	Email             string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	Phone             string     `gorm:"type:varchar(30)"`
	Roles             string     `gorm:"type:varchar(100);not null"`
	DriverVehicleID   *string    `gorm:"type:varchar(64)"`
	DriverVehicleType *string    `gorm:"type:varchar(10)"`
	CurrentLat        *float64   `gorm:"type:double precision"`
	CurrentLng        *float64   `gorm:"type:double precision"`
	LocationUpdatedAt *time.Time `gorm:"type:timestamptz"`
	AddressLine       *string    `gorm:"type:text"`
	AddressLat        *float64   `gorm:"type:double precision"`
	AddressLng        *float64   `gorm:"type:double precision"`
	Version           int64      `gorm:"not null;default:1"`
	CreatedAt         time.Time  `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt         time.Time  `gorm:"type:timestamptz;not null;default:now()"`
}

func (UserModel) TableName() string { return "users" }

// VehicleModel is the GORM model for the vehicles table.
type VehicleModel struct {
	ID           string    `gorm:"type:varchar(64);primaryKey"`
	OwnerID      string    `gorm:"type:varchar(64);not null;index"`
	Registration string    `gorm:"type:varchar(20);not null;uniqueIndex"`
	Model        string    `gorm:"type:varchar(100)"`
	PerKmRate    float64   `gorm:"type:numeric(10,4);not null"`
	CreatedAt    time.Time `gorm:"type:timestamptz;not null;default:now()"`
	UpdatedAt    time.Time `gorm:"type:timestamptz;not null;default:now()"`
}

func (VehicleModel) TableName() string { return "vehicles" }

// GormUserRepository implements party.UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByID(ctx context.Context, id string) (*party.User, error) {
	var model UserModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("User", id)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return toUserDomain(&model), nil
}

func (r *GormUserRepository) Save(ctx context.Context, user *party.User) error {
	if err := r.db.WithContext(ctx).Create(toUserModel(user)).Error; err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *GormUserRepository) Update(ctx context.Context, user *party.User) error {
	model := toUserModel(user)
	previousVersion := user.Version() - 1

	// Select("*") so cleared optional columns are written as NULL.
	result := r.db.WithContext(ctx).
		Model(&UserModel{}).
		Where("id = ? AND version = ?", model.ID, previousVersion).
		Select("*").Omit("id", "created_at", "current_lat", "current_lng", "location_updated_at").
		Updates(model)

	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("user was modified by another transaction")
	}
	return nil
}

func (r *GormUserRepository) UpdateCurrentLocation(ctx context.Context, id string, loc party.LiveLocation) (bool, error) {
	return r.setLocation(ctx, id, loc.UpdatedAt, map[string]interface{}{
		"current_lat":         loc.Point.Lat,
		"current_lng":         loc.Point.Lng,
		"location_updated_at": loc.UpdatedAt,
	})
}

func (r *GormUserRepository) ClearCurrentLocation(ctx context.Context, id string, at time.Time) (bool, error) {
	return r.setLocation(ctx, id, at, map[string]interface{}{
		"current_lat":         nil,
		"current_lng":         nil,
		"location_updated_at": nil,
	})
}

// setLocation writes cols only while the stored location is not newer than at.
func (r *GormUserRepository) setLocation(ctx context.Context, id string, at time.Time, cols map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ? AND (location_updated_at IS NULL OR location_updated_at <= ?)", id, at).
		Updates(cols)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update location: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	if count == 0 {
		return false, domain.NewNotFoundError("User", id)
	}
	return false, nil
}

// GormVehicleRepository implements party.VehicleRepository using GORM.
type GormVehicleRepository struct {
	db *gorm.DB
}

func NewGormVehicleRepository(db *gorm.DB) *GormVehicleRepository {
	return &GormVehicleRepository{db: db}
}

func (r *GormVehicleRepository) FindByID(ctx context.Context, id string) (*party.Vehicle, error) {
	var model VehicleModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Vehicle", id)
		}
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}
	return toVehicleDomain(&model), nil
}

func (r *GormVehicleRepository) FindByOwnerID(ctx context.Context, ownerID string) ([]*party.Vehicle, error) {
	var models []VehicleModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to find vehicles: %w", err)
	}
	vehicles := make([]*party.Vehicle, len(models))
	for i := range models {
		vehicles[i] = toVehicleDomain(&models[i])
	}
	return vehicles, nil
}

func (r *GormVehicleRepository) Save(ctx context.Context, vehicle *party.Vehicle) error {
	if err := r.db.WithContext(ctx).Create(toVehicleModel(vehicle)).Error; err != nil {
		return fmt.Errorf("failed to save vehicle: %w", err)
	}
	return nil
}

// --- Conversions ---

func toUserModel(u *party.User) *UserModel {
	roles := make([]string, len(u.Roles()))
	for i, r := range u.Roles() {
		roles[i] = string(r)
	}
	m := &UserModel{
		ID:        u.ID(),
		Name:      u.Name(),
		Email:     u.Email(),
		Phone:     u.Phone(),
		Roles:     strings.Join(roles, ","),
		Version:   u.Version(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
	if d := u.DriverProfile(); d != nil {
		vehicleType := string(d.VehicleType)
		m.DriverVehicleID = &d.VehicleID
		m.DriverVehicleType = &vehicleType
	}
	if loc := u.CurrentLocation(); loc != nil {
		m.CurrentLat = &loc.Point.Lat
		m.CurrentLng = &loc.Point.Lng
		m.LocationUpdatedAt = &loc.UpdatedAt
	}
	if addr := u.PermanentAddress(); addr != nil {
		m.AddressLine = &addr.Line
		m.AddressLat = &addr.Point.Lat
		m.AddressLng = &addr.Point.Lng
	}
	return m
}

func toUserDomain(m *UserModel) *party.User {
	var roles []party.Role
	for _, r := range strings.Split(m.Roles, ",") {
		if r != "" {
			roles = append(roles, party.Role(r))
		}
	}

	var driver *party.DriverProfile
	if m.DriverVehicleID != nil && m.DriverVehicleType != nil {
		driver = &party.DriverProfile{VehicleID: *m.DriverVehicleID, VehicleType: party.VehicleType(*m.DriverVehicleType)}
	}

	var current *party.LiveLocation
	if m.CurrentLat != nil && m.CurrentLng != nil {
		current = &party.LiveLocation{Point: geo.Point{Lat: *m.CurrentLat, Lng: *m.CurrentLng}}
		if m.LocationUpdatedAt != nil {
			current.UpdatedAt = *m.LocationUpdatedAt
		}
	}

	var address *party.Address
	if m.AddressLat != nil && m.AddressLng != nil {
		address = &party.Address{Point: geo.Point{Lat: *m.AddressLat, Lng: *m.AddressLng}}
		if m.AddressLine != nil {
			address.Line = *m.AddressLine
		}
	}

	return party.ReconstructUser(
		m.ID, m.Name, m.Email, m.Phone,
		roles, driver, current, address,
		m.Version, m.CreatedAt, m.UpdatedAt,
	)
}

func toVehicleModel(v *party.Vehicle) *VehicleModel {
	return &VehicleModel{
		ID:           v.ID(),
		OwnerID:      v.OwnerID(),
		Registration: v.Registration(),
		Model:        v.Model(),
		PerKmRate:    v.PerKmRate(),
		CreatedAt:    v.CreatedAt(),
		UpdatedAt:    v.UpdatedAt(),
	}
}

func toVehicleDomain(m *VehicleModel) *party.Vehicle {
	return party.ReconstructVehicle(m.ID, m.OwnerID, m.Registration, m.Model, m.PerKmRate, m.CreatedAt, m.UpdatedAt)
}
