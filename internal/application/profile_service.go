package application

import (
	"context"
	"fmt"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/domain/geo"
	"github.com/Kilat-Ride/service-fare/internal/domain/party"
	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"go.uber.org/zap"
)

// CreateProfileRequest is the request DTO for registering a marketplace user.
type CreateProfileRequest struct {
	Name  string   `json:"name" binding:"required"`
	Email string   `json:"email" binding:"required,email"`
	Phone string   `json:"phone"`
	Roles []string `json:"roles"`
}

// RegisterVehicleRequest is the request DTO for an owner adding a vehicle.
type RegisterVehicleRequest struct {
	Registration string   `json:"registration" binding:"required"`
	Model        string   `json:"model"`
	PerKmRate    *float64 `json:"per_km_rate" binding:"required"`
}

// AttachVehicleRequest is the request DTO for a driver choosing the vehicle they operate.
type AttachVehicleRequest struct {
	VehicleID   string `json:"vehicle_id" binding:"required"`
	VehicleType string `json:"vehicle_type" binding:"required"`
}

// DriverDTO is the driver part of a profile.
type DriverDTO struct {
	VehicleID   string `json:"vehicle_id"`
	VehicleType string `json:"vehicle_type"`
}

// LiveLocationDTO is a driver's last reported position.
type LiveLocationDTO struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddressDTO is a permanent address.
type AddressDTO struct {
	Line string  `json:"line,omitempty"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// ProfileDTO is the API response representation of a user.
type ProfileDTO struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone,omitempty"`
	Roles            []string         `json:"roles"`
	Kind             string           `json:"kind"`
	Driver           *DriverDTO       `json:"driver,omitempty"`
	CurrentLocation  *LiveLocationDTO `json:"current_location,omitempty"`
	PermanentAddress *AddressDTO      `json:"permanent_address,omitempty"`
	Version          int64            `json:"version"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// VehicleDTO is the API response representation of a vehicle.
type VehicleDTO struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Registration string    `json:"registration"`
	Model        string    `json:"model,omitempty"`
	PerKmRate    float64   `json:"per_km_rate"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProfileService implements use cases for users, their addresses, locations and vehicles.
type ProfileService struct {
	users    party.UserRepository
	vehicles party.VehicleRepository
	logger   *zap.Logger
}

// NewProfileService creates a new ProfileService.
func NewProfileService(users party.UserRepository, vehicles party.VehicleRepository, logger *zap.Logger) *ProfileService {
	return &ProfileService{users: users, vehicles: vehicles, logger: logger}
}

// CreateProfile registers a new user.
func (s *ProfileService) CreateProfile(ctx context.Context, req CreateProfileRequest) (*ProfileDTO, error) {
	roles := make([]party.Role, len(req.Roles))
	for i, r := range req.Roles {
		roles[i] = party.Role(r)
	}

	user, err := party.NewUser(req.Name, req.Email, req.Phone, roles)
	if err != nil {
		return nil, err
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.Info("profile created",
		zap.String("user_id", user.ID()),
		zap.String("kind", string(user.Kind())),
	)
	result := toProfileDTO(user)
	return &result, nil
}

// GetProfile returns a single user.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*ProfileDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := toProfileDTO(user)
	return &result, nil
}

// SetPermanentAddress replaces the caller's home or garage address.
func (s *ProfileService) SetPermanentAddress(ctx context.Context, callerID, userID string, req LocationInput) (*ProfileDTO, error) {
	user, err := s.loadOwnProfile(ctx, callerID, userID)
	if err != nil {
		return nil, err
	}
	point, err := locationPoint("address", &req)
	if err != nil {
		return nil, err
	}

	if err := user.SetPermanentAddress(req.Address, point); err != nil {
		return nil, err
	}

	user.IncrementVersion()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("permanent address updated", zap.String("user_id", userID))
	result := toProfileDTO(user)
	return &result, nil
}

// UpdateLiveLocation puts the caller online at the reported position.
func (s *ProfileService) UpdateLiveLocation(ctx context.Context, callerID, userID string, req LocationInput) (*ProfileDTO, error) {
	user, err := s.loadOwnProfile(ctx, callerID, userID)
	if err != nil {
		return nil, err
	}
	point, err := locationPoint("location", &req)
	if err != nil {
		return nil, err
	}

	if err := user.GoOnline(point, time.Now()); err != nil {
		return nil, err
	}
	if _, err := s.users.UpdateCurrentLocation(ctx, userID, *user.CurrentLocation()); err != nil {
		return nil, err
	}

	result := toProfileDTO(user)
	return &result, nil
}

// GoOffline drops the caller's live location.
func (s *ProfileService) GoOffline(ctx context.Context, callerID, userID string) error {
	if _, err := s.loadOwnProfile(ctx, callerID, userID); err != nil {
		return err
	}
	_, err := s.users.ClearCurrentLocation(ctx, userID, time.Now())
	return err
}

// ApplyLocationUpdate records a position reported through the event stream.
// The store keeps a stored location that is newer than at.
func (s *ProfileService) ApplyLocationUpdate(ctx context.Context, driverID string, point geo.Point, at time.Time) error {
	user, err := s.users.FindByID(ctx, driverID)
	if err != nil {
		return err
	}
	if err := user.GoOnline(point, at); err != nil {
		return err
	}

	applied, err := s.users.UpdateCurrentLocation(ctx, driverID, *user.CurrentLocation())
	if err != nil {
		return err
	}
	if !applied {
		s.logger.Debug("stale location update skipped",
			zap.String("driver_id", driverID),
			zap.Time("reported_at", at),
		)
	}
	return nil
}

// MarkOffline clears a driver's live location unless a newer position was stored after at.
func (s *ProfileService) MarkOffline(ctx context.Context, driverID string, at time.Time) error {
	applied, err := s.users.ClearCurrentLocation(ctx, driverID, at)
	if err != nil {
		return err
	}
	if !applied {
		s.logger.Debug("stale offline event skipped",
			zap.String("driver_id", driverID),
			zap.Time("reported_at", at),
		)
	}
	return nil
}

// RegisterVehicle adds a vehicle owned by the caller.
func (s *ProfileService) RegisterVehicle(ctx context.Context, ownerID string, req RegisterVehicleRequest) (*VehicleDTO, error) {
	owner, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !owner.HasRole(party.RoleOwner) {
		return nil, domain.NewForbiddenError("only owners can register vehicles")
	}
	if req.PerKmRate == nil {
		return nil, domain.NewValidationError("per_km_rate is required")
	}

	vehicle, err := party.NewVehicle(ownerID, req.Registration, req.Model, *req.PerKmRate)
	if err != nil {
		return nil, err
	}
	if err := s.vehicles.Save(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("failed to register vehicle: %w", err)
	}

	s.logger.Info("vehicle registered",
		zap.String("vehicle_id", vehicle.ID()),
		zap.String("owner_id", ownerID),
	)
	result := toVehicleDTO(vehicle)
	return &result, nil
}

// GetMyVehicles lists the vehicles owned by ownerID.
func (s *ProfileService) GetMyVehicles(ctx context.Context, ownerID string) ([]VehicleDTO, error) {
	vehicles, err := s.vehicles.FindByOwnerID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicles: %w", err)
	}
	dtos := make([]VehicleDTO, len(vehicles))
	for i, v := range vehicles {
		dtos[i] = toVehicleDTO(v)
	}
	return dtos, nil
}

// AttachVehicle sets the vehicle the caller drives. An own vehicle must belong to the
// driver; a rented one must belong to someone else.
func (s *ProfileService) AttachVehicle(ctx context.Context, callerID, userID string, req AttachVehicleRequest) (*ProfileDTO, error) {
	user, err := s.loadOwnProfile(ctx, callerID, userID)
	if err != nil {
		return nil, err
	}
	vehicleType := party.VehicleType(req.VehicleType)
	if !vehicleType.IsValid() {
		return nil, domain.NewValidationError(fmt.Sprintf("invalid vehicle type: %s", req.VehicleType))
	}

	vehicle, err := s.vehicles.FindByID(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	switch {
	case vehicleType == party.VehicleOwn && !vehicle.IsOwnedBy(userID):
		return nil, domain.NewForbiddenError("vehicle is not owned by this driver")
	case vehicleType == party.VehicleRented && vehicle.IsOwnedBy(userID):
		return nil, domain.NewValidationError("a driver's own vehicle cannot be rented")
	}

	if err := user.AttachVehicle(vehicle.ID(), vehicleType); err != nil {
		return nil, err
	}

	user.IncrementVersion()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("vehicle attached",
		zap.String("driver_id", userID),
		zap.String("vehicle_id", vehicle.ID()),
		zap.String("vehicle_type", string(vehicleType)),
	)
	result := toProfileDTO(user)
	return &result, nil
}

func (s *ProfileService) loadOwnProfile(ctx context.Context, callerID, userID string) (*party.User, error) {
	if callerID != userID {
		return nil, domain.NewForbiddenError("cannot modify another user's profile")
	}
	return s.users.FindByID(ctx, userID)
}

func toProfileDTO(u *party.User) ProfileDTO {
	roles := make([]string, len(u.Roles()))
	for i, r := range u.Roles() {
		roles[i] = string(r)
	}
	dto := ProfileDTO{
		ID:        u.ID(),
		Name:      u.Name(),
		Email:     u.Email(),
		Phone:     u.Phone(),
		Roles:     roles,
		Kind:      string(u.Kind()),
		Version:   u.Version(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
	if d := u.DriverProfile(); d != nil {
		dto.Driver = &DriverDTO{VehicleID: d.VehicleID, VehicleType: string(d.VehicleType)}
	}
	if loc := u.CurrentLocation(); loc != nil {
		dto.CurrentLocation = &LiveLocationDTO{Lat: loc.Point.Lat, Lng: loc.Point.Lng, UpdatedAt: loc.UpdatedAt}
	}
	if addr := u.PermanentAddress(); addr != nil {
		dto.PermanentAddress = &AddressDTO{Line: addr.Line, Lat: addr.Point.Lat, Lng: addr.Point.Lng}
	}
	return dto
}

func toVehicleDTO(v *party.Vehicle) VehicleDTO {
	return VehicleDTO{
		ID:           v.ID(),
		OwnerID:      v.OwnerID(),
		Registration: v.Registration(),
		Model:        v.Model(),
		PerKmRate:    v.PerKmRate(),
		CreatedAt:    v.CreatedAt(),
	}
}
