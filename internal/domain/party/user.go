package party

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/domain/geo"
	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"github.com/google/uuid"
)

// Role is a capability granted to a user by the marketplace.
type Role string

const (
	RolePassenger Role = "passenger"
	RoleDriver    Role = "driver"
	RoleOwner     Role = "owner"
)

// IsValid returns true if the role is recognized.
func (r Role) IsValid() bool {
	switch r {
	case RolePassenger, RoleDriver, RoleOwner:
		return true
	}
	return false
}

// Kind is the capability set a user's roles add up to.
type Kind string

const (
	KindPassenger Kind = "passenger"
	KindDriver    Kind = "driver"
	KindOwner     Kind = "owner"
	// KindCombined is a user who both drives and owns vehicles.
	KindCombined Kind = "combined"
)

// VehicleType is how a driver holds the vehicle they operate.
type VehicleType string

const (
	VehicleOwn    VehicleType = "own"
	VehicleRented VehicleType = "rented"
)

// IsValid returns true if the vehicle type is recognized.
func (v VehicleType) IsValid() bool {
	return v == VehicleOwn || v == VehicleRented
}

// DriverProfile links a driver to the vehicle they operate.
type DriverProfile struct {
	VehicleID   string
	VehicleType VehicleType
}

// LiveLocation is the last position reported by an online driver.
type LiveLocation struct {
	Point     geo.Point
	UpdatedAt time.Time
}

// Address is a permanent home or garage address.
type Address struct {
	Line  string
	Point geo.Point
}

// User is a marketplace party. Optional parts are nil when the user has not provided them.
type User struct {
	id               string
	name             string
	email            string
	phone            string
	roles            []Role
	driver           *DriverProfile
	currentLocation  *LiveLocation
	permanentAddress *Address
	version          int64
	createdAt        time.Time
	updatedAt        time.Time
}

// NewUser creates a user with the given roles.
func NewUser(name, email, phone string, roles []Role) (*User, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.NewValidationError("name is required")
	}
	if strings.TrimSpace(email) == "" {
		return nil, domain.NewValidationError("email is required")
	}
	normalized, err := normalizeRoles(roles)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &User{
		id:        uuid.New().String(),
		name:      name,
		email:     strings.ToLower(strings.TrimSpace(email)),
		phone:     phone,
		roles:     normalized,
		version:   1,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// ReconstructUser rebuilds a User from persistence data (no validation).
func ReconstructUser(
	id, name, email, phone string,
	roles []Role,
	driver *DriverProfile,
	currentLocation *LiveLocation,
	permanentAddress *Address,
	version int64,
	createdAt, updatedAt time.Time,
) *User {
	return &User{
		id:               id,
		name:             name,
		email:            email,
		phone:            phone,
		roles:            roles,
		driver:           driver,
		currentLocation:  currentLocation,
		permanentAddress: permanentAddress,
		version:          version,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

func normalizeRoles(roles []Role) ([]Role, error) {
	if len(roles) == 0 {
		return []Role{RolePassenger}, nil
	}
	seen := make(map[Role]bool, len(roles))
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if !r.IsValid() {
			return nil, domain.NewValidationError(fmt.Sprintf("invalid role: %s", r))
		}
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out, nil
}

func (u *User) ID() string { return u.id }
func (u *User) Name() string { return u.name }
func (u *User) Email() string { return u.email }
func (u *User) Phone() string { return u.phone }
func (u *User) Roles() []Role { return u.roles }
func (u *User) CurrentLocation() *LiveLocation { return u.currentLocation }
func (u *User) PermanentAddress() *Address { return u.permanentAddress }
func (u *User) Version() int64 { return u.version }
func (u *User) CreatedAt() time.Time { return u.createdAt }
func (u *User) UpdatedAt() time.Time { return u.updatedAt }
func (u *User) DriverProfile() *DriverProfile { return u.driver }

// HasRole reports whether the user holds r.
func (u *User) HasRole(r Role) bool {
	for _, have := range u.roles {
		if have == r {
			return true
		}
	}
	return false
}

// Kind derives the user's capability set from its roles.
func (u *User) Kind() Kind {
	drives, owns := u.HasRole(RoleDriver), u.HasRole(RoleOwner)
	switch {
	case drives && owns:
		return KindCombined
	case drives:
		return KindDriver
	case owns:
		return KindOwner
	default:
		return KindPassenger
	}
}

// AsDriver returns the driver profile when the user can drive and has a vehicle attached.
func (u *User) AsDriver() (DriverProfile, bool) {
	switch u.Kind() {
	case KindDriver, KindCombined:
		if u.driver == nil || u.driver.VehicleID == "" {
			return DriverProfile{}, false
		}
		return *u.driver, true
	default:
		return DriverProfile{}, false
	}
}

// AttachVehicle records the vehicle a driver operates.
func (u *User) AttachVehicle(vehicleID string, vehicleType VehicleType) error {
	if !u.HasRole(RoleDriver) {
		return domain.NewValidationError("only drivers can attach a vehicle")
	}
	if vehicleID == "" {
		return domain.NewValidationError("vehicle ID is required")
	}
	if !vehicleType.IsValid() {
		return domain.NewValidationError(fmt.Sprintf("invalid vehicle type: %s", vehicleType))
	}
	u.driver = &DriverProfile{VehicleID: vehicleID, VehicleType: vehicleType}
	u.touch()
	return nil
}

// SetPermanentAddress replaces the user's home or garage address.
func (u *User) SetPermanentAddress(line string, point geo.Point) error {
	if err := point.Validate(); err != nil {
		return err
	}
	u.permanentAddress = &Address{Line: line, Point: point}
	u.touch()
	return nil
}

// GoOnline records a driver's live location.
func (u *User) GoOnline(point geo.Point, at time.Time) error {
	if !u.HasRole(RoleDriver) {
		return domain.NewValidationError("only drivers can share a live location")
	}
	if err := point.Validate(); err != nil {
		return err
	}
	u.currentLocation = &LiveLocation{Point: point, UpdatedAt: at.UTC()}
	u.touch()
	return nil
}

// GoOffline drops the live location.
func (u *User) GoOffline() {
	u.currentLocation = nil
	u.touch()
}

// IncrementVersion bumps the version for optimistic locking.
func (u *User) IncrementVersion() {
	u.version++
	u.updatedAt = time.Now().UTC()
}

func (u *User) touch() {
	u.updatedAt = time.Now().UTC()
}
