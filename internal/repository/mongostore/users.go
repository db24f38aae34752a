// Package mongostore keeps the user and vehicle directory in MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/domain/geo"
	"github.com/Kilat-Ride/service-fare/internal/domain/party"
	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection    = "users"
	vehiclesCollection = "vehicles"
)

// geoPoint is a GeoJSON point. Coordinates are [lng, lat].
type geoPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

func toGeoPoint(p geo.Point) *geoPoint {
	return &geoPoint{Type: "Point", Coordinates: []float64{p.Lng, p.Lat}}
}

func (g *geoPoint) point() (geo.Point, bool) {
	if g == nil || len(g.Coordinates) != 2 {
		return geo.Point{}, false
	}
	return geo.Point{Lat: g.Coordinates[1], Lng: g.Coordinates[0]}, true
}

type latLng struct {
	Lat *float64 `bson:"lat"`
	Lng *float64 `bson:"lng"`
}

// roleFlags is how the marketplace stores roles.
type roleFlags struct {
	Passenger bool `bson:"passenger"`
	Driver    bool `bson:"driver"`
	Owner     bool `bson:"owner"`
}

// rolesDoc is written as roleFlags. Flag documents keyed with an "is" prefix
// and plain string arrays are also read.
type rolesDoc []party.Role

func (r rolesDoc) MarshalBSONValue() (bsontype.Type, []byte, error) {
	var f roleFlags
	for _, role := range r {
		switch role {
		case party.RolePassenger:
			f.Passenger = true
		case party.RoleDriver:
			f.Driver = true
		case party.RoleOwner:
			f.Owner = true
		}
	}
	return bson.MarshalValue(f)
}

func (r *rolesDoc) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	*r = nil
	switch t {
	case bsontype.EmbeddedDocument:
		elems, err := bson.Raw(data).Elements()
		if err != nil {
			return fmt.Errorf("decode roles: %w", err)
		}
		for _, e := range elems {
			if on, ok := e.Value().BooleanOK(); ok && on {
				r.add(strings.TrimPrefix(strings.ToLower(e.Key()), "is"))
			}
		}
	case bsontype.Array:
		var names []string
		if err := (bson.RawValue{Type: t, Value: data}).Unmarshal(&names); err != nil {
			return fmt.Errorf("decode roles: %w", err)
		}
		for _, n := range names {
			r.add(strings.ToLower(n))
		}
	case bsontype.Null, bsontype.Undefined:
	default:
		return fmt.Errorf("cannot decode %s into roles", t)
	}
	return nil
}

func (r *rolesDoc) add(name string) {
	if role := party.Role(name); role.IsValid() {
		*r = append(*r, role)
	}
}

type driverInfoDoc struct {
	Vehicle     docID  `bson:"vehicle,omitempty"`
	VehicleType string `bson:"vehicleType,omitempty"`
}

type currentLocationDoc struct {
	Coordinates *geoPoint `bson:"coordinates"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

type permanentAddressDoc struct {
	Address     string  `bson:"address,omitempty"`
	Coordinates *latLng `bson:"coordinates,omitempty"`
}

type userDoc struct {
	ID               docID                `bson:"_id"`
	Name             string               `bson:"name"`
	Email            string               `bson:"email"`
	Phone            string               `bson:"phone,omitempty"`
	Roles            rolesDoc             `bson:"roles"`
	DriverInfo       *driverInfoDoc       `bson:"driverInfo,omitempty"`
	CurrentLocation  *currentLocationDoc  `bson:"currentLocation,omitempty"`
	PermanentAddress *permanentAddressDoc `bson:"permanentAddress,omitempty"`
	Version          int64                `bson:"version"`
	CreatedAt        time.Time            `bson:"createdAt"`
	UpdatedAt        time.Time            `bson:"updatedAt"`
}

// UserStore implements party.UserRepository on a MongoDB collection.
type UserStore struct {
	coll *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{coll: db.Collection(usersCollection)}
}

// EnsureIndexes creates the unique email index and the 2dsphere index on live locations.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "currentLocation.coordinates", Value: "2dsphere"}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*party.User, error) {
	var doc userDoc
	if err := s.coll.FindOne(ctx, byID(id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFoundError("User", id)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *UserStore) Save(ctx context.Context, user *party.User) error {
	if _, err := s.coll.InsertOne(ctx, fromUser(user)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.NewConflictError("a user with this email already exists")
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// Update replaces the profile fields guarded by the previous version.
// The live location is owned by UpdateCurrentLocation and is left untouched.
func (s *UserStore) Update(ctx context.Context, user *party.User) error {
	doc := fromUser(user)
	set := bson.M{
		"name":      doc.Name,
		"email":     doc.Email,
		"phone":     doc.Phone,
		"roles":     doc.Roles,
		"version":   doc.Version,
		"updatedAt": doc.UpdatedAt,
	}
	unset := bson.M{}
	if doc.DriverInfo != nil {
		set["driverInfo"] = doc.DriverInfo
	} else {
		unset["driverInfo"] = ""
	}
	if doc.PermanentAddress != nil {
		set["permanentAddress"] = doc.PermanentAddress
	} else {
		unset["permanentAddress"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	filter := byID(user.ID())
	if previous := doc.Version - 1; previous > 0 {
		filter["version"] = previous
	} else {
		// Records created by the marketplace app carry no version yet.
		filter["version"] = bson.M{"$in": bson.A{nil, int64(0)}}
	}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.NewConflictError("user was modified by another transaction")
	}
	return nil
}

func (s *UserStore) UpdateCurrentLocation(ctx context.Context, id string, loc party.LiveLocation) (bool, error) {
	return s.setLocation(ctx, id, loc.UpdatedAt, bson.M{"$set": bson.M{
		"currentLocation": currentLocationDoc{Coordinates: toGeoPoint(loc.Point), UpdatedAt: loc.UpdatedAt},
	}})
}

func (s *UserStore) ClearCurrentLocation(ctx context.Context, id string, at time.Time) (bool, error) {
	return s.setLocation(ctx, id, at, bson.M{"$unset": bson.M{"currentLocation": ""}})
}

// setLocation applies update only while the stored location is not newer than at.
func (s *UserStore) setLocation(ctx context.Context, id string, at time.Time, update bson.M) (bool, error) {
	res, err := s.coll.UpdateOne(ctx, locationNotNewerThan(id, at), update)
	if err != nil {
		return false, fmt.Errorf("failed to update location: %w", err)
	}
	if res.MatchedCount > 0 {
		return true, nil
	}

	n, err := s.coll.CountDocuments(ctx, byID(id), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	if n == 0 {
		return false, domain.NewNotFoundError("User", id)
	}
	return false, nil
}

func locationNotNewerThan(id string, at time.Time) bson.M {
	filter := byID(id)
	filter["$or"] = bson.A{
		bson.M{"currentLocation.updatedAt": bson.M{"$exists": false}},
		bson.M{"currentLocation.updatedAt": bson.M{"$lte": at}},
	}
	return filter
}

// Ping reports whether the backing database is reachable.
func (s *UserStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

func fromUser(u *party.User) userDoc {
	doc := userDoc{
		ID:        docID(u.ID()),
		Name:      u.Name(),
		Email:     u.Email(),
		Phone:     u.Phone(),
		Roles:     rolesDoc(u.Roles()),
		Version:   u.Version(),
		CreatedAt: u.CreatedAt(),
		UpdatedAt: u.UpdatedAt(),
	}
	if d := u.DriverProfile(); d != nil {
		doc.DriverInfo = &driverInfoDoc{Vehicle: docID(d.VehicleID), VehicleType: string(d.VehicleType)}
	}
	if loc := u.CurrentLocation(); loc != nil {
		doc.CurrentLocation = &currentLocationDoc{Coordinates: toGeoPoint(loc.Point), UpdatedAt: loc.UpdatedAt}
	}
	if addr := u.PermanentAddress(); addr != nil {
		lat, lng := addr.Point.Lat, addr.Point.Lng
		doc.PermanentAddress = &permanentAddressDoc{Address: addr.Line, Coordinates: &latLng{Lat: &lat, Lng: &lng}}
	}
	return doc
}

func (d userDoc) toDomain() *party.User {
	var driver *party.DriverProfile
	if d.DriverInfo != nil && d.DriverInfo.Vehicle != "" {
		driver = &party.DriverProfile{
			VehicleID:   string(d.DriverInfo.Vehicle),
			VehicleType: party.VehicleType(d.DriverInfo.VehicleType),
		}
	}

	var current *party.LiveLocation
	if d.CurrentLocation != nil {
		if p, ok := d.CurrentLocation.Coordinates.point(); ok {
			current = &party.LiveLocation{Point: p, UpdatedAt: d.CurrentLocation.UpdatedAt}
		}
	}

	// An address without both coordinates cannot be routed to.
	var address *party.Address
	if a := d.PermanentAddress; a != nil && a.Coordinates != nil && a.Coordinates.Lat != nil && a.Coordinates.Lng != nil {
		address = &party.Address{
			Line:  a.Address,
			Point: geo.Point{Lat: *a.Coordinates.Lat, Lng: *a.Coordinates.Lng},
		}
	}

	return party.ReconstructUser(
		string(d.ID), d.Name, d.Email, d.Phone,
		[]party.Role(d.Roles), driver, current, address,
		d.Version, d.CreatedAt.UTC(), d.UpdatedAt.UTC(),
	)
}
