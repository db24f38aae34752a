package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/domain/party"
	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type vehicleDoc struct {
	ID           docID     `bson:"_id"`
	Owner        docID     `bson:"owner"`
	Registration string    `bson:"registration,omitempty"`
	Model        string    `bson:"model,omitempty"`
	PerKmRate    float64   `bson:"perKmRate"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

// VehicleStore implements party.VehicleRepository on a MongoDB collection.
type VehicleStore struct {
	coll *mongo.Collection
}

func NewVehicleStore(db *mongo.Database) *VehicleStore {
	return &VehicleStore{coll: db.Collection(vehiclesCollection)}
}

func (s *VehicleStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "registration", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "owner", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create vehicle indexes: %w", err)
	}
	return nil
}

func (s *VehicleStore) FindByID(ctx context.Context, id string) (*party.Vehicle, error) {
	var doc vehicleDoc
	if err := s.coll.FindOne(ctx, byID(id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NewNotFoundError("Vehicle", id)
		}
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *VehicleStore) FindByOwnerID(ctx context.Context, ownerID string) ([]*party.Vehicle, error) {
	cur, err := s.coll.Find(ctx, bson.M{"owner": idMatch(ownerID)}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicles: %w", err)
	}
	var docs []vehicleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode vehicles: %w", err)
	}
	vehicles := make([]*party.Vehicle, len(docs))
	for i := range docs {
		vehicles[i] = docs[i].toDomain()
	}
	return vehicles, nil
}

func (s *VehicleStore) Save(ctx context.Context, v *party.Vehicle) error {
	doc := vehicleDoc{
		ID:           docID(v.ID()),
		Owner:        docID(v.OwnerID()),
		Registration: v.Registration(),
		Model:        v.Model(),
		PerKmRate:    v.PerKmRate(),
		CreatedAt:    v.CreatedAt(),
		UpdatedAt:    v.UpdatedAt(),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.NewConflictError("a vehicle with this registration already exists")
		}
		return fmt.Errorf("failed to save vehicle: %w", err)
	}
	return nil
}

func (d vehicleDoc) toDomain() *party.Vehicle {
	return party.ReconstructVehicle(string(d.ID), string(d.Owner), d.Registration, d.Model, d.PerKmRate, d.CreatedAt.UTC(), d.UpdatedAt.UTC())
}
