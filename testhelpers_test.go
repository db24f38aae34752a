//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/application"
	"github.com/Kilat-Ride/service-fare/internal/domain/fare"
	"github.com/Kilat-Ride/service-fare/internal/domain/party"
	fareEvents "github.com/Kilat-Ride/service-fare/internal/events"
	"github.com/Kilat-Ride/service-fare/internal/pkg/database"
	"github.com/Kilat-Ride/service-fare/internal/pkg/kafka"
	"github.com/Kilat-Ride/service-fare/internal/repository"
	"github.com/Kilat-Ride/service-fare/internal/repository/mongostore"
	"github.com/Kilat-Ride/service-fare/internal/routing/straightline"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	Mongo        *mongo.Database
	KafkaBrokers []string
	Cleanup      func()
}

// fareStack holds wired-up service components over one directory backend.
type fareStack struct {
	Users           party.UserRepository
	Vehicles        party.VehicleRepository
	Fares           *application.FareService
	Bookings        *application.BookingService
	Profiles        *application.ProfileService
	Consumer        *fareEvents.LocationEventConsumer
	CleanupProducer func()
}

// setupContainers starts PostgreSQL, MongoDB and Kafka and applies the SQL migrations.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()
	log := zaptest.NewLogger(t)

	pgContainer, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("test_fare"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.RunMigrations(dsn, "migrations", log), "failed to apply migrations")

	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(gormpostgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err, "failed to start MongoDB container")
	mongoURI, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)
	client, mdb, err := database.ConnectMongo(ctx, database.MongoConfig{
		URI:      mongoURI,
		Database: "test_marketplace",
	}, log)
	require.NoError(t, err)

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, "ride.booking.events", "driver.location.events")

	cleanup := func() {
		_ = client.Disconnect(context.Background())
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate MongoDB container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		Mongo:        mdb,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupPostgresStack wires the services over the relational directory.
func setupPostgresStack(t *testing.T, infra *testInfra) *fareStack {
	t.Helper()
	return setupStack(t, infra,
		repository.NewGormUserRepository(infra.DB),
		repository.NewGormVehicleRepository(infra.DB),
	)
}

// setupMongoStack wires the services over the document directory.
func setupMongoStack(t *testing.T, infra *testInfra) *fareStack {
	t.Helper()
	users := mongostore.NewUserStore(infra.Mongo)
	vehicles := mongostore.NewVehicleStore(infra.Mongo)
	require.NoError(t, users.EnsureIndexes(context.Background()))
	require.NoError(t, vehicles.EnsureIndexes(context.Background()))
	return setupStack(t, infra, users, vehicles)
}

func setupStack(t *testing.T, infra *testInfra, users party.UserRepository, vehicles party.VehicleRepository) *fareStack {
	t.Helper()
	logger := zaptest.NewLogger(t)

	fares := application.NewFareService(
		users,
		vehicles,
		straightline.NewProvider(40),
		fare.NewPerKmPricing(),
		application.FareConfig{LookupTimeout: 2 * time.Second},
		logger,
	)
	producer := kafka.NewProducer(infra.KafkaBrokers, logger)
	bookings := application.NewBookingService(repository.NewGormBookingRepository(infra.DB), fares, producer, "MYR", logger)
	profiles := application.NewProfileService(users, vehicles, logger)

	groupID := fmt.Sprintf("test-fare-%s", uuid.New().String()[:8])
	consumer := fareEvents.NewLocationEventConsumer(infra.KafkaBrokers, groupID, profiles, logger)

	return &fareStack{
		Users:           users,
		Vehicles:        vehicles,
		Fares:           fares,
		Bookings:        bookings,
		Profiles:        profiles,
		Consumer:        consumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

func coords(lat, lng float64) *application.LocationInput {
	return &application.LocationInput{Coordinates: &application.Coordinates{Lat: &lat, Lng: &lng}}
}

// seedParties creates an owner with a vehicle and a driver who drives it under vehicleType.
func seedParties(t *testing.T, s *fareStack, vehicleType party.VehicleType) (owner, driver *application.ProfileDTO, vehicle *application.VehicleDTO) {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.New().String()[:8]

	owner, err := s.Profiles.CreateProfile(ctx, application.CreateProfileRequest{
		Name:  "Owner " + suffix,
		Email: "owner-" + suffix + "@example.com",
		Roles: []string{string(party.RoleOwner)},
	})
	require.NoError(t, err)
	_, err = s.Profiles.SetPermanentAddress(ctx, owner.ID, owner.ID, *coords(3.1478, 101.6953))
	require.NoError(t, err)

	driverRoles := []string{string(party.RoleDriver)}
	if vehicleType == party.VehicleOwn {
		driverRoles = append(driverRoles, string(party.RoleOwner))
	}
	driver, err = s.Profiles.CreateProfile(ctx, application.CreateProfileRequest{
		Name:  "Driver " + suffix,
		Email: "driver-" + suffix + "@example.com",
		Roles: driverRoles,
	})
	require.NoError(t, err)
	_, err = s.Profiles.SetPermanentAddress(ctx, driver.ID, driver.ID, *coords(3.0738, 101.5183))
	require.NoError(t, err)

	registrar := owner.ID
	if vehicleType == party.VehicleOwn {
		registrar = driver.ID
	}
	rate := 0.85
	vehicle, err = s.Profiles.RegisterVehicle(ctx, registrar, application.RegisterVehicleRequest{
		Registration: "W" + suffix[:6],
		Model:        "Axia",
		PerKmRate:    &rate,
	})
	require.NoError(t, err)

	driver, err = s.Profiles.AttachVehicle(ctx, driver.ID, driver.ID, application.AttachVehicleRequest{
		VehicleID:   vehicle.ID,
		VehicleType: string(vehicleType),
	})
	require.NoError(t, err)
	return owner, driver, vehicle
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForBookingStatus polls the bookings table until the status matches.
func waitForBookingStatus(t *testing.T, db *gorm.DB, bookingID uuid.UUID, expectedStatus string, timeout time.Duration) repository.BookingModel {
	t.Helper()
	var result repository.BookingModel
	require.Eventually(t, func() bool {
		var model repository.BookingModel
		err := db.Where("id = ?", bookingID).First(&model).Error
		if err != nil {
			return false
		}
		if model.Status == expectedStatus {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "booking did not transition to %s", expectedStatus)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type for subject.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType, subject string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType && ce.Subject == subject {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
