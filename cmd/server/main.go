package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/application"
	"github.com/Kilat-Ride/service-fare/internal/config"
	"github.com/Kilat-Ride/service-fare/internal/domain/fare"
	"github.com/Kilat-Ride/service-fare/internal/domain/party"
	fareEvents "github.com/Kilat-Ride/service-fare/internal/events"
	"github.com/Kilat-Ride/service-fare/internal/handler"
	"github.com/Kilat-Ride/service-fare/internal/pkg/database"
	"github.com/Kilat-Ride/service-fare/internal/pkg/health"
	"github.com/Kilat-Ride/service-fare/internal/pkg/kafka"
	"github.com/Kilat-Ride/service-fare/internal/pkg/logger"
	"github.com/Kilat-Ride/service-fare/internal/pkg/middleware"
	"github.com/Kilat-Ride/service-fare/internal/repository"
	"github.com/Kilat-Ride/service-fare/internal/repository/mongostore"
	"github.com/Kilat-Ride/service-fare/internal/routing"
	"github.com/Kilat-Ride/service-fare/internal/routing/googlemaps"
	"github.com/Kilat-Ride/service-fare/internal/routing/straightline"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const serviceName = "service-fare"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("directory", cfg.DirectoryDriver),
		zap.String("routing_provider", cfg.Routing.Provider),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.UserModel{}, &repository.VehicleModel{}, &repository.BookingModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), cfg.MigrationsDir, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	healthHandler := health.NewHandler(serviceName, 3*time.Second).
		AddCheck("postgres", pingPostgres(db))

	// Initialize the user and vehicle directory
	users, vehicles, closeDirectory := openDirectory(ctx, cfg, db, healthHandler, log)
	defer closeDirectory()

	// Initialize the distance provider chain
	distances, closeProvider := buildDistanceProvider(cfg, healthHandler, log)
	defer closeProvider()

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize application services
	fareService := application.NewFareService(
		users,
		vehicles,
		distances,
		fare.NewPerKmPricing(),
		application.FareConfig{
			Mode:          cfg.Routing.Mode,
			LookupTimeout: cfg.Routing.LookupTimeout,
			ParallelLegs:  cfg.ParallelLegs,
		},
		log,
	)
	bookingService := application.NewBookingService(
		repository.NewGormBookingRepository(db),
		fareService,
		kafkaProducer,
		cfg.Currency,
		log,
	)
	profileService := application.NewProfileService(users, vehicles, log)

	// Start driver location consumer in a goroutine
	groupID := cfg.KafkaConfig.GroupPrefix + serviceName
	locationConsumer := fareEvents.NewLocationEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		profileService,
		log,
	)
	defer func() { _ = locationConsumer.Close() }()

	go func() {
		log.Info("starting driver location consumer")
		if err := locationConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("driver location consumer error", zap.Error(err))
		}
	}()

	// Setup Gin router
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware())

	// Register routes
	healthHandler.RegisterRoutes(router)
	handler.NewFareHandler(fareService).RegisterRoutes(&router.RouterGroup)
	handler.NewBookingHandler(bookingService).RegisterRoutes(&router.RouterGroup)
	handler.NewProfileHandler(profileService).RegisterRoutes(&router.RouterGroup)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}

// openDirectory returns the user and vehicle repositories for the configured backend.
func openDirectory(
	ctx context.Context,
	cfg *config.ServiceConfig,
	db *gorm.DB,
	hh *health.Handler,
	log *zap.Logger,
) (party.UserRepository, party.VehicleRepository, func()) {
	if cfg.DirectoryDriver == config.DirectoryPostgres {
		return repository.NewGormUserRepository(db), repository.NewGormVehicleRepository(db), func() {}
	}

	client, mdb, err := database.ConnectMongo(ctx, cfg.MongoConfig, log)
	if err != nil {
		log.Fatal("failed to connect to mongo", zap.Error(err))
	}
	users := mongostore.NewUserStore(mdb)
	vehicles := mongostore.NewVehicleStore(mdb)
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatal("failed to prepare user collection", zap.Error(err))
	}
	if err := vehicles.EnsureIndexes(ctx); err != nil {
		log.Fatal("failed to prepare vehicle collection", zap.Error(err))
	}
	hh.AddCheck("mongo", users.Ping)

	return users, vehicles, func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.Warn("failed to disconnect mongo", zap.Error(err))
		}
	}
}

// buildDistanceProvider assembles provider -> cache -> rate limiter.
// Cache hits bypass the limiter so only upstream calls spend quota.
func buildDistanceProvider(cfg *config.ServiceConfig, hh *health.Handler, log *zap.Logger) (fare.DistanceProvider, func()) {
	var upstream fare.DistanceProvider
	switch cfg.Routing.Provider {
	case config.ProviderStraightLine:
		upstream = straightline.NewProvider(cfg.Routing.StraightLineKmh)
	default:
		p, err := googlemaps.NewProvider(googlemaps.Config{
			APIKey:  cfg.Routing.APIKey,
			BaseURL: cfg.Routing.BaseURL,
			Timeout: cfg.Routing.LookupTimeout,
		}, log)
		if err != nil {
			log.Fatal("failed to create distance matrix client", zap.Error(err))
		}
		upstream = p
	}

	var provider fare.DistanceProvider = routing.NewRateLimitedProvider(upstream, cfg.Routing.RatePerSecond, cfg.Routing.Burst)
	if !cfg.RedisEnabled {
		return provider, func() {}
	}

	client, err := database.NewRedisClient(cfg.RedisConfig)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	hh.AddCheck("redis", func(ctx context.Context) error { return client.Ping(ctx).Err() })

	return routing.NewCachedProvider(provider, client, cfg.Routing.CacheTTL, log), func() { closeRedis(client, log) }
}

func closeRedis(client *redis.Client, log *zap.Logger) {
	if err := client.Close(); err != nil {
		log.Warn("failed to close redis", zap.Error(err))
	}
}

func pingPostgres(db *gorm.DB) health.CheckFunc {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
