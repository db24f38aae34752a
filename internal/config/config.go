package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/pkg/database"
	"github.com/spf13/viper"
)

const envPrefix = "FARE"

// Directory backends for users and vehicles.
const (
	DirectoryMongo    = "mongo"
	DirectoryPostgres = "postgres"
)

// Distance providers.
const (
	ProviderGoogle       = "google"
	ProviderStraightLine = "straightline"
)

// KafkaConfig holds broker settings for the event producer and consumers.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// RoutingConfig selects and tunes the distance provider.
type RoutingConfig struct {
	Provider        string
	APIKey          string
	BaseURL         string
	Mode            string
	LookupTimeout   time.Duration
	RatePerSecond   float64
	Burst           int
	CacheTTL        time.Duration
	StraightLineKmh float64
}

// ServiceConfig holds all configuration for the fare service.
type ServiceConfig struct {
	Port            string
	AppEnv          string
	DirectoryDriver string
	Currency        string
	ParallelLegs    bool
	MigrationsDir   string
	DBConfig        database.PostgresConfig
	MongoConfig     database.MongoConfig
	RedisEnabled    bool
	RedisConfig     database.RedisConfig
	KafkaConfig     KafkaConfig
	Routing         RoutingConfig
}

// Load reads configuration from FARE_* environment variables and, when
// FARE_CONFIG_FILE is set, from that file first.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	cfg := &ServiceConfig{
		Port:            normalizePort(v.GetString("SERVICE_PORT")),
		AppEnv:          v.GetString("APP_ENV"),
		DirectoryDriver: strings.ToLower(v.GetString("DIRECTORY_DRIVER")),
		Currency:        strings.ToUpper(v.GetString("CURRENCY")),
		ParallelLegs:    v.GetBool("PARALLEL_LEGS"),
		MigrationsDir:   v.GetString("MIGRATIONS_DIR"),
		DBConfig: database.PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MaxConns: v.GetInt("DB_MAX_CONNS"),
			MaxIdle:  v.GetInt("DB_MAX_IDLE"),
		},
		MongoConfig: database.MongoConfig{
			URI:            v.GetString("MONGO_URI"),
			Database:       v.GetString("MONGO_DATABASE"),
			ConnectTimeout: v.GetDuration("MONGO_CONNECT_TIMEOUT"),
			MaxPoolSize:    uint64(v.GetInt("MONGO_MAX_POOL_SIZE")),
		},
		RedisEnabled: v.GetBool("REDIS_ENABLED"),
		RedisConfig: database.RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			PoolSize: v.GetInt("REDIS_POOL_SIZE"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("KAFKA_BROKERS")),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		Routing: RoutingConfig{
			Provider:        strings.ToLower(v.GetString("ROUTING_PROVIDER")),
			APIKey:          v.GetString("ROUTING_API_KEY"),
			BaseURL:         v.GetString("ROUTING_BASE_URL"),
			Mode:            v.GetString("ROUTING_MODE"),
			LookupTimeout:   v.GetDuration("ROUTING_LOOKUP_TIMEOUT"),
			RatePerSecond:   v.GetFloat64("ROUTING_RATE_PER_SECOND"),
			Burst:           v.GetInt("ROUTING_BURST"),
			CacheTTL:        v.GetDuration("ROUTING_CACHE_TTL"),
			StraightLineKmh: v.GetFloat64("ROUTING_STRAIGHTLINE_KMH"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DIRECTORY_DRIVER", DirectoryMongo)
	v.SetDefault("CURRENCY", "MYR")
	v.SetDefault("PARALLEL_LEGS", false)
	v.SetDefault("MIGRATIONS_DIR", "migrations")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "fare_db")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE", 5)

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "marketplace")
	v.SetDefault("MONGO_CONNECT_TIMEOUT", 10*time.Second)
	v.SetDefault("MONGO_MAX_POOL_SIZE", 50)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_POOL_SIZE", 10)

	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "ride-")

	v.SetDefault("ROUTING_PROVIDER", ProviderGoogle)
	v.SetDefault("ROUTING_API_KEY", "")
	v.SetDefault("ROUTING_BASE_URL", "")
	v.SetDefault("ROUTING_MODE", "driving")
	v.SetDefault("ROUTING_LOOKUP_TIMEOUT", 5*time.Second)
	v.SetDefault("ROUTING_RATE_PER_SECOND", 10.0)
	v.SetDefault("ROUTING_BURST", 20)
	v.SetDefault("ROUTING_CACHE_TTL", 10*time.Minute)
	v.SetDefault("ROUTING_STRAIGHTLINE_KMH", 40.0)
}

func (c *ServiceConfig) validate() error {
	switch c.DirectoryDriver {
	case DirectoryMongo, DirectoryPostgres:
	default:
		return fmt.Errorf("invalid FARE_DIRECTORY_DRIVER %q: want %s or %s", c.DirectoryDriver, DirectoryMongo, DirectoryPostgres)
	}
	switch c.Routing.Provider {
	case ProviderGoogle:
		if c.Routing.APIKey == "" {
			return fmt.Errorf("FARE_ROUTING_API_KEY is required when FARE_ROUTING_PROVIDER=%s", ProviderGoogle)
		}
	case ProviderStraightLine:
	default:
		return fmt.Errorf("invalid FARE_ROUTING_PROVIDER %q: want %s or %s", c.Routing.Provider, ProviderGoogle, ProviderStraightLine)
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("invalid FARE_CURRENCY %q: want a 3-letter code", c.Currency)
	}
	if c.Routing.LookupTimeout <= 0 {
		return fmt.Errorf("FARE_ROUTING_LOOKUP_TIMEOUT must be positive")
	}
	if c.Routing.RatePerSecond <= 0 {
		return fmt.Errorf("FARE_ROUTING_RATE_PER_SECOND must be positive")
	}
	if c.Routing.Burst <= 0 {
		return fmt.Errorf("FARE_ROUTING_BURST must be positive")
	}
	return nil
}

func normalizePort(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
