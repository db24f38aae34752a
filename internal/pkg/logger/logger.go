package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a zap logger configured for the given environment.
// production and staging get JSON output at info level; anything else gets
// the colored development console encoder at debug level.
func New(env string) (*zap.Logger, error) {
	var cfg zap.Config
	switch env {
	case "production", "staging":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return log, nil
}

// NewNamed creates an environment-configured logger tagged with the service name.
func NewNamed(env, service string) (*zap.Logger, error) {
	log, err := New(env)
	if err != nil {
		return nil, err
	}
	return log.Named(service).With(zap.String("service", service), zap.String("env", env)), nil
}
