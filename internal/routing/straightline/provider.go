package straightline

import (
	"context"
	"math"

	"github.com/Kilat-Ride/service-fare/internal/domain/fare"
	"github.com/Kilat-Ride/service-fare/internal/domain/geo"
)

// DefaultSpeedKmh is the average speed used to derive durations.
const DefaultSpeedKmh = 30.0

// Provider estimates legs with great-circle distance and a constant average speed.
// It needs no network access and is meant for local development.
type Provider struct {
	speedKmh float64
}

// NewProvider creates a straight-line provider. A non-positive speed falls back to DefaultSpeedKmh.
func NewProvider(speedKmh float64) *Provider {
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}
	return &Provider{speedKmh: speedKmh}
}

// Distance ignores mode; every leg is treated as driving at the configured speed.
func (p *Provider) Distance(ctx context.Context, origin, destination, _ string) (fare.Distance, error) {
	if err := ctx.Err(); err != nil {
		return fare.Distance{}, err
	}
	from, err := geo.ParseLatLng(origin)
	if err != nil {
		return fare.Distance{}, err
	}
	to, err := geo.ParseLatLng(destination)
	if err != nil {
		return fare.Distance{}, err
	}

	meters := geo.HaversineMeters(from, to)
	seconds := meters / (p.speedKmh * 1000 / 3600)
	return fare.Distance{
		Meters:  int64(math.Round(meters)),
		Seconds: int64(math.Round(seconds)),
	}, nil
}
