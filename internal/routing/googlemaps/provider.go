package googlemaps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/domain/fare"
	"github.com/Kilat-Ride/service-fare/internal/domain/geo"
	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"go.uber.org/zap"
	"googlemaps.github.io/maps"
)

// Config holds the Distance Matrix client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Provider resolves leg distances through the Google Distance Matrix API.
type Provider struct {
	client *maps.Client
	logger *zap.Logger
}

// NewProvider creates a Distance Matrix backed provider.
func NewProvider(cfg Config, logger *zap.Logger) (*Provider, error) {
	opts := []maps.ClientOption{
		maps.WithAPIKey(cfg.APIKey),
		maps.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, maps.WithBaseURL(cfg.BaseURL))
	}

	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Provider{client: client, logger: logger}, nil
}

// Distance returns the first route element between origin and destination.
func (p *Provider) Distance(ctx context.Context, origin, destination, mode string) (fare.Distance, error) {
	if err := geo.ValidateLatLng(origin); err != nil {
		return fare.Distance{}, err
	}
	if err := geo.ValidateLatLng(destination); err != nil {
		return fare.Distance{}, err
	}
	if mode == "" {
		mode = fare.DefaultMode
	}

	resp, err := p.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{origin},
		Destinations: []string{destination},
		Mode:         maps.Mode(mode),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fare.Distance{}, domain.NewUpstreamError("distance lookup timed out", err)
		}
		return fare.Distance{}, domain.NewUpstreamError("distance lookup failed", err)
	}

	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 || resp.Rows[0].Elements[0] == nil {
		return fare.Distance{}, domain.NewUpstreamError("distance lookup failed",
			errors.New("unexpected response shape: no route elements"))
	}

	el := resp.Rows[0].Elements[0]
	if el.Status != "OK" {
		return fare.Distance{}, domain.NewUpstreamError("distance lookup failed",
			fmt.Errorf("element status %s", el.Status))
	}

	p.logger.Debug("distance resolved",
		zap.String("origin", origin),
		zap.String("destination", destination),
		zap.Int("meters", el.Distance.Meters),
		zap.Duration("duration", el.Duration),
	)

	return fare.Distance{
		Meters:  int64(el.Distance.Meters),
		Seconds: int64(el.Duration / time.Second),
	}, nil
}
