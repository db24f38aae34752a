package routing

import (
	"context"

	"github.com/Kilat-Ride/service-fare/internal/domain/fare"
	"github.com/Kilat-Ride/service-fare/internal/pkg/domain"
	"golang.org/x/time/rate"
)

// RateLimitedProvider caps the request rate sent to the wrapped provider.
// Callers wait for a token; a cancelled or expired context fails the lookup.
type RateLimitedProvider struct {
	next    fare.DistanceProvider
	limiter *rate.Limiter
}

// NewRateLimitedProvider allows perSecond lookups with the given burst.
func NewRateLimitedProvider(next fare.DistanceProvider, perSecond float64, burst int) *RateLimitedProvider {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Distance waits for a token and delegates.
func (p *RateLimitedProvider) Distance(ctx context.Context, origin, destination, mode string) (fare.Distance, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return fare.Distance{}, domain.NewUpstreamError("distance lookup rate limited", err)
	}
	return p.next.Distance(ctx, origin, destination, mode)
}
