package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kilat-Ride/service-fare/internal/domain/fare"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const keyDistance = "fare:distance:%s:%s:%s"

type cachedDistance struct {
	Meters  int64 `json:"m"`
	Seconds int64 `json:"s"`
}

// CachedProvider memoises successful lookups in Redis. Failures are never cached,
// and a Redis outage degrades to calling the wrapped provider directly.
type CachedProvider struct {
	next   fare.DistanceProvider
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProvider wraps next with a Redis cache of the given TTL.
func NewCachedProvider(next fare.DistanceProvider, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedProvider {
	return &CachedProvider{next: next, client: client, ttl: ttl, logger: logger}
}

// Distance returns the cached result for the leg or resolves and stores it.
func (p *CachedProvider) Distance(ctx context.Context, origin, destination, mode string) (fare.Distance, error) {
	if mode == "" {
		mode = fare.DefaultMode
	}
	key := fmt.Sprintf(keyDistance, mode, origin, destination)

	raw, err := p.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cd cachedDistance
		if jsonErr := json.Unmarshal(raw, &cd); jsonErr == nil {
			return fare.Distance{Meters: cd.Meters, Seconds: cd.Seconds}, nil
		}
		p.logger.Warn("discarding corrupt distance cache entry", zap.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		p.logger.Warn("distance cache read failed", zap.String("key", key), zap.Error(err))
	}

	d, err := p.next.Distance(ctx, origin, destination, mode)
	if err != nil {
		return fare.Distance{}, err
	}

	value, err := json.Marshal(cachedDistance{Meters: d.Meters, Seconds: d.Seconds})
	if err == nil {
		if err := p.client.Set(ctx, key, value, p.ttl).Err(); err != nil {
			p.logger.Warn("distance cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return d, nil
}
