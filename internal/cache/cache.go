package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/flightdeck/internal/observability"
	"github.com/neexbeast/flightdeck/internal/weather"
)

// DefaultTTL is how long a briefing stays cached when no TTL is configured.
const DefaultTTL = 10 * time.Minute

// Cache is a Redis cache-aside store for weather briefings.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	metrics *observability.Metrics
}

// NewCache constructs a Cache. A non-positive ttl uses DefaultTTL; metrics may be nil.
func NewCache(client *redis.Client, ttl time.Duration, metrics *observability.Metrics) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{client: client, ttl: ttl, metrics: metrics}
}

// Connect parses redisURL, creates a client, and verifies connectivity with a ping.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}

func key(icao string) string {
	return "briefing:" + strings.ToUpper(strings.TrimSpace(icao))
}

func (c *Cache) record(result string) {
	if c.metrics != nil {
		c.metrics.BriefingCache.WithLabelValues(result).Inc()
	}
}

// Get retrieves the cached briefing for a station.
// Returns nil, nil on a cache miss (not an error).
func (c *Cache) Get(ctx context.Context, icao string) (*weather.Briefing, error) {
	val, err := c.client.Get(ctx, key(icao)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.record("miss")
			return nil, nil
		}
		c.record("error")
		return nil, fmt.Errorf("cache get for %s: %w", icao, err)
	}

	var b weather.Briefing
	if err := json.Unmarshal(val, &b); err != nil {
		c.record("error")
		return nil, fmt.Errorf("unmarshaling cached briefing for %s: %w", icao, err)
	}

	c.record("hit")
	return &b, nil
}

// Set stores a briefing with the configured TTL. A nil briefing is a no-op.
func (c *Cache) Set(ctx context.Context, icao string, b *weather.Briefing) error {
	if b == nil {
		return nil
	}

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshaling briefing for %s: %w", icao, err)
	}

	if err := c.client.Set(ctx, key(icao), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set for %s: %w", icao, err)
	}

	return nil
}

// Delete removes the cached briefing for a station. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, icao string) error {
	if err := c.client.Del(ctx, key(icao)).Err(); err != nil {
		return fmt.Errorf("cache delete for %s: %w", icao, err)
	}
	return nil
}
