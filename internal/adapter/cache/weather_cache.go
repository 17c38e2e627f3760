package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultWeatherTTL is how long a provider response is served from cache.
const DefaultWeatherTTL = 300 * time.Second

// WeatherCache stores raw provider payloads keyed by city.
type WeatherCache interface {
	// Get returns the cached payload, or nil on a miss.
	Get(ctx context.Context, city string) ([]byte, error)

	// Set stores payload for city with the configured TTL.
	Set(ctx context.Context, city string, payload []byte) error
}

// RedisWeatherCache implements WeatherCache on Redis.
type RedisWeatherCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisWeatherCache creates a Redis-backed weather cache. A non-positive ttl
// falls back to DefaultWeatherTTL.
func NewRedisWeatherCache(client *redis.Client, ttl time.Duration, log *zap.Logger) WeatherCache {
	if ttl <= 0 {
		ttl = DefaultWeatherTTL
	}
	return &RedisWeatherCache{client: client, ttl: ttl, log: log}
}

// WeatherKey is case-insensitive on the city name.
func WeatherKey(city string) string {
	return "weather:" + strings.ToLower(strings.TrimSpace(city))
}

// Get retrieves a cached payload.
func (c *RedisWeatherCache) Get(ctx context.Context, city string) ([]byte, error) {
	data, err := c.client.Get(ctx, WeatherKey(city)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("weather cache miss", zap.String("city", city))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	c.log.Debug("weather cache hit", zap.String("city", city))
	return data, nil
}

// Set stores a payload with TTL.
func (c *RedisWeatherCache) Set(ctx context.Context, city string, payload []byte) error {
	return c.client.Set(ctx, WeatherKey(city), payload, c.ttl).Err()
}
