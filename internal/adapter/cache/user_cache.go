package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "user-auth-service/internal/domain/user"
)

// UserCache defines the interface for user caching operations.
type UserCache interface {
	// Get retrieves a user from cache by ID.
	// Returns nil if user is not found in cache.
	Get(ctx context.Context, id string) (*domain.User, error)

	// Version returns the invalidation counter for id, 0 if it was never invalidated.
	Version(ctx context.Context, id string) (int64, error)

	// Set stores a user with the configured TTL unless the ID was invalidated
	// after version was read. It reports whether the entry was written.
	Set(ctx context.Context, user *domain.User, version int64) (bool, error)

	// Delete removes a user from cache by ID and bumps its version.
	Delete(ctx context.Context, id string) error
}

// setIfVersion writes KEYS[1] only while KEYS[2] still holds ARGV[2].
var setIfVersion = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[2])) or 0
if current ~= tonumber(ARGV[2]) then
	return 0
end
local ttl = tonumber(ARGV[3])
if ttl > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ttl)
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// invalidateUser drops KEYS[1] and bumps the version in KEYS[2].
var invalidateUser = redis.NewScript(`
redis.call('DEL', KEYS[1])
local version = redis.call('INCR', KEYS[2])
local ttl = tonumber(ARGV[1])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[2], ttl)
end
return version
`)

// RedisUserCache implements UserCache using Redis as the backing store.
// The password hash is never serialised, so cached entries are public projections.
type RedisUserCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisUserCache creates a new Redis-backed user cache.
func NewRedisUserCache(client *redis.Client, ttl time.Duration, log *zap.Logger) UserCache {
	return &RedisUserCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func userKey(id string) string {
	return "user:" + id
}

func userVersionKey(id string) string {
	return "user:ver:" + id
}

// Get retrieves a user from Redis cache.
func (c *RedisUserCache) Get(ctx context.Context, id string) (*domain.User, error) {
	data, err := c.client.Get(ctx, userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("cache miss", zap.String("user_id", id))
		return nil, nil
	}
	if err != nil {
		c.log.Error("failed to get from cache", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal(data, &user); err != nil {
		c.log.Error("failed to unmarshal cached user", zap.String("user_id", id), zap.Error(err))
		return nil, err
	}

	c.log.Debug("cache hit", zap.String("user_id", id))
	return &user, nil
}

// Version reads the invalidation counter for id.
func (c *RedisUserCache) Version(ctx context.Context, id string) (int64, error) {
	v, err := c.client.Get(ctx, userVersionKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		c.log.Error("failed to read cache version", zap.String("user_id", id), zap.Error(err))
		return 0, err
	}
	return v, nil
}

// Set stores a user in Redis cache with TTL if no invalidation happened since version was read.
func (c *RedisUserCache) Set(ctx context.Context, user *domain.User, version int64) (bool, error) {
	if user == nil {
		return false, fmt.Errorf("cannot cache nil user")
	}

	data, err := json.Marshal(user)
	if err != nil {
		c.log.Error("failed to marshal user for cache", zap.String("user_id", user.ID), zap.Error(err))
		return false, err
	}

	stored, err := setIfVersion.Run(ctx, c.client,
		[]string{userKey(user.ID), userVersionKey(user.ID)},
		data, version, c.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		c.log.Error("failed to set cache", zap.String("user_id", user.ID), zap.Error(err))
		return false, err
	}
	if stored == 0 {
		c.log.Debug("skipped stale cache fill", zap.String("user_id", user.ID), zap.Int64("version", version))
		return false, nil
	}

	c.log.Debug("cached user", zap.String("user_id", user.ID), zap.Duration("ttl", c.ttl))
	return true, nil
}

// Delete removes a user from Redis cache.
func (c *RedisUserCache) Delete(ctx context.Context, id string) error {
	if err := invalidateUser.Run(ctx, c.client, []string{userKey(id), userVersionKey(id)}, c.versionTTL().Milliseconds()).Err(); err != nil {
		c.log.Error("failed to delete from cache", zap.String("user_id", id), zap.Error(err))
		return err
	}

	c.log.Debug("deleted from cache", zap.String("user_id", id))
	return nil
}

// versionTTL keeps the version at least as long as any entry it guards.
func (c *RedisUserCache) versionTTL() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	return c.ttl + time.Minute
}
