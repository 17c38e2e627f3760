package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultEventTTL is how long a processed webhook event id is remembered.
const DefaultEventTTL = 24 * time.Hour

// EventLedger records processed webhook events.
type EventLedger interface {
	// MarkProcessed records id and reports whether this was its first delivery.
	MarkProcessed(ctx context.Context, id string) (bool, error)
}

// RedisEventLedger implements EventLedger with SETNX.
type RedisEventLedger struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisEventLedger creates a ledger. A non-positive ttl falls back to DefaultEventTTL.
func NewRedisEventLedger(client *redis.Client, ttl time.Duration) EventLedger {
	if ttl <= 0 {
		ttl = DefaultEventTTL
	}
	return &RedisEventLedger{client: client, ttl: ttl}
}

func eventKey(id string) string {
	return "webhook:event:" + id
}

// MarkProcessed atomically claims the event id.
func (l *RedisEventLedger) MarkProcessed(ctx context.Context, id string) (bool, error) {
	return l.client.SetNX(ctx, eventKey(id), 1, l.ttl).Result()
}
