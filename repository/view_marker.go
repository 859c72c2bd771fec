package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultViewTTL = 24 * time.Hour

// RedisViewMarker implements the view dedup window on redis. SETNX with TTL is
// the existence check and the record in one atomic step, so two concurrent
// views from the same visitor resolve to exactly one first sighting.
type RedisViewMarker struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisViewMarker creates a marker; ttl <= 0 falls back to 24h.
func NewRedisViewMarker(rdb *redis.Client, ttl time.Duration) *RedisViewMarker {
	if ttl <= 0 {
		ttl = defaultViewTTL
	}
	return &RedisViewMarker{rdb: rdb, ttl: ttl}
}

// MarkSeen records (visitor, discussion) and reports whether this was the
// first sighting within the TTL window.
func (m *RedisViewMarker) MarkSeen(ctx context.Context, visitorIP string, discussionID uint) (bool, error) {
	key := fmt.Sprintf("view:%d:%s", discussionID, visitorIP)
	return m.rdb.SetNX(ctx, key, "1", m.ttl).Result()
}
