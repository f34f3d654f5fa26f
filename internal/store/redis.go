package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the redis client used for queueing and snapshot caching.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

const latestSnapshotKey = "frequencia:snapshot:latest"

// SetSnapshot caches a serialized statistics snapshot. The engine itself
// never caches; this is a caller-side convenience for dashboards.
func (r *Redis) SetSnapshot(ctx context.Context, payload []byte, ttl time.Duration) error {
	return r.Client.Set(ctx, latestSnapshotKey, payload, ttl).Err()
}

// GetSnapshot returns the latest cached snapshot, or (nil, nil) when none
// is cached.
func (r *Redis) GetSnapshot(ctx context.Context) ([]byte, error) {
	val, err := r.Client.Get(ctx, latestSnapshotKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}
