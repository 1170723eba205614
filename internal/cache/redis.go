package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"physiotrack/backend/internal/domain"
)

// Redis backs the progress cache with a shared Redis instance so that
// multiple server replicas see the same memoized metrics and the same
// invalidations.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

var _ ProgressCache = (*Redis)(nil)

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if client == nil {
		panic("cache: redis client required")
	}
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (domain.ProgressMetrics, bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ProgressMetrics{}, false, nil
		}
		return domain.ProgressMetrics{}, false, fmt.Errorf("cache: get %s: %w", key, err)
	}

	var metrics domain.ProgressMetrics
	if err := json.Unmarshal(data, &metrics); err != nil {
		return domain.ProgressMetrics{}, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return metrics, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, metrics domain.ProgressMetrics) error {
	data, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Invalidate(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("cache: invalidate %s: %w", key, err)
	}
	return nil
}
