package telemetry

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/quantor/signalflow/pkg/models"
)

const usageKeyPrefix = "signalflow:usage:"

// RedisRecorder persists usage counters in Redis so they survive restarts
// and aggregate across runner instances.
type RedisRecorder struct {
	client redis.UniversalClient
}

// NewRedisRecorder creates a recorder from a redis:// URL.
func NewRedisRecorder(redisURL string) (*RedisRecorder, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	return &RedisRecorder{client: redis.NewClient(opts)}, nil
}

func (r *RedisRecorder) IncrAction(ctx context.Context, actionType models.NodeType) error {
	if err := r.client.Incr(ctx, usageKeyPrefix+string(actionType)).Err(); err != nil {
		return fmt.Errorf("failed to increment usage counter: %w", err)
	}

	return nil
}

// Count reads the persisted usage for an action type.
func (r *RedisRecorder) Count(ctx context.Context, actionType models.NodeType) (int64, error) {
	count, err := r.client.Get(ctx, usageKeyPrefix+string(actionType)).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}

		return 0, fmt.Errorf("failed to read usage counter: %w", err)
	}

	return count, nil
}

func (r *RedisRecorder) Close() error {
	return r.client.Close()
}
