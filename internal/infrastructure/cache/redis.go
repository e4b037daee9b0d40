package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meetingscribe/transcript-relay/pkg/config"
)

// RedisClient stores best-effort processed-notification markers. A
// marker is written only after a fully successful run; losing Redis
// just means redeliveries reprocess, which is safe because every
// downstream step is idempotent.
type RedisClient struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to Redis and verifies the connection
func NewRedisClient(cfg *config.Config) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{client: client, ttl: cfg.Redis.MarkerTTL}, nil
}

func markerKey(transcriptID string) string {
	return "processed:" + transcriptID
}

// IsProcessed reports whether a transcript id already completed a run
func (r *RedisClient) IsProcessed(ctx context.Context, transcriptID string) (bool, error) {
	n, err := r.client.Exists(ctx, markerKey(transcriptID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check marker: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records a completed run for a transcript id
func (r *RedisClient) MarkProcessed(ctx context.Context, transcriptID string) error {
	if err := r.client.Set(ctx, markerKey(transcriptID), time.Now().UTC().Format(time.RFC3339), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set marker: %w", err)
	}
	return nil
}

// Close releases the underlying connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}
