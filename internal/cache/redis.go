package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"listing-service/internal/listing"
	"listing-service/pkg/config"

	"github.com/redis/go-redis/v9"
)

const summaryKeyPrefix = "listing:summary:"

// ConnectRedis initializes and returns a Redis client instance
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}

// DisconnectRedis closes the Redis client connection
func DisconnectRedis(client *redis.Client) error {
	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	return nil
}

// ListingCache stores published listing summaries as JSON with a TTL
type ListingCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ listing.SummaryCache = (*ListingCache)(nil)

// NewListingCache creates a summary cache
func NewListingCache(client redis.Cmdable, ttl time.Duration) *ListingCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ListingCache{client: client, ttl: ttl}
}

func summaryKey(id string) string {
	return summaryKeyPrefix + id
}

// Get returns nil on a miss
func (c *ListingCache) Get(ctx context.Context, id string) (*listing.Summary, error) {
	raw, err := c.client.Get(ctx, summaryKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s listing.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		// a stale encoding counts as a miss
		_ = c.client.Del(ctx, summaryKey(id)).Err()
		return nil, nil
	}
	return &s, nil
}

func (c *ListingCache) Set(ctx context.Context, s *listing.Summary) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, summaryKey(s.ID), raw, c.ttl).Err()
}

func (c *ListingCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, summaryKey(id)).Err()
}
