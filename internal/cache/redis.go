package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent
var ErrMiss = fmt.Errorf("cache miss")

// Cache represents a Redis cache implementation
type Cache struct {
	client *redis.Client
}

// NewCache creates a new Redis cache instance
func NewCache(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return &Cache{client: client}, nil
}

// NewCacheWithClient wraps an existing Redis client (used in tests)
func NewCacheWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// ListKey builds the cache key for one resolved price list:
// "list:{companyID}:{branchID}:{channel|-}:{YYYY-MM-DD}"
func ListKey(companyID, branchID uuid.UUID, channel string, on time.Time) string {
	if channel == "" {
		channel = "-"
	}
	return fmt.Sprintf("list:%s:%s:%s:%s", companyID, branchID, channel, on.UTC().Format("2006-01-02"))
}

// Set stores a JSON-encoded value under key with the given expiration
func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.client.Set(ctx, key, data, expiration).Err()
}

// Get retrieves a JSON-encoded value. Returns ErrMiss when absent.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrMiss
		}
		return fmt.Errorf("failed to get key: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return nil
}

// Delete removes a key from the cache
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

// Exists checks if a key exists in the cache
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	result, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key existence: %w", err)
	}

	return result > 0, nil
}
