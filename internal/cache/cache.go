// Package cache holds short-lived copies of read views so list screens do not hit
// PostgreSQL on every refresh. Writers invalidate whole namespaces.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Namespaces invalidated after a reception commit.
const (
	PurchaseOrders = "purchase_orders"
	WorkOrders     = "work_orders"
	Stock          = "stock"
)

// Cache stores JSON-encoded values under namespace/key pairs.
type Cache interface {
	// Get decodes the cached value into dest. It reports false on a miss.
	Get(ctx context.Context, namespace, key string, dest any) (bool, error)
	Set(ctx context.Context, namespace, key string, value any) error
	// Invalidate drops every key of the given namespaces.
	Invalidate(ctx context.Context, namespaces ...string) error
	Close() error
}

const keyPrefix = "fieldservice"

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Connect opens a Redis-backed cache. An empty url returns a cache that never hits.
func Connect(redisURL string, ttl time.Duration) (Cache, error) {
	if redisURL == "" {
		log.Println("cache: REDIS_URL not set, read cache disabled")
		return Noop{}, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.MaxRetries = 3
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Println("cache: Redis connected")
	return NewRedis(client, ttl), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration) Cache {
	return &redisCache{client: client, ttl: ttl}
}

func key(namespace, k string) string {
	return keyPrefix + ":" + namespace + ":" + k
}

func (c *redisCache) Get(ctx context.Context, namespace, k string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, key(namespace, k)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache get %s/%s: %w", namespace, k, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache decode %s/%s: %w", namespace, k, err)
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, namespace, k string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s/%s: %w", namespace, k, err)
	}
	if err := c.client.Set(ctx, key(namespace, k), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s/%s: %w", namespace, k, err)
	}
	return nil
}

func (c *redisCache) Invalidate(ctx context.Context, namespaces ...string) error {
	for _, ns := range namespaces {
		iter := c.client.Scan(ctx, 0, key(ns, "*"), 100).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("cache scan %s: %w", ns, err)
		}
		if len(keys) == 0 {
			continue
		}
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("cache invalidate %s: %w", ns, err)
		}
	}
	return nil
}

func (c *redisCache) Close() error {
	return c.client.Close()
}

// Noop is the cache used when Redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, string, string, any) (bool, error) { return false, nil }
func (Noop) Set(context.Context, string, string, any) error          { return nil }
func (Noop) Invalidate(context.Context, ...string) error             { return nil }
func (Noop) Close() error                                            { return nil }
