// Package cache provides a Redis-backed read-through cache for
// document snapshots.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"inkwell/core/internal/doc"

	"github.com/redis/go-redis/v9"
)

// DocumentCache keeps recently loaded document snapshots in Redis so
// repeated reads skip Postgres. Entries are invalidated on every apply.
type DocumentCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewDocumentCache connects to Redis and verifies the connection.
func NewDocumentCache(redisURL string, ttl time.Duration) (*DocumentCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewDocumentCacheWithClient(client, ttl), nil
}

// NewDocumentCacheWithClient builds a cache over an existing client.
func NewDocumentCacheWithClient(client *redis.Client, ttl time.Duration) *DocumentCache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &DocumentCache{
		client: client,
		prefix: "doc:",
		ttl:    ttl,
	}
}

func (c *DocumentCache) key(documentID string) string {
	return c.prefix + documentID
}

// Get returns the cached snapshot, or nil when the entry is missing or
// expired.
func (c *DocumentCache) Get(ctx context.Context, documentID string) (*doc.Document, error) {
	jsonData, err := c.client.Get(ctx, c.key(documentID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached document: %w", err)
	}

	var document doc.Document
	if err := json.Unmarshal([]byte(jsonData), &document); err != nil {
		return nil, fmt.Errorf("unmarshal cached document: %w", err)
	}
	return &document, nil
}

// Set stores a snapshot under the configured TTL.
func (c *DocumentCache) Set(ctx context.Context, document doc.Document) error {
	jsonData, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := c.client.Set(ctx, c.key(document.ID), jsonData, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache document: %w", err)
	}
	return nil
}

// Invalidate drops the cached snapshot after an apply.
func (c *DocumentCache) Invalidate(ctx context.Context, documentID string) error {
	if err := c.client.Del(ctx, c.key(documentID)).Err(); err != nil {
		return fmt.Errorf("invalidate cached document: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *DocumentCache) Close() error {
	return c.client.Close()
}

// Ping checks if Redis is reachable.
func (c *DocumentCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
