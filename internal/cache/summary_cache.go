// Package cache keeps per-tenant record summaries in Redis so the admin
// overview does not rescan every tenant on each request.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rpattn/ctedash/internal/domain"
)

// Config holds Redis connection configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// SummaryCache stores domain.Summary values keyed by tenant.
type SummaryCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Connect dials Redis and verifies the connection.
func Connect(ctx context.Context, cfg Config) (*SummaryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewSummaryCache(client, cfg.Prefix, cfg.TTL), nil
}

// NewSummaryCache wraps an existing client. A zero ttl keeps entries until
// they are invalidated.
func NewSummaryCache(client *redis.Client, prefix string, ttl time.Duration) *SummaryCache {
	if prefix == "" {
		prefix = "ctedash:"
	}
	return &SummaryCache{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the cached summary; ok is false on a miss.
func (c *SummaryCache) Get(ctx context.Context, tenant domain.TenantID) (domain.Summary, bool, error) {
	payload, err := c.client.Get(ctx, c.key(tenant)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Summary{}, false, nil
	}
	if err != nil {
		return domain.Summary{}, false, fmt.Errorf("redis get: %w", err)
	}

	var summary domain.Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return domain.Summary{}, false, fmt.Errorf("decode cached summary: %w", err)
	}
	return summary, true, nil
}

// Set stores the summary of tenant.
func (c *SummaryCache) Set(ctx context.Context, tenant domain.TenantID, summary domain.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := c.client.Set(ctx, c.key(tenant), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary of tenant.
func (c *SummaryCache) Invalidate(ctx context.Context, tenant domain.TenantID) error {
	if err := c.client.Del(ctx, c.key(tenant)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *SummaryCache) Close() error {
	return c.client.Close()
}

func (c *SummaryCache) key(tenant domain.TenantID) string {
	return c.prefix + "summary:" + tenant.String()
}
