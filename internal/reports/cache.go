package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores compiled reports in redis. A nil *Cache is a no-op, so
// the compiler runs uncached when redis is not configured.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func reportKey(kind string, year int) string {
	return fmt.Sprintf("report:%s:%d", kind, year)
}

func (c *Cache) get(ctx context.Context, key string, v any) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (c *Cache) set(ctx context.Context, key string, v any) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, c.ttl)
}

// Invalidate drops every cached report for a year; called after ledger
// mutations and year-end runs.
func (c *Cache) Invalidate(ctx context.Context, year int) {
	if c == nil || c.client == nil {
		return
	}
	for _, kind := range []string{"pl", "bs", "monthly", "summary"} {
		c.client.Del(ctx, reportKey(kind, year))
	}
}
