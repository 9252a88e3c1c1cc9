// Package memcache is the in-process domain.Cache used when no redis is configured.
package memcache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"review_sentiment/internal/adapters/observability"
)

type Cache struct{ c *gocache.Cache }

func New(defaultTTL time.Duration) *Cache {
	return &Cache{c: gocache.New(defaultTTL, 2*defaultTTL)}
}

// Values are stored as JSON so callers get the same copy semantics as redis.
func (m *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		observability.ObserveCache("memory", "miss")
		return false, nil
	}
	observability.ObserveCache("memory", "hit")
	return true, json.Unmarshal(v.([]byte), dst)
}

func (m *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ttl := gocache.DefaultExpiration
	if ttlSec > 0 {
		ttl = time.Duration(ttlSec) * time.Second
	}
	observability.ObserveCache("memory", "set")
	m.c.Set(key, b, ttl)
	return nil
}

func (m *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache("memory", "del")
	m.c.Delete(key)
	return nil
}

func (m *Cache) Len() int { return m.c.ItemCount() }
