// Package cache keeps short-lived discovery results, such as the last
// address the paired control panel was found at, so a watcher restart or a
// second process does not have to wait for a fresh mDNS scan.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache stores JSON-compatible values under string keys with a TTL.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, target interface{}) error
	Delete(ctx context.Context, key string) error
}

// MemoryCache is the in-process store the discovery watcher uses by default.
type MemoryCache struct {
	entries *gocache.Cache
}

// NewMemoryCache uses ttl for entries stored without one and sweeps expired
// entries every cleanup.
func NewMemoryCache(ttl, cleanup time.Duration) *MemoryCache {
	return &MemoryCache{entries: gocache.New(ttl, cleanup)}
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	m.entries.Set(key, value, ttl)
	return nil
}

// Get copies the stored value into target, so the watcher never shares a
// ServerInfo with another caller.
func (m *MemoryCache) Get(_ context.Context, key string, target interface{}) error {
	v, ok := m.entries.Get(key)
	if !ok {
		return ErrMiss
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.entries.Delete(key)
	return nil
}
