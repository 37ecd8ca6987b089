// Package viewcache provides an in-process ViewCache for single-node and dev runs.
package viewcache

import (
	"context"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/vaultline/session-engine/internal/domain/views"
)

const defaultTTL = 5 * time.Minute

// Memory caches read-views in process. Entries are stored as "<key>#<variant>" so
// Invalidate can drop every variant of a key.
type Memory struct {
	cache *ttlcache.Cache[string, []byte]
}

// NewMemory creates a memory view cache. ttl <= 0 uses the default.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Memory{
		cache: ttlcache.New[string, []byte](
			ttlcache.WithTTL[string, []byte](ttl),
			ttlcache.WithDisableTouchOnHit[string, []byte](),
		),
	}
}

func entryKey(key views.ViewKey, variant string) string {
	return string(key) + "#" + variant
}

func (m *Memory) Get(_ context.Context, key views.ViewKey, variant string) ([]byte, bool, error) {
	item := m.cache.Get(entryKey(key, variant))
	if item == nil || item.IsExpired() {
		return nil, false, nil
	}
	return append([]byte(nil), item.Value()...), true, nil
}

func (m *Memory) Set(_ context.Context, key views.ViewKey, variant string, value []byte) error {
	m.cache.Set(entryKey(key, variant), append([]byte(nil), value...), ttlcache.DefaultTTL)
	return nil
}

// Invalidate drops every variant cached under key.
func (m *Memory) Invalidate(_ context.Context, key views.ViewKey) error {
	prefix := string(key) + "#"
	for _, k := range m.cache.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.cache.Delete(k)
		}
	}
	return nil
}

// Purge removes expired entries; callers may run it periodically.
func (m *Memory) Purge() {
	m.cache.DeleteExpired()
}

// Len reports how many entries are held, expired ones included until purged.
func (m *Memory) Len() int {
	return m.cache.Len()
}
