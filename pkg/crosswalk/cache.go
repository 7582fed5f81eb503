package crosswalk

import (
	"context"
	"sync"
	"time"

	"github.com/uruley/4HorsemenDFS/pkg/models"
)

// AliasCache is an explicit, invalidatable read-through cache over alias
// lookups, keyed by (source, normalized name). It is never consulted as
// ambient state: the SQL store owns it, populates it on misses, and
// invalidates it on every alias write, which keeps resolution deterministic.
type AliasCache interface {
	// Get returns the cached hits and whether the key was present. An empty
	// cached slice is a valid entry (a remembered miss).
	Get(ctx context.Context, sourceName, normalizedName string) ([]models.AliasHit, bool, error)

	// Set stores the hits for a key.
	Set(ctx context.Context, sourceName, normalizedName string, hits []models.AliasHit) error

	// Invalidate drops a single key.
	Invalidate(ctx context.Context, sourceName, normalizedName string) error

	// InvalidateAll drops everything. Used after merges and archival, which
	// can repoint aliases across many keys at once.
	InvalidateAll(ctx context.Context) error
}

// memoryCacheEntry holds cached hits and their expiry.
type memoryCacheEntry struct {
	hits      []models.AliasHit
	expiresAt time.Time
}

// MemoryAliasCache is a process-local AliasCache with TTL expiry.
type MemoryAliasCache struct {
	mu      sync.RWMutex
	entries map[string]memoryCacheEntry
	ttl     time.Duration
}

// NewMemoryAliasCache creates a MemoryAliasCache. A zero ttl means entries
// never expire and live until invalidated.
func NewMemoryAliasCache(ttl time.Duration) *MemoryAliasCache {
	return &MemoryAliasCache{
		entries: make(map[string]memoryCacheEntry),
		ttl:     ttl,
	}
}

func (c *MemoryAliasCache) Get(ctx context.Context, sourceName, normalizedName string) ([]models.AliasHit, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[mapKey(sourceName, normalizedName)]
	c.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.Invalidate(ctx, sourceName, normalizedName)
		return nil, false, nil
	}

	hits := make([]models.AliasHit, len(entry.hits))
	copy(hits, entry.hits)
	return hits, true, nil
}

func (c *MemoryAliasCache) Set(ctx context.Context, sourceName, normalizedName string, hits []models.AliasHit) error {
	entry := memoryCacheEntry{hits: make([]models.AliasHit, len(hits))}
	copy(entry.hits, hits)
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[mapKey(sourceName, normalizedName)] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryAliasCache) Invalidate(ctx context.Context, sourceName, normalizedName string) error {
	c.mu.Lock()
	delete(c.entries, mapKey(sourceName, normalizedName))
	c.mu.Unlock()
	return nil
}

func (c *MemoryAliasCache) InvalidateAll(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]memoryCacheEntry)
	c.mu.Unlock()
	return nil
}
