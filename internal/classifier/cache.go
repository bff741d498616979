package classifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// DefaultCacheTTL is how long a merchant mapping stays cached.
const DefaultCacheTTL = 7 * 24 * time.Hour

// MerchantCache remembers which category a user's merchant belongs to.
type MerchantCache interface {
	Get(ctx context.Context, userID int64, merchant string) (model.MerchantMapping, bool, error)
	Set(ctx context.Context, mapping model.MerchantMapping) error
}

func cacheKey(userID int64, merchant string) string {
	return fmt.Sprintf("merchant:%d:%s", userID, merchant)
}

type cacheEntry struct {
	expiry  time.Time
	mapping model.MerchantMapping
}

// MemoryCache is a process-local MerchantCache with per-entry expiry.
type MemoryCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
	once    sync.Once
}

// NewMemoryCache creates a cache with the given TTL and starts its cleanup
// goroutine. Call Close to stop it.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	cache := &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// Get returns the unexpired mapping for the user's merchant.
func (c *MemoryCache) Get(_ context.Context, userID int64, merchant string) (model.MerchantMapping, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[cacheKey(userID, merchant)]
	if !exists || time.Now().After(entry.expiry) {
		return model.MerchantMapping{}, false, nil
	}

	return entry.mapping, true, nil
}

// Set stores a mapping. A classifier mapping never replaces a user one.
func (c *MemoryCache) Set(_ context.Context, mapping model.MerchantMapping) error {
	if err := mapping.Validate(); err != nil {
		return fmt.Errorf("invalid merchant mapping: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(mapping.UserID, mapping.MerchantNormalized)
	now := time.Now()
	if existing, ok := c.entries[key]; ok && now.Before(existing.expiry) &&
		existing.mapping.Source == model.SourceUser && mapping.Source != model.SourceUser {
		return nil
	}

	c.entries[key] = cacheEntry{
		mapping: mapping,
		expiry:  now.Add(c.ttl),
	}
	return nil
}

// cleanup periodically removes expired entries.
func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Len returns the number of entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stopCh) })
}

// Layered consults a fast front cache before a durable back one and
// back-fills the front on a back hit. Writes go to both.
type Layered struct {
	front MerchantCache
	back  MerchantCache
}

// NewLayered creates a two-level cache.
func NewLayered(front, back MerchantCache) *Layered {
	return &Layered{front: front, back: back}
}

// Get implements MerchantCache.
func (l *Layered) Get(ctx context.Context, userID int64, merchant string) (model.MerchantMapping, bool, error) {
	m, ok, err := l.front.Get(ctx, userID, merchant)
	if err == nil && ok {
		return m, true, nil
	}

	m, ok, err = l.back.Get(ctx, userID, merchant)
	if err != nil || !ok {
		return model.MerchantMapping{}, false, err
	}

	_ = l.front.Set(ctx, m)
	return m, true, nil
}

// Set implements MerchantCache. The front layer receives whatever the back
// layer kept, so a user mapping held only by the back layer is not shadowed
// by a classifier write.
func (l *Layered) Set(ctx context.Context, mapping model.MerchantMapping) error {
	if err := l.back.Set(ctx, mapping); err != nil {
		return err
	}
	if mapping.Source != model.SourceUser {
		if kept, ok, err := l.back.Get(ctx, mapping.UserID, mapping.MerchantNormalized); err == nil && ok {
			mapping = kept
		}
	}
	return l.front.Set(ctx, mapping)
}
