package bybit

import (
	"sync"
	"time"

	"github.com/sirily11/bybit-backtest/internal/types"
)

// DefaultCacheTTL is how long a kline response stays fresh. Historical
// candles never change, so the TTL only bounds memory growth.
const DefaultCacheTTL = time.Hour

type cacheEntry struct {
	candles   []types.Candle
	expiresAt time.Time
}

// responseCache is a TTL cache keyed by the request parameters. It is safe
// for concurrent use.
type responseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *responseCache) get(key string) ([]types.Candle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}

	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}

	return entry.candles, true
}

func (c *responseCache) set(key string, candles []types.Candle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		candles:   candles,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *responseCache) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
}
