package app

import (
	"sync"
	"time"

	"github.com/fd1az/arbitrage-sequences/business/market/domain"
)

type exchangeDepths struct {
	mu      sync.RWMutex
	depths  map[domain.Pair]*domain.Depth
	updated time.Time
}

// DepthCache holds the latest order-book snapshot per exchange and pair.
// Entries are replaced wholesale, readers never observe a half-written book.
type DepthCache struct {
	mu        sync.RWMutex
	exchanges map[string]*exchangeDepths
}

// NewDepthCache creates an empty cache.
func NewDepthCache() *DepthCache {
	return &DepthCache{exchanges: make(map[string]*exchangeDepths)}
}

func (c *DepthCache) exchange(name string, create bool) *exchangeDepths {
	c.mu.RLock()
	ex, ok := c.exchanges[name]
	c.mu.RUnlock()
	if ok || !create {
		return ex
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if ex, ok = c.exchanges[name]; !ok {
		ex = &exchangeDepths{depths: make(map[domain.Pair]*domain.Depth)}
		c.exchanges[name] = ex
	}
	return ex
}

// Put replaces the snapshot of depth.Pair on exchange.
func (c *DepthCache) Put(exchange string, depth *domain.Depth) {
	if depth == nil {
		return
	}
	ex := c.exchange(exchange, true)
	ex.mu.Lock()
	ex.depths[depth.Pair] = depth
	ex.updated = time.Now()
	ex.mu.Unlock()
}

// PutAll replaces several snapshots under one lock.
func (c *DepthCache) PutAll(exchange string, depths map[domain.Pair]*domain.Depth) {
	if len(depths) == 0 {
		return
	}
	ex := c.exchange(exchange, true)
	ex.mu.Lock()
	for pair, depth := range depths {
		if depth != nil {
			ex.depths[pair] = depth
		}
	}
	ex.updated = time.Now()
	ex.mu.Unlock()
}

// Depth returns the cached snapshot of pair on exchange.
func (c *DepthCache) Depth(exchange string, pair domain.Pair) (*domain.Depth, bool) {
	ex := c.exchange(exchange, false)
	if ex == nil {
		return nil, false
	}
	ex.mu.RLock()
	depth, ok := ex.depths[pair]
	ex.mu.RUnlock()
	return depth, ok
}

// Pairs returns the cached pairs of exchange.
func (c *DepthCache) Pairs(exchange string) []domain.Pair {
	ex := c.exchange(exchange, false)
	if ex == nil {
		return nil
	}
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	pairs := make([]domain.Pair, 0, len(ex.depths))
	for p := range ex.depths {
		pairs = append(pairs, p)
	}
	return pairs
}

// Retain drops cached pairs of exchange that are not in keep.
func (c *DepthCache) Retain(exchange string, keep []domain.Pair) {
	ex := c.exchange(exchange, false)
	if ex == nil {
		return
	}
	set := make(map[domain.Pair]struct{}, len(keep))
	for _, p := range keep {
		set[p] = struct{}{}
	}
	ex.mu.Lock()
	for p := range ex.depths {
		if _, ok := set[p]; !ok {
			delete(ex.depths, p)
		}
	}
	ex.mu.Unlock()
}

// Updated returns when exchange last received a snapshot.
func (c *DepthCache) Updated(exchange string) time.Time {
	ex := c.exchange(exchange, false)
	if ex == nil {
		return time.Time{}
	}
	ex.mu.RLock()
	defer ex.mu.RUnlock()
	return ex.updated
}

// Clear removes every snapshot of exchange.
func (c *DepthCache) Clear(exchange string) {
	c.mu.Lock()
	delete(c.exchanges, exchange)
	c.mu.Unlock()
}
