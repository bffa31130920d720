package app

import (
	"sort"
	"sync"
	"time"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	marketDomain "github.com/fd1az/arbitrage-sequences/business/market/domain"
)

// Catalogue holds the generated cycles of one exchange and the pair set they were built from.
type Catalogue struct {
	exchange string

	mu          sync.RWMutex
	pairs       []marketDomain.Pair
	cycles      []*domain.Cycle
	byKey       map[string]*domain.Cycle
	generatedAt time.Time
}

// NewCatalogue creates an empty catalogue.
func NewCatalogue(exchange string) *Catalogue {
	return &Catalogue{exchange: exchange, byKey: map[string]*domain.Cycle{}}
}

// Exchange returns the exchange of the catalogue.
func (c *Catalogue) Exchange() string {
	return c.exchange
}

// Replace swaps in a freshly generated catalogue.
func (c *Catalogue) Replace(pairs []marketDomain.Pair, cycles []*domain.Cycle) {
	byKey := make(map[string]*domain.Cycle, len(cycles))
	for _, cy := range cycles {
		byKey[cy.Key()] = cy
	}

	c.mu.Lock()
	c.pairs = sortedPairs(pairs)
	c.cycles = cycles
	c.byKey = byKey
	c.generatedAt = time.Now()
	c.mu.Unlock()
}

// Generated reports whether the catalogue was built at least once.
func (c *Catalogue) Generated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.generatedAt.IsZero()
}

// GeneratedAt returns when the catalogue was last rebuilt.
func (c *Catalogue) GeneratedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generatedAt
}

// SamePairs reports whether pairs equals the pair set of the catalogue.
func (c *Catalogue) SamePairs(pairs []marketDomain.Pair) bool {
	sorted := sortedPairs(pairs)

	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(sorted) != len(c.pairs) {
		return false
	}
	for i := range sorted {
		if sorted[i] != c.pairs[i] {
			return false
		}
	}
	return true
}

// Pairs returns the pair set of the catalogue.
func (c *Catalogue) Pairs() []marketDomain.Pair {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]marketDomain.Pair(nil), c.pairs...)
}

// Cycles returns the cycles. The slice is a copy, the cycles are shared.
func (c *Catalogue) Cycles() []*domain.Cycle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*domain.Cycle(nil), c.cycles...)
}

// Len returns the number of cycles.
func (c *Catalogue) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cycles)
}

// Find returns the cycle with key.
func (c *Catalogue) Find(key string) (*domain.Cycle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cy, ok := c.byKey[key]
	return cy, ok
}

// Snapshots returns a read-only copy of every cycle.
func (c *Catalogue) Snapshots() []domain.CycleSnapshot {
	cycles := c.Cycles()
	out := make([]domain.CycleSnapshot, len(cycles))
	for i, cy := range cycles {
		out[i] = cy.Snapshot()
	}
	return out
}

func sortedPairs(pairs []marketDomain.Pair) []marketDomain.Pair {
	out := uniquePairs(pairs)
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// TopByIndicator returns up to n evaluable snapshots, highest indicator output first.
func TopByIndicator(snapshots []domain.CycleSnapshot, n int) []domain.CycleSnapshot {
	out := make([]domain.CycleSnapshot, 0, len(snapshots))
	for _, s := range snapshots {
		if s.Active && !s.IndicatorOutput.Equal(domain.NotEvaluable) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IndicatorOutput.GreaterThan(out[j].IndicatorOutput)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
