package app

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	marketDomain "github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
)

// DefaultMaxExtensions is the number of hops added to a seed hop.
const DefaultMaxExtensions = 4

// GeneratorConfig holds configuration for the sequence generator.
type GeneratorConfig struct {
	MaxExtensions int // 0 = DefaultMaxExtensions
	Workers       int // 0 = NumCPU+1
}

// Generator enumerates every conversion cycle of an exchange's pairs.
type Generator struct {
	config GeneratorConfig
	logger logger.LoggerInterface
}

// NewGenerator creates a new Generator.
func NewGenerator(cfg GeneratorConfig, log logger.LoggerInterface) *Generator {
	if cfg.MaxExtensions <= 0 {
		cfg.MaxExtensions = DefaultMaxExtensions
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU() + 1
	}
	return &Generator{config: cfg, logger: log}
}

// MaxHops returns the longest cycle the generator builds.
func (g *Generator) MaxHops() int {
	return g.config.MaxExtensions + 1
}

// shard collects the cycles seeded from one pair.
type shard struct {
	mu     sync.Mutex
	cycles []*domain.Cycle
}

// add inserts c unless an equal cycle is already present.
func (s *shard) add(c *domain.Cycle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.cycles {
		if existing.Equal(c) {
			return false
		}
	}
	s.cycles = append(s.cycles, c)
	return true
}

// Generate returns every distinct cycle of at most MaxHops hops on pairs.
// Cycles are ordered by the index of their first pair, then by discovery.
func (g *Generator) Generate(ctx context.Context, exchange string, pairs []marketDomain.Pair) ([]*domain.Cycle, error) {
	started := time.Now()
	pairs = uniquePairs(pairs)
	if len(pairs) == 0 {
		return nil, nil
	}

	adjacency := make(map[currency.Code][]marketDomain.Pair)
	for _, p := range pairs {
		adjacency[p.Traded] = append(adjacency[p.Traded], p)
		adjacency[p.Payment] = append(adjacency[p.Payment], p)
	}

	shards := make([]shard, len(pairs))
	b := &builder{exchange: exchange, maxHops: g.MaxHops(), adjacency: adjacency}

	err := runPool(ctx, g.config.Workers, NewDistributor(pairs), func(ctx context.Context, p marketDomain.Pair, i int) error {
		for _, side := range []marketDomain.Side{marketDomain.SideBuy, marketDomain.SideSell} {
			if err := ctx.Err(); err != nil {
				return err
			}
			b.seed(domain.NewHop(exchange, p, side), &shards[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var cycles []*domain.Cycle
	for i := range shards {
		cycles = append(cycles, shards[i].cycles...)
	}

	g.logger.Debug(ctx, "sequences generated",
		"exchange", exchange,
		"pairs", len(pairs),
		"cycles", len(cycles),
		"max_hops", g.MaxHops(),
		"duration", time.Since(started))

	return cycles, nil
}

func uniquePairs(pairs []marketDomain.Pair) []marketDomain.Pair {
	seen := make(map[marketDomain.Pair]struct{}, len(pairs))
	out := make([]marketDomain.Pair, 0, len(pairs))
	for _, p := range pairs {
		if p.Traded == "" || p.Payment == "" || p.Traded == p.Payment {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// builder holds the read-only inputs shared by all workers of one pass.
type builder struct {
	exchange  string
	maxHops   int
	adjacency map[currency.Code][]marketDomain.Pair
}

// branch is the state of one depth-first extension. It is owned by one worker.
type branch struct {
	start    currency.Code
	hops     []domain.Hop
	pairs    map[marketDomain.Pair]struct{}
	produced map[currency.Code]struct{}
}

func (b *builder) seed(first domain.Hop, out *shard) {
	br := &branch{
		start:    first.Consumes(),
		hops:     make([]domain.Hop, 0, b.maxHops),
		pairs:    make(map[marketDomain.Pair]struct{}, b.maxHops),
		produced: make(map[currency.Code]struct{}, b.maxHops),
	}
	b.push(br, first)
	b.extend(br, out)
}

func (b *builder) push(br *branch, h domain.Hop) {
	br.hops = append(br.hops, h)
	br.pairs[h.Pair] = struct{}{}
	br.produced[h.Produces()] = struct{}{}
}

func (b *builder) pop(br *branch) {
	h := br.hops[len(br.hops)-1]
	br.hops = br.hops[:len(br.hops)-1]
	delete(br.pairs, h.Pair)
	delete(br.produced, h.Produces())
}

func (b *builder) extend(br *branch, out *shard) {
	end := br.hops[len(br.hops)-1].Produces()
	if end == br.start {
		if c, err := domain.NewCycle(br.hops...); err == nil {
			out.add(c)
		}
		return
	}
	if len(br.hops) >= b.maxHops {
		return
	}

	for _, p := range b.adjacency[end] {
		if _, used := br.pairs[p]; used {
			continue
		}
		next := domain.NewHop(b.exchange, p, p.SideConsuming(end))
		produced := next.Produces()
		if _, seen := br.produced[produced]; seen && produced != br.start {
			continue
		}
		b.push(br, next)
		b.extend(br, out)
		b.pop(br)
	}
}
