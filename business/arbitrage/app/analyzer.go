package app

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	marketApp "github.com/fd1az/arbitrage-sequences/business/market/app"
	marketDomain "github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/internal/apperror"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
)

// DefaultMaxSearchIterations caps the volume search of one cycle.
const DefaultMaxSearchIterations = 1000

var (
	searchShrink  = decimal.NewFromInt(10)
	minStepFactor = decimal.RequireFromString("0.001")
)

// AnalyzerConfig holds configuration for the sequence analyzer.
type AnalyzerConfig struct {
	Workers             int // 0 = NumCPU
	MaxSearchIterations int
}

// AnalysisStats counts the outcome of one analysis pass.
type AnalysisStats struct {
	Cycles       int
	Evaluated    int
	Profitable   int
	NotEvaluable int
}

// Analyzer prices every cycle of a catalogue against the depth cache.
type Analyzer struct {
	config AnalyzerConfig
	logger logger.LoggerInterface
	now    func() time.Time
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer(cfg AnalyzerConfig, log logger.LoggerInterface) *Analyzer {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.MaxSearchIterations <= 0 {
		cfg.MaxSearchIterations = DefaultMaxSearchIterations
	}
	return &Analyzer{config: cfg, logger: log, now: time.Now}
}

// Analyze evaluates cycles of exchange in parallel. A cycle that cannot be
// priced is marked not evaluable and never fails the pass, only context
// cancellation does.
func (a *Analyzer) Analyze(ctx context.Context, exchange string, cycles []*domain.Cycle, depths marketApp.DepthReader, fees marketApp.FeeQuoter) (AnalysisStats, error) {
	var evaluated, profitable, skipped atomic.Int64

	err := runPool(ctx, a.config.Workers, NewDistributor(cycles), func(ctx context.Context, c *domain.Cycle, _ int) error {
		e, err := a.Evaluate(ctx, exchange, c, depths, fees)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			skipped.Add(1)
			return nil
		}
		evaluated.Add(1)
		if e.Profitable() {
			profitable.Add(1)
		}
		return nil
	})

	return AnalysisStats{
		Cycles:       len(cycles),
		Evaluated:    int(evaluated.Load()),
		Profitable:   int(profitable.Load()),
		NotEvaluable: int(skipped.Load()),
	}, err
}

// Evaluate prices one cycle and stores the result on it.
func (a *Analyzer) Evaluate(ctx context.Context, exchange string, c *domain.Cycle, depths marketApp.DepthReader, fees marketApp.FeeQuoter) (domain.Evaluation, error) {
	if !c.Active() {
		c.SetEvaluation(domain.NotEvaluated())
		return domain.NotEvaluated(), apperror.New(apperror.CodeComputationInfeasible,
			apperror.WithContext(c.Key()+": inactive"))
	}

	books, err := cycleDepths(exchange, c, depths)
	if err != nil {
		c.MarkNotEvaluable()
		return domain.NotEvaluated(), err
	}

	output, base, err := a.baseline(ctx, c, books, fees)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeFeeCurrencyMismatch) {
			a.logger.Error(ctx, "fee currency mismatch", "cycle", c.Key(), "error", err)
		}
		c.MarkNotEvaluable()
		return domain.NotEvaluated(), err
	}

	e := domain.Evaluation{
		IndicatorOutput: output,
		TradeAmount:     decimal.Zero,
		TradeProfit:     decimal.Zero,
		At:              a.now(),
	}

	if output.GreaterThan(domain.IndicatorInput) {
		seedProfit := base.Mul(output).Div(domain.IndicatorInput).Sub(base)
		e.TradeAmount, e.TradeProfit, err = a.search(ctx, c, books, fees, base, seedProfit)
		if err != nil {
			return domain.NotEvaluated(), err
		}
	}

	c.SetEvaluation(e)
	return e, nil
}

// cycleDepths returns the cached book of every hop, failing when a required side is empty.
func cycleDepths(exchange string, c *domain.Cycle, depths marketApp.DepthReader) ([]*marketDomain.Depth, error) {
	books := make([]*marketDomain.Depth, c.Len())
	for i := 0; i < c.Len(); i++ {
		hop := c.Hop(i)
		depth, ok := depths.Depth(exchange, hop.Pair)
		if !ok || !depth.HasSide(hop.Side) {
			return nil, apperror.New(apperror.CodeComputationInfeasible,
				apperror.WithContext(c.Key()+": no "+hop.Side.String()+" depth for "+hop.Pair.String()))
		}
		books[i] = depth
	}
	return books, nil
}

// baseline pushes the nominal input through the best level of every hop. It
// returns the output and the largest input every first level can carry.
func (a *Analyzer) baseline(ctx context.Context, c *domain.Cycle, books []*marketDomain.Depth, fees marketApp.FeeQuoter) (decimal.Decimal, decimal.Decimal, error) {
	amount := domain.IndicatorInput
	var scale decimal.Decimal

	for i, depth := range books {
		hop := c.Hop(i)
		best, _ := depth.BestOrder(hop.Side)
		capacity, _ := depth.BestCapacity(hop.Side)

		ratio := capacity.Div(amount)
		if i == 0 || ratio.LessThan(scale) {
			scale = ratio
		}

		out, _, err := convert(ctx, fees, hop, best.Price, amount)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		if !out.IsPositive() {
			return decimal.Zero, decimal.Zero, apperror.New(apperror.CodeComputationInfeasible,
				apperror.WithContext(c.Key()+": fees exceed amount at "+hop.String()))
		}
		amount = out
	}

	return amount, domain.IndicatorInput.Mul(scale), nil
}

// search walks the input amount up from base while profit improves, shrinking
// the step tenfold on every miss. It is a local search, profit is not
// unimodal in the amount once deeper levels are reached.
func (a *Analyzer) search(ctx context.Context, c *domain.Cycle, books []*marketDomain.Depth, fees marketApp.FeeQuoter, base, seedProfit decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	best, bestProfit := base, seedProfit
	step := base
	minStep := base.Mul(minStepFactor)

	for i := 0; i < a.config.MaxSearchIterations && step.GreaterThanOrEqual(minStep) && step.IsPositive(); i++ {
		if err := ctx.Err(); err != nil {
			return decimal.Zero, decimal.Zero, err
		}

		candidate := best.Add(step)
		profit, ok := a.profit(ctx, c, books, fees, candidate)
		if ok && profit.GreaterThan(bestProfit) {
			best, bestProfit = candidate, profit
			continue
		}
		step = step.Div(searchShrink)
	}

	return best, bestProfit, nil
}

// profit returns the gain of pushing amount through the full depth of every hop.
func (a *Analyzer) profit(ctx context.Context, c *domain.Cycle, books []*marketDomain.Depth, fees marketApp.FeeQuoter, amount decimal.Decimal) (decimal.Decimal, bool) {
	running := amount
	for i, depth := range books {
		hop := c.Hop(i)
		price, ok := depth.PriceForAmount(hop.Side, running)
		if !ok {
			return decimal.Zero, false
		}
		out, _, err := convert(ctx, fees, hop, price, running)
		if err != nil || !out.IsPositive() {
			return decimal.Zero, false
		}
		running = out
	}
	return running.Sub(amount), true
}
