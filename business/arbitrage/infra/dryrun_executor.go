package infra

import (
	"context"
	"sync/atomic"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/app"
	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
)

var _ app.OrderExecutor = (*DryRunExecutor)(nil)

// DryRunExecutor logs order chains instead of placing them.
type DryRunExecutor struct {
	logger    logger.LoggerInterface
	submitted atomic.Int64
}

// NewDryRunExecutor creates a new DryRunExecutor.
func NewDryRunExecutor(log logger.LoggerInterface) *DryRunExecutor {
	return &DryRunExecutor{logger: log}
}

// Submit logs every order of the chain.
func (e *DryRunExecutor) Submit(ctx context.Context, orders []domain.Order) error {
	for i, o := range orders {
		e.logger.Info(ctx, "dry-run order",
			"step", i+1,
			"id", o.ID.String(),
			"depends_on", dependency(o),
			"exchange", o.Exchange,
			"account", o.Account,
			"side", o.Side.String(),
			"pair", o.Pair.String(),
			"price", o.Price.String(),
			"amount", o.Amount.String())
	}
	e.submitted.Add(1)
	return nil
}

// Submitted returns how many chains were submitted.
func (e *DryRunExecutor) Submitted() int64 {
	return e.submitted.Load()
}

func dependency(o domain.Order) string {
	if !o.HasDependency() {
		return ""
	}
	return o.DependsOn.String()
}
