// Package app contains the sequence engine services and port definitions for the arbitrage context.
package app

import (
	"context"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
)

// OpportunityObserver receives the opportunity log.
type OpportunityObserver interface {
	// OnOpportunity is called once for every cycle that became profitable in a tick.
	OnOpportunity(ctx context.Context, opp domain.Opportunity)
}

// TickObserver receives a summary after every completed poll.
type TickObserver interface {
	OnTick(ctx context.Context, report domain.TickReport)
}

// OrderExecutor submits generated orders to an order book.
type OrderExecutor interface {
	Submit(ctx context.Context, orders []domain.Order) error
}

// OpportunityObserverFunc adapts a function to OpportunityObserver.
type OpportunityObserverFunc func(ctx context.Context, opp domain.Opportunity)

// OnOpportunity calls f.
func (f OpportunityObserverFunc) OnOpportunity(ctx context.Context, opp domain.Opportunity) {
	f(ctx, opp)
}

// TickObserverFunc adapts a function to TickObserver.
type TickObserverFunc func(ctx context.Context, report domain.TickReport)

// OnTick calls f.
func (f TickObserverFunc) OnTick(ctx context.Context, report domain.TickReport) {
	f(ctx, report)
}
