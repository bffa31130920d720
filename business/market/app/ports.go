// Package app contains the market data ports and the shared depth cache.
package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/business/market/domain"
)

// ExchangeAdapter is the capability set the engine needs from one exchange.
// Every method may fail with an apperror carrying CodeDataUnavailable when the
// exchange is unreachable.
type ExchangeAdapter interface {
	// Name is the exchange identifier used as the catalogue key.
	Name() string

	// ListSupportedPairs returns the pairs currently tradable on the exchange.
	ListSupportedPairs(ctx context.Context) ([]domain.Pair, error)

	// FetchDepth returns a fresh order-book snapshot for pair.
	FetchDepth(ctx context.Context, pair domain.Pair) (*domain.Depth, error)

	// FeeForOrder returns the fee a hypothetical order would pay. amount is in traded units.
	FeeForOrder(ctx context.Context, side domain.Side, price decimal.Decimal, pair domain.Pair, amount decimal.Decimal) (domain.Fee, error)

	// AccountBalances returns the holdings of account.
	AccountBalances(ctx context.Context, account string) ([]domain.Balance, error)
}

// BatchDepthFetcher is implemented by adapters that can fetch many books in one call.
// Pairs missing from the result are treated as failed.
type BatchDepthFetcher interface {
	FetchDepths(ctx context.Context, pairs []domain.Pair) (map[domain.Pair]*domain.Depth, error)
}

// FeeQuoter is the subset of ExchangeAdapter used by the analyzer and order generator.
type FeeQuoter interface {
	FeeForOrder(ctx context.Context, side domain.Side, price decimal.Decimal, pair domain.Pair, amount decimal.Decimal) (domain.Fee, error)
}

// DepthReader reads the latest cached snapshot of a pair.
type DepthReader interface {
	Depth(exchange string, pair domain.Pair) (*domain.Depth, bool)
}

// Connector is implemented by adapters holding a streaming connection.
type Connector interface {
	Connect(ctx context.Context) error
	Close() error
}
