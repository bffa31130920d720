// Package di contains dependency injection tokens for the market context.
package di

import (
	"github.com/fd1az/arbitrage-sequences/business/market/app"
	"github.com/fd1az/arbitrage-sequences/internal/di"
)

// Public service tokens - exposed to other modules
var (
	DepthCache = di.NewToken[*app.DepthCache]("market.DepthCache")
	Adapters   = di.NewToken[map[string]app.ExchangeAdapter]("market.Adapters")
)

// Helper functions for type-safe access
func GetDepthCache(c di.ServiceRegistry) *app.DepthCache {
	return di.GetToken(c, DepthCache)
}

func GetAdapters(c di.ServiceRegistry) map[string]app.ExchangeAdapter {
	return di.GetToken(c, Adapters)
}
