// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/arbitrage-sequences/business/arbitrage/app"
	"github.com/fd1az/arbitrage-sequences/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Controller = di.NewToken[*app.Controller]("arbitrage.Controller")
)

// Private dependency tokens - internal to arbitrage module
var (
	Executor = di.NewToken[app.OrderExecutor]("arbitrage:executor")
	Trader   = di.NewToken[*app.Trader]("arbitrage:trader")
)

// Helper functions for type-safe access
func GetController(c di.ServiceRegistry) *app.Controller {
	return di.GetToken(c, Controller)
}

func GetExecutor(c di.ServiceRegistry) app.OrderExecutor {
	return di.GetToken(c, Executor)
}

func GetTrader(c di.ServiceRegistry) *app.Trader {
	return di.GetToken(c, Trader)
}

