package infra

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
	"github.com/fd1az/arbitrage-sequences/internal/logger"
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func sampleOpportunity() domain.Opportunity {
	return domain.Opportunity{
		ID:              uuid.MustParse("5f0c7c1e-3b89-4a3e-9d55-0d4b6f0b8e21"),
		Exchange:        "sim",
		CycleKey:        "sim|buy BTC/USD|buy LTC/BTC|sell LTC/USD",
		Path:            "USD→BTC→LTC→USD",
		Hops:            3,
		Currency:        currency.USD,
		Amount:          decimal.RequireFromString("100"),
		Profit:          decimal.RequireFromString("4.37125916"),
		IndicatorOutput: decimal.RequireFromString("10.437125916"),
		DetectedAt:      time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
	}
}
