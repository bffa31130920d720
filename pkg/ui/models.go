package ui

import (
	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
	"github.com/fd1az/arbitrage-sequences/pkg/ui/components"
)

// Conversions from engine results to component rows. Formatting happens here,
// components only lay out strings.

func exchangeStatus(r domain.TickReport, autoTrading bool) components.ExchangeStatus {
	return components.ExchangeStatus{
		Name:        r.Exchange,
		State:       string(r.State),
		AutoTrading: autoTrading,
		Cycles:      r.Cycles,
		Evaluated:   r.Evaluated,
		Profitable:  r.Profitable,
		Missing:     len(r.Missing),
		Duration:    r.Duration,
		LastTick:    r.At,
	}
}

func cycleRows(r domain.TickReport, currencies *currency.Registry) []components.CycleRow {
	rows := make([]components.CycleRow, 0, len(r.Top))
	for _, s := range r.Top {
		row := components.CycleRow{
			Exchange:  s.Exchange,
			Path:      s.Path,
			Indicator: s.IndicatorOutput,
		}
		if s.TradeAmount.IsPositive() {
			row.Amount = currencies.Format(s.Start(), s.TradeAmount)
			row.Profit = currencies.Format(s.Start(), s.TradeProfit)
		}
		rows = append(rows, row)
	}
	return rows
}

func opportunityRow(o domain.Opportunity, currencies *currency.Registry) components.OpportunityRow {
	return components.OpportunityRow{
		Time:      o.DetectedAt.Format("15:04:05"),
		Exchange:  o.Exchange,
		Path:      o.Path,
		Amount:    currencies.Format(o.Currency, o.Amount),
		Profit:    currencies.Format(o.Currency, o.Profit),
		ProfitPct: o.ProfitPercent(),
	}
}
