package app

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "arbitrage"

// engineMetrics are the OTel instruments of the poll loop.
type engineMetrics struct {
	ticks         metric.Int64Counter
	evaluated     metric.Int64Counter
	profitable    metric.Int64Counter
	fetchFailures metric.Int64Counter
	tickDuration  metric.Float64Histogram
}

func newEngineMetrics() (*engineMetrics, error) {
	meter := otel.Meter(meterName)

	ticks, err := meter.Int64Counter("arbitrage_ticks_total",
		metric.WithDescription("Completed poll ticks"))
	if err != nil {
		return nil, err
	}
	evaluated, err := meter.Int64Counter("arbitrage_cycles_evaluated_total",
		metric.WithDescription("Cycles priced by the analyzer"))
	if err != nil {
		return nil, err
	}
	profitable, err := meter.Int64Counter("arbitrage_profitable_cycles_total",
		metric.WithDescription("Cycles found profitable"))
	if err != nil {
		return nil, err
	}
	fetchFailures, err := meter.Int64Counter("arbitrage_depth_fetch_failures_total",
		metric.WithDescription("Pairs whose depth could not be fetched"))
	if err != nil {
		return nil, err
	}
	tickDuration, err := meter.Float64Histogram("arbitrage_tick_duration_seconds",
		metric.WithDescription("Duration of fetch plus analysis"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &engineMetrics{
		ticks:         ticks,
		evaluated:     evaluated,
		profitable:    profitable,
		fetchFailures: fetchFailures,
		tickDuration:  tickDuration,
	}, nil
}

func (m *engineMetrics) recordTick(ctx context.Context, exchange string, stats AnalysisStats, missing int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("exchange", exchange))
	m.ticks.Add(ctx, 1, attrs)
	m.evaluated.Add(ctx, int64(stats.Evaluated), attrs)
	m.profitable.Add(ctx, int64(stats.Profitable), attrs)
	m.fetchFailures.Add(ctx, int64(missing), attrs)
	m.tickDuration.Record(ctx, d.Seconds(), attrs)
}
