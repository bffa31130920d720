package infra

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	marketDomain "github.com/fd1az/arbitrage-sequences/business/market/domain"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
)

func TestConsoleReporter_Opportunity(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporterTo(&buf, currency.DefaultRegistry(), false)

	r.OnOpportunity(context.Background(), sampleOpportunity())

	out := buf.String()
	assert.Contains(t, out, "USD→BTC→LTC→USD (3 hops)")
	assert.Contains(t, out, "10 → 10.437126")
	assert.Contains(t, out, "100.00 USD")
	assert.Contains(t, out, "4.37 USD (4.37%)")
}

func TestConsoleReporter_Tick(t *testing.T) {
	report := domain.TickReport{
		Exchange:   "sim",
		Cycles:     6,
		Evaluated:  3,
		Profitable: 1,
		Duration:   1500 * time.Microsecond,
		Missing:    []marketDomain.Pair{marketDomain.NewPair(currency.LTC, currency.USD)},
		At:         time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC),
	}

	var quiet bytes.Buffer
	NewConsoleReporterTo(&quiet, currency.DefaultRegistry(), false).OnTick(context.Background(), report)
	assert.Empty(t, quiet.String())

	var buf bytes.Buffer
	NewConsoleReporterTo(&buf, currency.DefaultRegistry(), true).OnTick(context.Background(), report)
	line := strings.TrimSpace(buf.String())
	assert.Equal(t, "[12:30:00] sim: 6 cycles, 3 evaluated, 1 profitable in 2ms, missing LTC/USD", line)
}
