// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/app"
	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
)

var (
	_ app.OpportunityObserver = (*ConsoleReporter)(nil)
	_ app.TickObserver        = (*ConsoleReporter)(nil)
)

// ConsoleReporter writes opportunities and tick summaries for CLI output.
type ConsoleReporter struct {
	mu         sync.Mutex
	out        io.Writer
	currencies *currency.Registry
	verbose    bool
}

// NewConsoleReporter creates a ConsoleReporter writing to stdout. With verbose
// set every tick is summarized, otherwise only opportunities are printed.
func NewConsoleReporter(currencies *currency.Registry, verbose bool) *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout, currencies, verbose)
}

// NewConsoleReporterTo creates a ConsoleReporter writing to out.
func NewConsoleReporterTo(out io.Writer, currencies *currency.Registry, verbose bool) *ConsoleReporter {
	return &ConsoleReporter{out: out, currencies: currencies, verbose: verbose}
}

// Start prints the banner.
func (r *ConsoleReporter) Start(exchanges []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "Arbitrage Sequencer Started")
	fmt.Fprintln(r.out, "===========================")
	fmt.Fprintf(r.out, "Exchanges: %s\n", strings.Join(exchanges, ", "))
}

// OnOpportunity prints a cycle that became profitable.
func (r *ConsoleReporter) OnOpportunity(_ context.Context, opp domain.Opportunity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintln(r.out, "ARBITRAGE SEQUENCE DETECTED")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Exchange:       %s\n", opp.Exchange)
	fmt.Fprintf(r.out, "Timestamp:      %s\n", opp.DetectedAt.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Sequence:       %s (%d hops)\n", opp.Path, opp.Hops)
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintf(r.out, "  Indicator:      %s → %s\n", domain.IndicatorInput.String(), opp.IndicatorOutput.StringFixed(6))
	fmt.Fprintf(r.out, "  Trade amount:   %s\n", r.currencies.Format(opp.Currency, opp.Amount))
	fmt.Fprintf(r.out, "  Profit:         %s (%s%%)\n", r.currencies.Format(opp.Currency, opp.Profit), opp.ProfitPercent().StringFixed(2))
	fmt.Fprintln(r.out, "================================================================================")
}

// OnTick prints a one-line summary of a poll when verbose.
func (r *ConsoleReporter) OnTick(_ context.Context, report domain.TickReport) {
	if !r.verbose {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintf(r.out, "[%s] %s: %d cycles, %d evaluated, %d profitable in %s",
		report.At.Format("15:04:05"),
		report.Exchange,
		report.Cycles,
		report.Evaluated,
		report.Profitable,
		report.Duration.Round(time.Millisecond))
	if len(report.Missing) > 0 {
		missing := make([]string, len(report.Missing))
		for i, p := range report.Missing {
			missing[i] = p.String()
		}
		fmt.Fprintf(r.out, ", missing %s", strings.Join(missing, " "))
	}
	fmt.Fprintln(r.out)

	if len(report.Top) > 0 {
		best := report.Top[0]
		fmt.Fprintf(r.out, "           best %s → %s\n", best.Path, best.IndicatorOutput.StringFixed(6))
	}
}

// Stop prints the shutdown line.
func (r *ConsoleReporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Arbitrage Sequencer Stopped")
}
