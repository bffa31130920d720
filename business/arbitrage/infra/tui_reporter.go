package infra

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/app"
	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-sequences/pkg/ui"
)

var (
	_ app.OpportunityObserver = (*TUIReporter)(nil)
	_ app.TickObserver        = (*TUIReporter)(nil)
)

// Sender is the part of *tea.Program the reporter uses.
type Sender interface {
	Send(msg tea.Msg)
}

// TUIReporter forwards engine results to the Bubble Tea dashboard.
type TUIReporter struct {
	program Sender
}

// NewTUIReporter creates a reporter sending to program.
func NewTUIReporter(program Sender) *TUIReporter {
	return &TUIReporter{program: program}
}

// OnOpportunity sends the opportunity to the log panel.
func (r *TUIReporter) OnOpportunity(_ context.Context, opp domain.Opportunity) {
	r.program.Send(ui.OpportunityMsg{Opportunity: opp})
}

// OnTick sends the poll summary to the exchanges and top cycles panels.
func (r *TUIReporter) OnTick(_ context.Context, report domain.TickReport) {
	r.program.Send(ui.ExchangeTickMsg{Report: report})
}

// ExchangeState reports a poller start or stop.
func (r *TUIReporter) ExchangeState(exchange string, state domain.PollerState, autoTrading bool) {
	r.program.Send(ui.ExchangeStateMsg{Exchange: exchange, State: state, AutoTrading: autoTrading})
}

// Startup reports a startup step.
func (r *TUIReporter) Startup(step, status, message string) {
	r.program.Send(ui.StartupMsg{Step: step, Status: status, Message: message})
}

// Error reports an error to the error panel.
func (r *TUIReporter) Error(err error) {
	r.program.Send(ui.ErrorMsg{Error: err})
}
