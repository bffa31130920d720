package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// ExchangeStatus is the latest poll summary of one exchange.
type ExchangeStatus struct {
	Name        string
	State       string
	AutoTrading bool
	Cycles      int
	Evaluated   int
	Profitable  int
	Missing     int
	Duration    time.Duration
	LastTick    time.Time
}

// ExchangesComponent renders one status line per exchange in registration order.
type ExchangesComponent struct {
	exchanges []ExchangeStatus
}

// NewExchangesComponent creates a component listing names as pending.
func NewExchangesComponent(names ...string) *ExchangesComponent {
	e := &ExchangesComponent{}
	for _, n := range names {
		e.exchanges = append(e.exchanges, ExchangeStatus{Name: n, State: "idle"})
	}
	return e
}

// Update replaces the status of an exchange, adding it when unknown.
func (e *ExchangesComponent) Update(status ExchangeStatus) {
	for i, ex := range e.exchanges {
		if ex.Name == status.Name {
			e.exchanges[i] = status
			return
		}
	}
	e.exchanges = append(e.exchanges, status)
}

// SetState changes only the poller state of an exchange.
func (e *ExchangesComponent) SetState(name, state string) {
	for i, ex := range e.exchanges {
		if ex.Name == name {
			e.exchanges[i].State = state
			return
		}
	}
	e.exchanges = append(e.exchanges, ExchangeStatus{Name: name, State: state})
}

// Polled reports whether any exchange completed a tick.
func (e *ExchangesComponent) Polled() bool {
	for _, ex := range e.exchanges {
		if !ex.LastTick.IsZero() {
			return true
		}
	}
	return false
}

// View renders the exchanges component.
func (e *ExchangesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	offStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("EXCHANGES"))
	sb.WriteString("\n\n")

	if len(e.exchanges) == 0 {
		sb.WriteString(mutedStyle.Render("  No exchanges configured"))
		return sb.String()
	}

	for _, ex := range e.exchanges {
		var icon string
		switch {
		case ex.State == "stopped":
			icon = offStyle.Render("○")
		case ex.Missing > 0:
			icon = warnStyle.Render("◐")
		default:
			icon = okStyle.Render("●")
		}

		line := fmt.Sprintf("  %s %-10s %-9s", icon, ex.Name, ex.State)
		if !ex.LastTick.IsZero() {
			line += fmt.Sprintf(" %4d cycles  %4d priced  %s",
				ex.Cycles, ex.Evaluated,
				okStyle.Render(fmt.Sprintf("%d profitable", ex.Profitable)))
			if ex.Missing > 0 {
				line += warnStyle.Render(fmt.Sprintf("  %d pairs missing", ex.Missing))
			}
			line += mutedStyle.Render(fmt.Sprintf("  %s", ex.Duration.Round(time.Millisecond)))
		}
		if ex.AutoTrading {
			line += warnStyle.Render("  AUTO")
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
