// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// OpportunityRow represents an opportunity in the log.
type OpportunityRow struct {
	Time      string
	Exchange  string
	Path      string
	Amount    string
	Profit    string
	ProfitPct decimal.Decimal
}

// OpportunitiesComponent renders the opportunity log, newest first.
type OpportunitiesComponent struct {
	rows    []OpportunityRow
	maxRows int
	visible int
	offset  int
}

// NewOpportunitiesComponent creates a new opportunities component keeping maxRows
// entries and showing visible of them.
func NewOpportunitiesComponent(maxRows, visible int) *OpportunitiesComponent {
	return &OpportunitiesComponent{
		rows:    make([]OpportunityRow, 0),
		maxRows: maxRows,
		visible: visible,
	}
}

// Add adds a new opportunity to the top of the log.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
	if o.offset > 0 {
		o.offset++
		o.clampOffset()
	}
}

// Len returns the number of stored opportunities.
func (o *OpportunitiesComponent) Len() int {
	return len(o.rows)
}

// Clear clears all opportunities.
func (o *OpportunitiesComponent) Clear() {
	o.rows = make([]OpportunityRow, 0)
	o.offset = 0
}

// ScrollUp moves the window towards newer entries.
func (o *OpportunitiesComponent) ScrollUp() {
	if o.offset > 0 {
		o.offset--
	}
}

// ScrollDown moves the window towards older entries.
func (o *OpportunitiesComponent) ScrollDown() {
	o.offset++
	o.clampOffset()
}

func (o *OpportunitiesComponent) clampOffset() {
	limit := len(o.rows) - o.visible
	if limit < 0 {
		limit = 0
	}
	if o.offset > limit {
		o.offset = limit
	}
}

// View renders the opportunities component.
func (o *OpportunitiesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	profitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("OPPORTUNITY LOG (%d)", len(o.rows))))
	sb.WriteString("\n\n")

	if len(o.rows) == 0 {
		sb.WriteString(mutedStyle.Render("  No profitable sequence detected yet..."))
		return sb.String()
	}

	end := o.offset + o.visible
	if end > len(o.rows) {
		end = len(o.rows)
	}
	for _, row := range o.rows[o.offset:end] {
		sb.WriteString(fmt.Sprintf("  %s %-10s %s\n",
			mutedStyle.Render(row.Time),
			row.Exchange,
			row.Path))
		sb.WriteString(fmt.Sprintf("           %s → %s %s\n",
			row.Amount,
			profitStyle.Render("+"+row.Profit),
			mutedStyle.Render(fmt.Sprintf("(%s%%)", row.ProfitPct.StringFixed(2)))))
	}
	if len(o.rows) > o.visible {
		sb.WriteString(mutedStyle.Render(fmt.Sprintf("  %d-%d of %d", o.offset+1, end, len(o.rows))))
	}
	return sb.String()
}
