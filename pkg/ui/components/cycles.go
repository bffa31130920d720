package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// CycleRow is one entry of the top cycles table.
type CycleRow struct {
	Exchange  string
	Path      string
	Indicator decimal.Decimal // output for the nominal input
	Amount    string
	Profit    string
}

// CyclesComponent renders the best cycles of every exchange.
type CyclesComponent struct {
	byExchange map[string][]CycleRow
	order      []string
	nominal    decimal.Decimal
}

// NewCyclesComponent creates a component for indicators of the nominal input.
func NewCyclesComponent(nominal decimal.Decimal) *CyclesComponent {
	return &CyclesComponent{
		byExchange: make(map[string][]CycleRow),
		nominal:    nominal,
	}
}

// Update replaces the top cycles of exchange.
func (c *CyclesComponent) Update(exchange string, rows []CycleRow) {
	if _, ok := c.byExchange[exchange]; !ok {
		c.order = append(c.order, exchange)
	}
	c.byExchange[exchange] = rows
}

// View renders the cycles table.
func (c *CyclesComponent) View() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	gainStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	lossStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render(fmt.Sprintf("TOP SEQUENCES (%s in)", c.nominal.String())))
	sb.WriteString("\n\n")

	if len(c.order) == 0 {
		sb.WriteString(mutedStyle.Render("  Waiting for the first poll..."))
		return sb.String()
	}

	for _, ex := range c.order {
		rows := c.byExchange[ex]
		sb.WriteString(mutedStyle.Render("  " + ex))
		sb.WriteString("\n")
		if len(rows) == 0 {
			sb.WriteString(mutedStyle.Render("    no evaluable sequence"))
			sb.WriteString("\n")
			continue
		}
		for _, row := range rows {
			style := lossStyle
			if row.Indicator.GreaterThan(c.nominal) {
				style = gainStyle
			}
			line := fmt.Sprintf("    %s  %s", style.Render(row.Indicator.StringFixed(6)), row.Path)
			if row.Amount != "" {
				line += mutedStyle.Render(fmt.Sprintf("  %s → +%s", row.Amount, row.Profit))
			}
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
