package ui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#10B981") // Green, profitable sequences
	ColorDanger    = lipgloss.Color("#EF4444") // Red
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorBorder    = lipgloss.Color("#374151") // Dark gray
	ColorText      = lipgloss.Color("#FFFFFF")
)

var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Background(ColorPrimary).
			Padding(0, 2)

	MutedValue = lipgloss.NewStyle().Foreground(ColorMuted)

	HelpStyle = MutedValue.Padding(0, 1)

	// Error panel
	ErrorHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)
	ErrorLineStyle   = lipgloss.NewStyle().Foreground(ColorDanger)

	// Shown while the dashboard is frozen
	PausedStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorWarning)
)
