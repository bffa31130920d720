package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
	"github.com/fd1az/arbitrage-sequences/internal/currency"
	"github.com/fd1az/arbitrage-sequences/pkg/ui/components"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "done", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Loading/connecting
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

var stepOrder = []string{"config", "market", "engine"}

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Option configures the model.
type Option func(*Model)

// WithExchanges lists the exchanges before their first poll.
func WithExchanges(names ...string) Option {
	return func(m *Model) {
		m.exchanges = components.NewExchangesComponent(names...)
	}
}

// WithCurrencies sets the registry used to format amounts.
func WithCurrencies(r *currency.Registry) Option {
	return func(m *Model) {
		m.currencies = r
	}
}

// WithAutoTrading marks exchanges that trade automatically.
func WithAutoTrading(names ...string) Option {
	return func(m *Model) {
		for _, n := range names {
			m.autoTrading[n] = true
		}
	}
}

// OnStart sets the function run once when the welcome screen completes.
// It runs on its own goroutine and may Send to the program.
func OnStart(fn func()) Option {
	return func(m *Model) {
		m.onStart = fn
	}
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Components
	exchanges     *components.ExchangesComponent
	cycles        *components.CyclesComponent
	opportunities *components.OpportunitiesComponent
	stats         *components.StatsComponent
	keys          KeyMap
	help          help.Model

	currencies  *currency.Registry
	autoTrading map[string]bool

	// Phase state
	phase        Phase
	welcomeStart time.Time
	onStart      func()
	started      bool

	// State
	ready      bool
	quitting   bool
	paused     bool // Freeze the dashboard
	width      int
	height     int
	lastUpdate time.Time
	errors     []ErrorEntry // Persistent error panel (last 3)
	logs       []string     // Recent log messages

	// Startup state
	startupSteps map[string]*StartupStep
	startupTime  time.Time
}

// New creates a new TUI model.
func New(opts ...Option) Model {
	now := time.Now()
	m := Model{
		exchanges:     components.NewExchangesComponent(),
		cycles:        components.NewCyclesComponent(domain.IndicatorInput),
		opportunities: components.NewOpportunitiesComponent(100, 8),
		stats:         components.NewStatsComponent(),
		keys:          DefaultKeyMap(),
		help:          help.New(),
		currencies:    currency.DefaultRegistry(),
		autoTrading:   make(map[string]bool),
		phase:         PhaseWelcome,
		welcomeStart:  now,
		logs:          make([]string, 0, 5),
		errors:        make([]ErrorEntry, 0, 3),
		startupSteps: map[string]*StartupStep{
			"config": {Name: "Loading configuration", Status: "pending"},
			"market": {Name: "Connecting exchanges", Status: "pending"},
			"engine": {Name: "Starting pollers", Status: "pending"},
		},
		startupTime: now,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// NewProgram wraps m in a full-screen program.
func NewProgram(m Model) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// enterStartup leaves the welcome screen and runs the start hook once.
func (m Model) enterStartup() Model {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	if !m.started && m.onStart != nil {
		m.started = true
		// Send from inside Update blocks the event loop
		go m.onStart()
	}
	return m
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Always allow quit
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to startup
		if m.phase == PhaseWelcome {
			return m.enterStartup(), nil
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.opportunities.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Up):
			m.opportunities.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.opportunities.ScrollDown()
		case key.Matches(msg, m.keys.ClearErrors):
			m.errors = make([]ErrorEntry, 0, 3)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m = m.enterStartup()
		}
		return m, tickCmd()

	case ExchangeTickMsg:
		r := msg.Report
		s := m.stats.Stats()
		s.Ticks++
		s.Evaluated += int64(r.Evaluated)
		m.stats.Update(s)
		if !m.paused {
			m.exchanges.Update(exchangeStatus(r, m.autoTrading[r.Exchange]))
			m.cycles.Update(r.Exchange, cycleRows(r, m.currencies))
		}
		if m.phase == PhaseStartup {
			m.phase = PhaseDashboard
		}
		m.lastUpdate = time.Now()

	case OpportunityMsg:
		s := m.stats.Stats()
		s.Opportunities++
		m.stats.Update(s)
		m.opportunities.Add(opportunityRow(msg.Opportunity, m.currencies))
		m.lastUpdate = time.Now()

	case ExchangeStateMsg:
		m.autoTrading[msg.Exchange] = msg.AutoTrading
		m.exchanges.SetState(msg.Exchange, string(msg.State))

	case ErrorMsg:
		if msg.Error == nil {
			break
		}
		s := m.stats.Stats()
		s.Errors++
		m.stats.Update(s)
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = append(m.errors, ErrorEntry{
			Message:   msg.Error.Error(),
			Timestamp: time.Now(),
		})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		if step, ok := m.startupSteps[msg.Step]; ok {
			step.Status = msg.Status
		}
		if msg.Message != "" {
			m.logs = addLog(m.logs, "info", msg.Message)
		}
		if m.phase == PhaseStartup && m.startupComplete() {
			m.phase = PhaseDashboard
		}
	}

	return m, nil
}

func (m Model) startupComplete() bool {
	for _, step := range m.startupSteps {
		if step.Status != "connected" && step.Status != "done" {
			return false
		}
	}
	return true
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logLine := fmt.Sprintf("[%s] %s: %s", timestamp, level, message)
	logs = append(logs, logLine)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" Arbitrage Sequencer "))
	b.WriteString("\n\n")

	b.WriteString(m.exchanges.View())
	b.WriteString("\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	// Top cycles on the left, opportunity log on the right
	leftCol := m.cycles.View()
	rightCol := m.opportunities.View()

	if m.width > 100 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		width := m.width - 4
		if width < 40 {
			width = 40
		}
		b.WriteString(BoxStyle.Width(width).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(width).Render(rightCol))
	}
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		b.WriteString(ErrorHeaderStyle.Render("ERRORS"))
		b.WriteString(MutedValue.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(ErrorLineStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(MutedValue.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(m.logs) > 0 {
		for _, l := range m.logs {
			b.WriteString(MutedValue.Render("  " + l))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(PausedStyle.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		b.WriteString(MutedValue.Render(fmt.Sprintf("updated %s ago • ", ago)))
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary)

	mutedStyle := lipgloss.NewStyle().
		Foreground(ColorMuted)

	greenStyle := lipgloss.NewStyle().
		Foreground(ColorSecondary)

	// Animated dots based on time
	elapsed := time.Since(m.welcomeStart)
	dotCount := int(elapsed.Milliseconds()/300) % 4
	dots := strings.Repeat(".", dotCount)

	var sb strings.Builder
	sb.WriteString("\n\n\n\n")

	logo := `
     ███████╗███████╗ ██████╗ ██╗   ██╗███████╗███╗   ██╗ ██████╗███████╗
     ██╔════╝██╔════╝██╔═══██╗██║   ██║██╔════╝████╗  ██║██╔════╝██╔════╝
     ███████╗█████╗  ██║   ██║██║   ██║█████╗  ██╔██╗ ██║██║     █████╗
     ╚════██║██╔══╝  ██║▄▄ ██║██║   ██║██╔══╝  ██║╚██╗██║██║     ██╔══╝
     ███████║███████╗╚██████╔╝╚██████╔╝███████╗██║ ╚████║╚██████╗███████╗
     ╚══════╝╚══════╝ ╚══▀▀═╝  ╚═════╝ ╚══════╝╚═╝  ╚═══╝ ╚═════╝╚══════╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render("                     A R B I T R A G E   S E Q U E N C E R"))
	sb.WriteString("\n\n\n")
	sb.WriteString(greenStyle.Render(fmt.Sprintf("                          Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(mutedStyle.Render("                   Press any key to skip, or wait..."))
	sb.WriteString("\n")

	return sb.String()
}

// renderStartupScreen renders the loading/startup screen.
func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		MarginBottom(1)

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FFFFFF"))

	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
	successStyle := lipgloss.NewStyle().Foreground(ColorSecondary)
	connectingStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	failedStyle := lipgloss.NewStyle().Foreground(ColorDanger)

	var sb strings.Builder

	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  Arbitrage Sequencer"))
	sb.WriteString("\n\n")
	sb.WriteString(headerStyle.Render("  Starting up..."))
	sb.WriteString("\n\n")

	for _, key := range stepOrder {
		step, ok := m.startupSteps[key]
		if !ok {
			continue
		}

		var icon, statusText string
		var style lipgloss.Style

		switch step.Status {
		case "connected", "done":
			icon = "✓"
			statusText = "Ready"
			style = successStyle
		case "connecting":
			spinners := []string{"◐", "◓", "◑", "◒"}
			idx := int(time.Since(m.startupTime).Milliseconds()/200) % len(spinners)
			icon = spinners[idx]
			statusText = "Connecting..."
			style = connectingStyle
		case "failed":
			icon = "✗"
			statusText = "Failed"
			style = failedStyle
		default:
			icon = "○"
			statusText = "Pending"
			style = mutedStyle
		}

		sb.WriteString(fmt.Sprintf("  %s %s %s\n",
			style.Render(icon),
			mutedStyle.Render(step.Name),
			style.Render(statusText),
		))
	}

	sb.WriteString("\n")
	elapsed := time.Since(m.startupTime).Round(time.Second)
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("  Elapsed: %s", elapsed)))
	sb.WriteString("\n\n")
	for _, l := range m.logs {
		sb.WriteString(mutedStyle.Render("  " + l))
		sb.WriteString("\n")
	}
	sb.WriteString(mutedStyle.Render("  Waiting for the first poll..."))
	sb.WriteString("\n")

	return sb.String()
}
