// Package ui provides the Bubble Tea TUI for the arbitrage sequencer.
package ui

import (
	"github.com/fd1az/arbitrage-sequences/business/arbitrage/domain"
)

// Message types for TUI updates

// ExchangeTickMsg is sent after every completed poll of an exchange.
type ExchangeTickMsg struct {
	Report domain.TickReport
}

// OpportunityMsg is sent when a cycle becomes profitable.
type OpportunityMsg struct {
	Opportunity domain.Opportunity
}

// ExchangeStateMsg is sent when an exchange is started, stopped or changes trading mode.
type ExchangeStateMsg struct {
	Exchange    string
	State       domain.PollerState
	AutoTrading bool
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // "config", "market", "engine"
	Status  string // "connecting", "connected", "done", "failed"
	Message string // Optional message
}
