package domain

import (
	"time"

	marketDomain "github.com/fd1az/arbitrage-sequences/business/market/domain"
)

// SiteInfo is the activation state of one exchange.
type SiteInfo struct {
	Active           bool
	AutomaticTrading bool
}

// PollerState is the phase of an exchange poller.
type PollerState string

const (
	PollerIdle      PollerState = "idle"
	PollerFetching  PollerState = "fetching"
	PollerAnalyzing PollerState = "analyzing"
	PollerSleeping  PollerState = "sleeping"
	PollerStopped   PollerState = "stopped"
)

// TickReport summarizes one completed poll of an exchange.
type TickReport struct {
	Exchange   string
	State      PollerState
	Duration   time.Duration
	Cycles     int
	Evaluated  int
	Profitable int
	Missing    []marketDomain.Pair
	Top        []CycleSnapshot // most profitable first
	At         time.Time
}
