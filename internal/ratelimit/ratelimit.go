// Package ratelimit provides a wrapper around golang.org/x/time/rate.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter meters request weight per minute. A nil *Limiter never blocks.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a new rate limiter.
// weightPerMinute specifies how much request weight is allowed per minute.
func New(weightPerMinute int) *Limiter {
	if weightPerMinute <= 0 {
		return nil
	}

	rps := float64(weightPerMinute) / 60.0
	burst := weightPerMinute / 10 // Allow burst of 10% of rate limit
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// NewWithBurst creates a new rate limiter with explicit burst.
func NewWithBurst(perSecond float64, burst int) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Wait blocks until one unit of weight is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.WaitN(ctx, 1)
}

// WaitN blocks until weight units are available. Weight above the burst is clamped
// so heavy endpoints wait for a full bucket instead of failing.
func (l *Limiter) WaitN(ctx context.Context, weight int) error {
	if l == nil {
		return ctx.Err()
	}
	if b := l.limiter.Burst(); weight > b {
		weight = b
	}
	return l.limiter.WaitN(ctx, weight)
}

// Allow reports whether an event may happen now.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}

// Tokens returns the current number of available tokens.
func (l *Limiter) Tokens() float64 {
	if l == nil {
		return 0
	}
	return l.limiter.Tokens()
}

// SetLimit updates the rate limit.
func (l *Limiter) SetLimit(weightPerMinute int) {
	if l == nil {
		return
	}
	l.limiter.SetLimit(rate.Limit(float64(weightPerMinute) / 60.0))
}
