// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package breaker implements the failure-isolation state machine guarding
// calls to the authoritative statute source.
//
// A rejected call is a distinct outcome (ErrOpen), never conflated with
// "section not found", so callers and logs can tell an outage from a
// genuinely nonexistent citation.
package breaker

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by Allow while the breaker is failing fast.
var ErrOpen = errors.New("breaker is open")

// State is the breaker's position in its lifecycle.
type State int

const (
	// StateClosed passes every call through.
	StateClosed State = iota
	// StateOpen rejects every call until the cooldown elapses.
	StateOpen
	// StateHalfOpen allows exactly one trial call through.
	StateHalfOpen
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Snapshot is a point-in-time view of the breaker for the stats surface.
type Snapshot struct {
	State    string `json:"state"`
	Failures int    `json:"failures"`
}

// Breaker gates calls to the authoritative source.
//
// # Description
//
// CLOSED: every call attempted; consecutive failures count up and trip the
// breaker at the threshold. OPEN: calls rejected immediately, no network
// attempt, until the cooldown elapses; then HALF_OPEN. HALF_OPEN: exactly
// one trial call is allowed through; success closes the breaker and resets
// the failure count, failure reopens it and restarts the cooldown.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Counter updates are applied
// atomically relative to each other under one mutex; no critical section
// spans a network call.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	state         State
	failures      int
	openedAt      time.Time
	trialInFlight bool
}

// New creates a breaker that opens after threshold consecutive failures
// and begins recovery after cooldown.
func New(threshold int, cooldown time.Duration) *Breaker {
	return NewWithClock(threshold, cooldown, time.Now)
}

// NewWithClock creates a breaker with an injected clock for tests.
func NewWithClock(threshold int, cooldown time.Duration, now func() time.Time) *Breaker {
	if now == nil {
		now = time.Now
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		now:       now,
		state:     StateClosed,
	}
}

// Allow reports whether a call may proceed right now.
//
// # Outputs
//
//   - error: nil when the call may proceed; ErrOpen when the breaker is
//     failing fast (or a half-open trial is already in flight).
//
// A nil return in the half-open state claims the single trial slot; the
// caller must follow up with RecordSuccess or RecordFailure.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.cooldown {
			b.state = StateHalfOpen
			b.trialInFlight = true
			slog.Info("breaker: half-open, allowing one trial call")
			return nil
		}
		return ErrOpen
	case StateHalfOpen:
		if b.trialInFlight {
			return ErrOpen
		}
		b.trialInFlight = true
		return nil
	default:
		return ErrOpen
	}
}

// RecordSuccess marks the last allowed call as successful. Resets the
// failure count and closes the breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.trialInFlight = false
	if b.state != StateClosed {
		slog.Info("breaker: closed after successful trial")
		b.state = StateClosed
	}
}

// RecordFailure marks the last allowed call as failed. In the half-open
// state the breaker reopens immediately; in the closed state the failure
// count increments and trips the breaker at the threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialInFlight = false
	if b.state == StateHalfOpen {
		b.state = StateOpen
		b.openedAt = b.now()
		slog.Warn("breaker: reopened after failed trial", "cooldown", b.cooldown)
		return
	}

	b.failures++
	if b.state == StateClosed && b.failures >= b.threshold {
		b.state = StateOpen
		b.openedAt = b.now()
		slog.Warn("breaker: opened",
			"failures", b.failures,
			"cooldown", b.cooldown,
		)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Stats returns a snapshot for the stats surface.
func (b *Breaker) Stats() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{State: b.state.String(), Failures: b.failures}
}
