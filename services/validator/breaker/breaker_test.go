// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package breaker

import (
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// TestBreaker_OpensAtThreshold tests that the breaker stays closed until
// the consecutive failure threshold, then opens.
func TestBreaker_OpensAtThreshold(t *testing.T) {
	b := New(5, time.Minute)

	for i := 0; i < 4; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("Breaker rejected call %d while closed: %v", i, err)
		}
		b.RecordFailure()
	}
	if b.State() != StateClosed {
		t.Fatalf("State after 4 failures = %v, want closed", b.State())
	}

	if err := b.Allow(); err != nil {
		t.Fatalf("Fifth call should be allowed: %v", err)
	}
	b.RecordFailure()
	if b.State() != StateOpen {
		t.Errorf("State after 5 failures = %v, want open", b.State())
	}
}

// TestBreaker_SuccessResetsFailures tests that a success wipes the
// consecutive failure count.
func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := New(5, time.Minute)

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	b.RecordSuccess()
	if b.Failures() != 0 {
		t.Errorf("Failures after success = %d, want 0", b.Failures())
	}

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	if b.State() != StateClosed {
		t.Error("Non-consecutive failures should not open the breaker")
	}
}

// TestBreaker_FailsFastWhileOpen tests that calls are rejected without
// side effects during the cooldown.
func TestBreaker_FailsFastWhileOpen(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := NewWithClock(2, time.Minute, clock.Now)

	b.RecordFailure()
	b.RecordFailure()

	clock.Advance(30 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("Allow during cooldown = %v, want ErrOpen", err)
	}
}

// TestBreaker_HalfOpenSingleTrial tests that after the cooldown exactly
// one trial call is allowed through.
func TestBreaker_HalfOpenSingleTrial(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := NewWithClock(2, time.Minute, clock.Now)

	b.RecordFailure()
	b.RecordFailure()
	clock.Advance(time.Minute)

	if err := b.Allow(); err != nil {
		t.Fatalf("First call after cooldown should be the trial: %v", err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("State = %v, want half_open", b.State())
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("Second call during trial = %v, want ErrOpen", err)
	}
}

// TestBreaker_TrialSuccessCloses tests recovery through a successful
// trial.
func TestBreaker_TrialSuccessCloses(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := NewWithClock(2, time.Minute, clock.Now)

	b.RecordFailure()
	b.RecordFailure()
	clock.Advance(time.Minute)

	if err := b.Allow(); err != nil {
		t.Fatalf("Trial call rejected: %v", err)
	}
	b.RecordSuccess()

	if b.State() != StateClosed {
		t.Errorf("State after successful trial = %v, want closed", b.State())
	}
	if b.Failures() != 0 {
		t.Errorf("Failures after successful trial = %d, want 0", b.Failures())
	}
}

// TestBreaker_TrialFailureReopens tests that a failed trial restarts the
// full cooldown.
func TestBreaker_TrialFailureReopens(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := NewWithClock(2, time.Minute, clock.Now)

	b.RecordFailure()
	b.RecordFailure()
	clock.Advance(time.Minute)

	if err := b.Allow(); err != nil {
		t.Fatalf("Trial call rejected: %v", err)
	}
	b.RecordFailure()

	if b.State() != StateOpen {
		t.Fatalf("State after failed trial = %v, want open", b.State())
	}

	// Cooldown restarts from the failed trial, not the original opening.
	clock.Advance(30 * time.Second)
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("Allow before the restarted cooldown elapsed = %v, want ErrOpen", err)
	}
	clock.Advance(30 * time.Second)
	if err := b.Allow(); err != nil {
		t.Errorf("Allow after the restarted cooldown = %v, want nil", err)
	}
}
