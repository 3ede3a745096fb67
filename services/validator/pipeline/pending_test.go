// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pipeline

import (
	"fmt"
	"testing"
	"time"

	"github.com/AleutianAI/CiteGuard/services/validator/resolver"
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

func TestPendingStore_PutTake(t *testing.T) {
	s := newPendingStore(10, time.Minute, nil)
	resolutions := []resolver.Resolution{verifiedFamilyResolution()}

	s.Put("key", resolutions)
	got, ok := s.Take("key")
	if !ok || len(got) != 1 {
		t.Fatalf("Take returned %v, %v", got, ok)
	}

	// Consumed: a second take finds nothing.
	if _, ok := s.Take("key"); ok {
		t.Error("Entry should be consumed by the first take")
	}
}

func TestPendingStore_TTLExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s := newPendingStore(10, time.Minute, clock.Now)

	s.Put("key", nil)
	clock.Advance(time.Minute)

	if _, ok := s.Take("key"); ok {
		t.Error("Entry aged exactly TTL should be expired")
	}
}

func TestPendingStore_CapEvictsOldest(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	s := newPendingStore(3, time.Hour, clock.Now)

	for i := 0; i < 4; i++ {
		s.Put(fmt.Sprintf("key%d", i), nil)
		clock.Advance(time.Second)
	}

	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
	if _, ok := s.Take("key0"); ok {
		t.Error("Oldest entry should have been evicted")
	}
	if _, ok := s.Take("key3"); !ok {
		t.Error("Newest entry should have survived")
	}
}

func TestHashMessage_Distinguishes(t *testing.T) {
	if hashMessage("a") == hashMessage("b") {
		t.Error("Different messages hashed identically")
	}
	if hashMessage("same") != hashMessage("same") {
		t.Error("Identical messages hashed differently")
	}
}
