// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"testing"
	"time"

	"github.com/AleutianAI/CiteGuard/services/validator/datatypes"
)

// fakeClock is an advanceable clock for TTL tests.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func penalRecord(section string) *datatypes.SectionRecord {
	return &datatypes.SectionRecord{
		Code:    datatypes.CodePenal,
		Section: section,
		Content: "Murder is the unlawful killing of a human being with malice aforethought.",
	}
}

// TestSectionCache_HitWithinTTL tests the basic store-then-read path.
func TestSectionCache_HitWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewWithClock(time.Hour, clock.Now)

	c.Put(datatypes.CodePenal, "187", penalRecord("187"))
	clock.Advance(30 * time.Minute)

	rec, ok := c.Get(datatypes.CodePenal, "187")
	if !ok {
		t.Fatal("Expected a hit within the TTL")
	}
	if rec.Code != datatypes.CodePenal || rec.Section != "187" {
		t.Errorf("Got %s-%s, want PEN-187", rec.Code, rec.Section)
	}
}

// TestSectionCache_ExpiresAtTTLBoundary tests that an entry whose age
// equals the TTL exactly is already a miss.
func TestSectionCache_ExpiresAtTTLBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	c := NewWithClock(time.Hour, clock.Now)

	c.Put(datatypes.CodePenal, "187", penalRecord("187"))
	clock.Advance(time.Hour)

	if _, ok := c.Get(datatypes.CodePenal, "187"); ok {
		t.Error("Entry aged exactly TTL should be expired")
	}
	if c.Len() != 0 {
		t.Errorf("Expired entry should be deleted, cache has %d entries", c.Len())
	}
}

// TestSectionCache_DistinctCodesSameSection tests that the same section
// number under different codes occupies independent slots.
func TestSectionCache_DistinctCodesSameSection(t *testing.T) {
	c := New(time.Hour)

	c.Put(datatypes.CodePenal, "187", penalRecord("187"))
	c.Put(datatypes.CodeCivil, "187", &datatypes.SectionRecord{
		Code:    datatypes.CodeCivil,
		Section: "187",
		Content: "Civil content.",
	})

	pen, ok := c.Get(datatypes.CodePenal, "187")
	if !ok || pen.Code != datatypes.CodePenal {
		t.Fatalf("PEN-187 lookup returned %v, %v", pen, ok)
	}
	civ, ok := c.Get(datatypes.CodeCivil, "187")
	if !ok || civ.Code != datatypes.CodeCivil {
		t.Fatalf("CIV-187 lookup returned %v, %v", civ, ok)
	}
	if pen.Content == civ.Content {
		t.Error("Distinct codes returned the same content")
	}
}

// TestSectionCache_EvictsCrossCodeEntry tests that a contaminated entry is
// evicted rather than served.
func TestSectionCache_EvictsCrossCodeEntry(t *testing.T) {
	c := New(time.Hour)

	// Plant a contaminated entry directly; Put refuses to create one.
	c.mu.Lock()
	c.entries[cacheKey(datatypes.CodeFamily, "761")] = entry{
		record:   penalRecord("761"),
		storedAt: time.Now(),
	}
	c.mu.Unlock()

	if rec, ok := c.Get(datatypes.CodeFamily, "761"); ok {
		t.Fatalf("Contaminated entry was served: %v", rec)
	}
	if c.Len() != 0 {
		t.Errorf("Contaminated entry should be evicted, cache has %d entries", c.Len())
	}
}

// TestSectionCache_PutRefusesMismatchedRecord tests the write-side guard.
func TestSectionCache_PutRefusesMismatchedRecord(t *testing.T) {
	c := New(time.Hour)

	c.Put(datatypes.CodeFamily, "761", penalRecord("761"))
	if _, ok := c.Get(datatypes.CodeFamily, "761"); ok {
		t.Error("Mismatched record should not have been stored")
	}
}

// TestSectionCache_CloneIsolation tests that mutating a returned record
// does not corrupt the cached original.
func TestSectionCache_CloneIsolation(t *testing.T) {
	c := New(time.Hour)
	c.Put(datatypes.CodePenal, "187", penalRecord("187"))

	first, _ := c.Get(datatypes.CodePenal, "187")
	first.Content = "tampered"

	second, _ := c.Get(datatypes.CodePenal, "187")
	if second.Content == "tampered" {
		t.Error("Caller mutation leaked into the cached record")
	}
}

// TestSectionCache_Stats tests counter accounting.
func TestSectionCache_Stats(t *testing.T) {
	c := New(time.Hour)
	c.Put(datatypes.CodePenal, "187", penalRecord("187"))

	c.Get(datatypes.CodePenal, "187")  // hit
	c.Get(datatypes.CodeFamily, "761") // miss

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Stats = %+v, want 1 hit and 1 miss", stats)
	}
	if stats.HitRate != 0.5 {
		t.Errorf("HitRate = %v, want 0.5", stats.HitRate)
	}
	if stats.Size != 1 {
		t.Errorf("Size = %d, want 1", stats.Size)
	}
}
