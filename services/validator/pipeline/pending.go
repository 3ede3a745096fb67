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
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/AleutianAI/CiteGuard/services/validator/resolver"
)

// hashMessage derives the correlation key for a user message. The inlet
// phase stores resolutions under the hash of the message it emitted; the
// outlet phase looks up the hash of the user message it received. The two
// phases correlate iff the host passed the inlet output through unchanged.
func hashMessage(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])
}

// pendingEntry holds one inlet phase's resolutions awaiting the outlet
// phase.
type pendingEntry struct {
	resolutions []resolver.Resolution
	storedAt    time.Time
}

// pendingStore is the bounded side table correlating the two filter
// phases.
//
// # Description
//
// Entries expire after a TTL (an outlet that never arrives must not pin
// memory) and the store is capped: inserting past the cap evicts the
// oldest entry. Take removes the entry it returns, so each inlet's
// resolutions are consumed at most once.
//
// # Thread Safety
//
// Safe for concurrent use.
type pendingStore struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
	cap     int
	ttl     time.Duration
	now     func() time.Time
}

func newPendingStore(capacity int, ttl time.Duration, now func() time.Time) *pendingStore {
	if now == nil {
		now = time.Now
	}
	if capacity < 1 {
		capacity = 1
	}
	return &pendingStore{
		entries: make(map[string]pendingEntry),
		cap:     capacity,
		ttl:     ttl,
		now:     now,
	}
}

// Put stores resolutions under the message hash, evicting the oldest
// entry when the store is full.
func (s *pendingStore) Put(key string, resolutions []resolver.Resolution) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.cap {
		s.evictOldestLocked()
	}
	s.entries[key] = pendingEntry{resolutions: resolutions, storedAt: s.now()}
}

// Take removes and returns the resolutions stored under key. Expired
// entries are dropped and reported as absent.
func (s *pendingStore) Take(key string) ([]resolver.Resolution, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	delete(s.entries, key)
	if s.now().Sub(e.storedAt) >= s.ttl {
		return nil, false
	}
	return e.resolutions, true
}

// Len returns the current number of entries.
func (s *pendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *pendingStore) evictOldestLocked() {
	var oldestKey string
	var oldestAt time.Time
	for k, e := range s.entries {
		if oldestKey == "" || e.storedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.storedAt
		}
	}
	if oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}
