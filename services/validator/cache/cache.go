// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package cache provides the time-bounded resolution cache for statute
// section records.
//
// Entries are addressed by (code, section). Every read re-checks the entry
// against its key: an entry whose record carries a different code than the
// key it sits under is evicted instead of served. That check closed a
// defect where content stored for one code leaked into lookups for a
// different code sharing the same section number.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"github.com/AleutianAI/CiteGuard/services/validator/datatypes"
)

// entry is one cached record with its storage timestamp.
type entry struct {
	record   *datatypes.SectionRecord
	storedAt time.Time
}

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Size      int     `json:"size"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// SectionCache is the process-wide resolution cache.
//
// # Description
//
// Get misses on absence, on TTL expiry (the entry is deleted), and on
// cross-code contamination (the entry is deleted). Hits return a deep copy
// so consumer-side mutation cannot corrupt the cached original. Put
// silently refuses records whose code does not match the key, which
// prevents contamination from being reintroduced at the write side.
//
// There is no eviction beyond TTL expiry and the consistency-triggered
// delete; the finite space of valid (code, section) pairs bounds the size
// in practice.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type SectionCache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a cache with the given TTL.
func New(ttl time.Duration) *SectionCache {
	return NewWithClock(ttl, time.Now)
}

// NewWithClock creates a cache with an injected clock. Use in tests to
// exercise TTL boundaries without sleeping.
func NewWithClock(ttl time.Duration, now func() time.Time) *SectionCache {
	if now == nil {
		now = time.Now
	}
	return &SectionCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     now,
	}
}

func cacheKey(code datatypes.Code, section string) string {
	return string(code) + ":" + section
}

// Get returns a deep copy of the cached record for (code, section).
//
// # Outputs
//
//   - *datatypes.SectionRecord: a copy owned by the caller, nil on miss.
//   - bool: false on miss. Expired and cross-contaminated entries are
//     deleted and reported as misses.
func (c *SectionCache) Get(code datatypes.Code, section string) (*datatypes.SectionRecord, bool) {
	key := cacheKey(code, section)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		c.misses++
		c.evictions++
		return nil, false
	}
	if e.record.Code != code {
		// Cross-code contamination: content stored under this slot belongs
		// to a different code. Never serve it; evict and re-resolve.
		delete(c.entries, key)
		c.misses++
		c.evictions++
		slog.Warn("cache: evicted cross-code entry",
			"key", key,
			"record_code", e.record.Code,
		)
		return nil, false
	}

	c.hits++
	return e.record.Clone(), true
}

// Put stores a record under (code, section), overwriting any previous
// entry. Records whose code does not match the key are refused.
func (c *SectionCache) Put(code datatypes.Code, section string, record *datatypes.SectionRecord) {
	if record == nil {
		return
	}
	if record.Code != code {
		slog.Warn("cache: refused store of mismatched record",
			"key_code", code,
			"record_code", record.Code,
			"section", section,
		)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(code, section)] = entry{
		record:   record.Clone(),
		storedAt: c.now(),
	}
}

// Len returns the current number of entries, expired or not.
func (c *SectionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of hit/miss/eviction counters.
func (c *SectionCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{
		Size:      len(c.entries),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		HitRate:   rate,
	}
}
