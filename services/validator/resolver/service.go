// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolver

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/CiteGuard/services/validator/breaker"
	"github.com/AleutianAI/CiteGuard/services/validator/cache"
	"github.com/AleutianAI/CiteGuard/services/validator/datatypes"
)

// Status classifies the outcome of resolving one citation.
type Status int

const (
	// StatusVerified means the section exists and Record holds its content.
	StatusVerified Status = iota
	// StatusNotFound means the source answered definitively: no such section.
	StatusNotFound
	// StatusBreakerOpen means the lookup was rejected without a network
	// attempt because the source is known to be failing.
	StatusBreakerOpen
	// StatusError means the lookup failed (transport, timeout, server error).
	StatusError
)

// String implements fmt.Stringer. Values match the wire-level status
// strings in the filter responses.
func (s Status) String() string {
	switch s {
	case StatusVerified:
		return "verified"
	case StatusNotFound:
		return "not_found"
	case StatusBreakerOpen:
		return "breaker_open"
	default:
		return "error"
	}
}

// Resolution is the outcome of resolving one citation.
type Resolution struct {
	Citation datatypes.Citation
	Record   *datatypes.SectionRecord
	Status   Status
	Err      error
}

// SectionSource is the authoritative lookup behind the service. *Client
// implements it; tests substitute a stub.
type SectionSource interface {
	// Resolve returns the (possibly merged) record for (code, section),
	// ErrNotFound when the section does not exist, or a failure.
	Resolve(ctx context.Context, code datatypes.Code, section string) (*datatypes.SectionRecord, error)
}

// Service resolves batches of citations with caching, failure isolation,
// and a bounded time budget.
//
// # Description
//
// Each citation is answered from the cache when possible. Cache misses go
// through the breaker to the source; definitive answers (found or not
// found) count as source successes, transport failures and timeouts count
// as source failures. Only verified content is cached. Absence is never
// cached, so a recoverable outage cannot poison later lookups.
//
// The batch budget scales with the citation count (perCitation each) and
// is capped at maxBudget, so one message can never stall the conversation
// beyond a fixed bound.
//
// # Thread Safety
//
// Safe for concurrent use.
type Service struct {
	source      SectionSource
	cache       *cache.SectionCache
	brk         *breaker.Breaker
	perCitation time.Duration
	maxBudget   time.Duration
	maxParallel int
}

// NewService wires a resolution service.
//
// # Inputs
//
//   - perCitation: time allotted per citation in the batch budget.
//   - maxBudget: hard cap on the whole batch regardless of size.
//   - maxParallel: concurrent in-flight lookups per batch.
func NewService(source SectionSource, sectionCache *cache.SectionCache, brk *breaker.Breaker,
	perCitation, maxBudget time.Duration, maxParallel int) *Service {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Service{
		source:      source,
		cache:       sectionCache,
		brk:         brk,
		perCitation: perCitation,
		maxBudget:   maxBudget,
		maxParallel: maxParallel,
	}
}

// ResolveAll resolves every citation in the batch.
//
// # Outputs
//
//   - []Resolution: one per input citation, in input order. Citations the
//     budget expired on carry StatusError. Never returns an error; partial
//     outcomes are expressed per citation.
func (s *Service) ResolveAll(ctx context.Context, citations []datatypes.Citation) []Resolution {
	if len(citations) == 0 {
		return nil
	}

	budget := s.perCitation * time.Duration(len(citations))
	if budget > s.maxBudget {
		budget = s.maxBudget
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	results := make([]Resolution, len(citations))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)
	for i, cit := range citations {
		g.Go(func() error {
			res := s.resolveOne(gctx, cit)
			mu.Lock()
			results[i] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// ResolveOne resolves a single citation through cache and breaker with the
// per-citation budget.
func (s *Service) ResolveOne(ctx context.Context, cit datatypes.Citation) Resolution {
	ctx, cancel := context.WithTimeout(ctx, s.perCitation)
	defer cancel()
	return s.resolveOne(ctx, cit)
}

func (s *Service) resolveOne(ctx context.Context, cit datatypes.Citation) Resolution {
	if rec, ok := s.cache.Get(cit.Code, cit.Section); ok {
		return Resolution{Citation: cit, Record: rec, Status: StatusVerified}
	}

	if err := s.brk.Allow(); err != nil {
		slog.Debug("resolver: breaker rejected lookup", "citation", cit.Key())
		return Resolution{Citation: cit, Status: StatusBreakerOpen, Err: err}
	}

	rec, err := s.source.Resolve(ctx, cit.Code, cit.Section)
	switch {
	case err == nil:
		// A definitive answer proves the source is healthy.
		s.brk.RecordSuccess()
		s.cache.Put(cit.Code, cit.Section, rec)
		return Resolution{Citation: cit, Record: rec, Status: StatusVerified}

	case errors.Is(err, ErrNotFound):
		// "Does not exist" is also a healthy answer. It is not cached:
		// a later source-side correction must become visible immediately.
		s.brk.RecordSuccess()
		return Resolution{Citation: cit, Status: StatusNotFound, Err: err}

	default:
		s.brk.RecordFailure()
		slog.Warn("resolver: lookup failed",
			"citation", cit.Key(),
			"error", err,
		)
		return Resolution{Citation: cit, Status: StatusError, Err: err}
	}
}
