// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pipeline orchestrates the two filter phases around a model
// exchange: citation grounding before generation (inlet) and citation
// verification after generation (outlet).
package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AleutianAI/CiteGuard/services/validator/citation"
	"github.com/AleutianAI/CiteGuard/services/validator/datatypes"
	"github.com/AleutianAI/CiteGuard/services/validator/extract"
	"github.com/AleutianAI/CiteGuard/services/validator/observability"
	"github.com/AleutianAI/CiteGuard/services/validator/resolver"
)

var tracer = otel.Tracer("citeguard/validator/pipeline")

// Config controls pipeline behavior. Zero values are not usable; build
// one from the service configuration.
type Config struct {
	// EnableInjection turns the inlet phase on.
	EnableInjection bool

	// EnableValidation turns the outlet phase on.
	EnableValidation bool

	// IncludeHistory extends inlet citation scanning over recent history
	// messages to pre-warm the cache and widen grounding.
	IncludeHistory bool

	// MinMessageLength is the shortest message worth scanning.
	MinMessageLength int

	// MaxContextMessages bounds how many trailing history messages are
	// scanned when IncludeHistory is set.
	MaxContextMessages int

	// PendingCap bounds the inlet-to-outlet correlation table.
	PendingCap int

	// PendingTTL expires correlation entries whose outlet never arrived.
	PendingTTL time.Duration

	// EnableLLMExtraction turns on the model-assisted extraction fallback
	// for text the pattern parser cannot read.
	EnableLLMExtraction bool
}

// InletResult is the outcome of the before-generation phase.
type InletResult struct {
	// Message is the text to send downstream; equals the input when
	// nothing was injected.
	Message string

	// Resolutions holds the outcome for every citation found, in order.
	Resolutions []resolver.Resolution

	// Injected reports whether Message differs from the input.
	Injected bool
}

// OutletResult is the outcome of the after-generation phase.
type OutletResult struct {
	// Message is the (possibly annotated or replaced) reply text.
	Message string

	// Verified counts reply citations confirmed against the source.
	Verified int

	// Unverified lists the raw text of reply citations that definitively
	// do not exist.
	Unverified []string

	// Corrected reports whether the reply was replaced outright after a
	// detected contradiction.
	Corrected bool
}

// Pipeline wires the parser, resolver, corrector, and correlation store
// into the two filter phases.
//
// # Thread Safety
//
// Safe for concurrent use; per-exchange state lives in the bounded
// pending store.
type Pipeline struct {
	parser    *citation.Parser
	resolver  *resolver.Service
	corrector *Corrector
	extractor extract.Extractor
	pending   *pendingStore
	metrics   *observability.ValidatorMetrics
	cfg       Config
}

// New wires a pipeline. extractor may be nil when the fallback is
// disabled; metrics may be nil in tests.
func New(parser *citation.Parser, resolverSvc *resolver.Service, corrector *Corrector,
	extractor extract.Extractor, metrics *observability.ValidatorMetrics, cfg Config) *Pipeline {
	return &Pipeline{
		parser:    parser,
		resolver:  resolverSvc,
		corrector: corrector,
		extractor: extractor,
		pending:   newPendingStore(cfg.PendingCap, cfg.PendingTTL, time.Now),
		metrics:   metrics,
		cfg:       cfg,
	}
}

// PendingLen reports the correlation table size, for the stats surface.
func (p *Pipeline) PendingLen() int {
	return p.pending.Len()
}

// =============================================================================
// Inlet (before generation)
// =============================================================================

// PreGeneration scans an outbound user message for statute citations,
// resolves them, and injects verified statute text ahead of the message.
//
// # Outputs
//
//   - *InletResult: always non-nil on nil error. When the message is
//     skipped or contains no citations, Message equals the input.
//   - error: reserved; resolution failures degrade per citation instead.
func (p *Pipeline) PreGeneration(ctx context.Context, message string, history []datatypes.Message) (*InletResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.PreGeneration")
	defer span.End()
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordPhaseDuration(observability.PhaseInlet, time.Since(start).Seconds())
		}
	}()

	passthrough := &InletResult{Message: message}
	if !p.cfg.EnableInjection || p.shouldSkip(message) {
		return passthrough, nil
	}

	citations := p.parser.Parse(message)
	if p.metrics != nil {
		p.metrics.RecordDetected(observability.PhaseInlet, observability.SourcePattern, len(citations))
	}

	if len(citations) == 0 && p.cfg.EnableLLMExtraction && p.extractor != nil &&
		extract.SeemsToReferenceCitations(message) {
		extracted, err := p.extractor.Extract(ctx, message)
		if err != nil {
			// The fallback is best effort; a failed extraction call must
			// never block the conversation.
			slog.Warn("pipeline: extraction fallback failed", "error", err)
		} else {
			citations = extracted
			if p.metrics != nil {
				p.metrics.RecordDetected(observability.PhaseInlet, observability.SourceModel, len(extracted))
			}
		}
	}

	if p.cfg.IncludeHistory {
		citations = p.mergeHistoryCitations(citations, history)
	}
	if len(citations) == 0 {
		return passthrough, nil
	}
	span.SetAttributes(attribute.Int("citations.count", len(citations)))

	resolutions := p.resolver.ResolveAll(ctx, citations)
	p.recordResolutionMetrics(resolutions)

	augmented := buildAugmentedMessage(message, resolutions)
	result := &InletResult{
		Message:     augmented,
		Resolutions: resolutions,
		Injected:    augmented != message,
	}

	// Keyed by the exact text the model will receive; the outlet phase
	// recomputes the hash from the user message it is handed.
	p.pending.Put(hashMessage(augmented), resolutions)

	slog.Info("pipeline: inlet complete",
		"citations", len(citations),
		"injected", result.Injected,
	)
	return result, nil
}

// shouldSkip filters out messages that cannot plausibly cite a statute.
func (p *Pipeline) shouldSkip(message string) bool {
	trimmed := strings.TrimSpace(message)
	if len(trimmed) < p.cfg.MinMessageLength {
		return true
	}
	return false
}

// mergeHistoryCitations appends citations found in the trailing history
// messages, deduplicated against those already found.
func (p *Pipeline) mergeHistoryCitations(citations []datatypes.Citation, history []datatypes.Message) []datatypes.Citation {
	seen := make(map[string]struct{}, len(citations))
	for _, cit := range citations {
		seen[cit.Key()] = struct{}{}
	}

	from := 0
	if len(history) > p.cfg.MaxContextMessages {
		from = len(history) - p.cfg.MaxContextMessages
	}
	for _, msg := range history[from:] {
		for _, cit := range p.parser.Parse(msg.Content) {
			if _, dup := seen[cit.Key()]; dup {
				continue
			}
			seen[cit.Key()] = struct{}{}
			// History citations ground the exchange but were not written
			// by the current message; clear the raw text so they are
			// never annotated into the reply by substring accident.
			cit.RawText = ""
			citations = append(citations, cit)
		}
	}
	return citations
}

// =============================================================================
// Outlet (after generation)
// =============================================================================

// PostGeneration verifies the citations in a model reply, annotates them
// in place, and replaces the reply outright when it contradicts statute
// text verified during the inlet phase.
//
// # Outputs
//
//   - *OutletResult: always non-nil on nil error. Message equals the
//     input reply when it contains no citations and no contradiction.
//   - error: reserved; resolution failures degrade per citation instead.
func (p *Pipeline) PostGeneration(ctx context.Context, userMessage, reply string) (*OutletResult, error) {
	ctx, span := tracer.Start(ctx, "pipeline.PostGeneration")
	defer span.End()
	start := time.Now()
	defer func() {
		if p.metrics != nil {
			p.metrics.RecordPhaseDuration(observability.PhaseOutlet, time.Since(start).Seconds())
		}
	}()

	result := &OutletResult{Message: reply}
	if !p.cfg.EnableValidation {
		return result, nil
	}

	inletResolutions, _ := p.pending.Take(hashMessage(userMessage))

	citations := p.parser.Parse(reply)
	if p.metrics != nil {
		p.metrics.RecordDetected(observability.PhaseOutlet, observability.SourcePattern, len(citations))
	}
	span.SetAttributes(attribute.Int("citations.count", len(citations)))

	if len(citations) > 0 {
		resolutions := p.resolver.ResolveAll(ctx, citations)
		p.recordResolutionMetrics(resolutions)

		annotated := annotateReply(reply, citations, resolutions)
		result.Message = annotated.message
		result.Verified = annotated.verified
		result.Unverified = annotated.unverified
		// Only definitive denials count as hallucinations; an unreachable
		// source says nothing about the model.
		if p.metrics != nil && annotated.notFound > 0 {
			p.metrics.HallucinationsDetected.Add(float64(annotated.notFound))
		}
	}

	// Contradiction detection runs against the original reply: annotation
	// must not mask or mangle the phrasing being matched.
	if p.corrector != nil && len(inletResolutions) > 0 {
		if contradicted, ok := p.corrector.Detect(reply, inletResolutions); ok {
			result.Message = p.corrector.Correct(contradicted)
			result.Corrected = true
			if p.metrics != nil {
				p.metrics.CorrectionsApplied.Inc()
			}
			slog.Warn("pipeline: reply contradicted verified statute, replaced",
				"citation", contradicted.Citation.Key(),
			)
		}
	}

	return result, nil
}

// recordResolutionMetrics folds a resolution batch into the counters.
func (p *Pipeline) recordResolutionMetrics(resolutions []resolver.Resolution) {
	if p.metrics == nil {
		return
	}
	for _, res := range resolutions {
		switch res.Status {
		case resolver.StatusVerified:
			p.metrics.CitationsVerified.Inc()
		case resolver.StatusBreakerOpen:
			p.metrics.BreakerRejections.Inc()
		case resolver.StatusError:
			reason := "transport"
			if resolver.IsResolveError(res.Err) {
				reason = "server"
			} else if res.Err != nil && strings.Contains(res.Err.Error(), "context deadline") {
				reason = "timeout"
			}
			p.metrics.RecordResolverError(reason)
		}
	}
}
