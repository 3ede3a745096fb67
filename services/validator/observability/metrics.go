// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics for the citation validator.
//
// # Description
//
// This package implements Prometheus metrics for monitoring both filter
// phases. Metrics include:
//   - Citation counters (detected, verified, hallucinated, corrected)
//   - Breaker rejections and resolver errors by type
//   - Phase latency histograms (inlet, outlet)
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus + Grafana
// for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "citeguard"

// Subsystem for filter metrics
const filterSubsystem = "filter"

// ValidatorMetrics holds all Prometheus metrics for the validation
// pipeline.
//
// # Description
//
// Provides counters and histograms for monitoring citation detection and
// verification. Initialize once at startup via InitMetrics(); tests use
// NewMetricsWithRegistry with a private registry to avoid duplicate
// registration panics.
//
// # Thread Safety
//
// All operations are thread-safe.
type ValidatorMetrics struct {
	// CitationsDetected counts citations found in filtered text.
	// Labels: phase (inlet, outlet), source (pattern, model)
	CitationsDetected *prometheus.CounterVec

	// CitationsVerified counts citations confirmed against the
	// authoritative source (cache hits included).
	CitationsVerified prometheus.Counter

	// HallucinationsDetected counts citations in model replies that could
	// not be verified.
	HallucinationsDetected prometheus.Counter

	// CorrectionsApplied counts replies replaced by the contradiction
	// corrector.
	CorrectionsApplied prometheus.Counter

	// BreakerRejections counts lookups rejected while the breaker was open.
	BreakerRejections prometheus.Counter

	// ResolverErrors counts failed source lookups.
	// Labels: reason (transport, timeout, server)
	ResolverErrors *prometheus.CounterVec

	// PhaseDurationSeconds measures end-to-end filter phase latency.
	// Labels: phase (inlet, outlet)
	PhaseDurationSeconds *prometheus.HistogramVec
}

// DefaultMetrics is the singleton instance of ValidatorMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *ValidatorMetrics

// InitMetrics initializes the default metrics instance against the global
// Prometheus registry. Call once at startup; panics if called twice.
func InitMetrics() *ValidatorMetrics {
	DefaultMetrics = NewMetricsWithRegistry(nil)
	return DefaultMetrics
}

// NewMetricsWithRegistry creates a metrics instance registered against the
// given registry. A nil registry means the global default.
func NewMetricsWithRegistry(reg prometheus.Registerer) *ValidatorMetrics {
	factory := promauto.With(reg)
	if reg == nil {
		factory = promauto.With(prometheus.DefaultRegisterer)
	}

	return &ValidatorMetrics{
		CitationsDetected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: filterSubsystem,
				Name:      "citations_detected_total",
				Help:      "Total citations detected in filtered text by phase and detection source",
			},
			[]string{"phase", "source"},
		),

		CitationsVerified: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: filterSubsystem,
				Name:      "citations_verified_total",
				Help:      "Total citations verified against the authoritative source",
			},
		),

		HallucinationsDetected: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: filterSubsystem,
				Name:      "hallucinations_detected_total",
				Help:      "Total unverifiable citations found in model replies",
			},
		),

		CorrectionsApplied: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: filterSubsystem,
				Name:      "corrections_applied_total",
				Help:      "Total replies replaced after a detected contradiction",
			},
		),

		BreakerRejections: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: filterSubsystem,
				Name:      "breaker_rejections_total",
				Help:      "Total lookups rejected while the failure breaker was open",
			},
		),

		ResolverErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: filterSubsystem,
				Name:      "resolver_errors_total",
				Help:      "Total failed authoritative source lookups by reason",
			},
			[]string{"reason"},
		),

		PhaseDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: filterSubsystem,
				Name:      "phase_duration_seconds",
				Help:      "End-to-end filter phase latency in seconds",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"phase"},
		),
	}
}

// =============================================================================
// Label Values
// =============================================================================

// Phase labels a filter phase for metrics.
type Phase string

const (
	// PhaseInlet is the before-generation phase.
	PhaseInlet Phase = "inlet"

	// PhaseOutlet is the after-generation phase.
	PhaseOutlet Phase = "outlet"
)

// DetectionSource labels how a citation was found.
type DetectionSource string

const (
	// SourcePattern means the regex parser found the citation.
	SourcePattern DetectionSource = "pattern"

	// SourceModel means the extraction fallback found the citation.
	SourceModel DetectionSource = "model"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordDetected records citations found during a phase.
func (m *ValidatorMetrics) RecordDetected(phase Phase, source DetectionSource, n int) {
	if n > 0 {
		m.CitationsDetected.WithLabelValues(string(phase), string(source)).Add(float64(n))
	}
}

// RecordResolverError records a failed source lookup.
func (m *ValidatorMetrics) RecordResolverError(reason string) {
	m.ResolverErrors.WithLabelValues(reason).Inc()
}

// RecordPhaseDuration records how long a filter phase took.
func (m *ValidatorMetrics) RecordPhaseDuration(phase Phase, seconds float64) {
	m.PhaseDurationSeconds.WithLabelValues(string(phase)).Observe(seconds)
}
