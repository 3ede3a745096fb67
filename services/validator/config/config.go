// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads validator service configuration from the
// environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config is the full validator service configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port int

	// StatuteSourceURL is the base URL of the authoritative statute API.
	StatuteSourceURL string

	// StatuteSourceRPS is the sustained request rate toward the source.
	StatuteSourceRPS float64

	// CacheTTL bounds how long a verified section record is served without
	// re-resolution.
	CacheTTL time.Duration

	// BreakerThreshold is the consecutive failure count that opens the
	// failure breaker.
	BreakerThreshold int

	// BreakerCooldown is how long the breaker stays open before allowing
	// a trial call.
	BreakerCooldown time.Duration

	// PerCitationBudget is the resolution time allotted per citation.
	PerCitationBudget time.Duration

	// MaxBatchBudget caps the whole-batch resolution budget.
	MaxBatchBudget time.Duration

	// MaxParallelLookups bounds concurrent source lookups per batch.
	MaxParallelLookups int

	// PendingCap bounds the inlet-to-outlet correlation table.
	PendingCap int

	// PendingTTL expires correlation entries with no matching outlet.
	PendingTTL time.Duration

	// MinMessageLength is the shortest message worth scanning.
	MinMessageLength int

	// MaxContextMessages bounds history scanning on the inlet.
	MaxContextMessages int

	// EnableInjection / EnableValidation toggle the two filter phases.
	EnableInjection  bool
	EnableValidation bool

	// IncludeHistory extends inlet scanning over recent history.
	IncludeHistory bool

	// EnableLLMExtraction turns on the model-assisted extraction fallback.
	// Requires OpenAIAPIKey.
	EnableLLMExtraction bool

	// OpenAIAPIKey and OpenAIModel configure the extraction fallback.
	OpenAIAPIKey string
	OpenAIModel  string

	// OTLPEndpoint is the trace collector address; empty disables export.
	OTLPEndpoint string
}

// FromEnv builds the configuration from environment variables, applying
// defaults for everything unset.
//
// # Outputs
//
//   - *Config: the resolved configuration.
//   - error: only when a set variable fails to parse; unset variables
//     never error.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:                12230,
		StatuteSourceURL:    "http://localhost:12231",
		StatuteSourceRPS:    10,
		CacheTTL:            time.Hour,
		BreakerThreshold:    5,
		BreakerCooldown:     60 * time.Second,
		PerCitationBudget:   5 * time.Second,
		MaxBatchBudget:      20 * time.Second,
		MaxParallelLookups:  4,
		PendingCap:          100,
		PendingTTL:          10 * time.Minute,
		MinMessageLength:    10,
		MaxContextMessages:  5,
		EnableInjection:     true,
		EnableValidation:    true,
		IncludeHistory:      true,
		EnableLLMExtraction: false,
		OpenAIModel:         "gpt-4o-mini",
	}

	var err error
	if cfg.Port, err = envInt("CITEGUARD_PORT", cfg.Port); err != nil {
		return nil, err
	}
	cfg.StatuteSourceURL = envString("CITEGUARD_STATUTE_SOURCE_URL", cfg.StatuteSourceURL)
	if cfg.StatuteSourceRPS, err = envFloat("CITEGUARD_STATUTE_SOURCE_RPS", cfg.StatuteSourceRPS); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = envDuration("CITEGUARD_CACHE_TTL", cfg.CacheTTL); err != nil {
		return nil, err
	}
	if cfg.BreakerThreshold, err = envInt("CITEGUARD_BREAKER_THRESHOLD", cfg.BreakerThreshold); err != nil {
		return nil, err
	}
	if cfg.BreakerCooldown, err = envDuration("CITEGUARD_BREAKER_COOLDOWN", cfg.BreakerCooldown); err != nil {
		return nil, err
	}
	if cfg.PerCitationBudget, err = envDuration("CITEGUARD_PER_CITATION_BUDGET", cfg.PerCitationBudget); err != nil {
		return nil, err
	}
	if cfg.MaxBatchBudget, err = envDuration("CITEGUARD_MAX_BATCH_BUDGET", cfg.MaxBatchBudget); err != nil {
		return nil, err
	}
	if cfg.MaxParallelLookups, err = envInt("CITEGUARD_MAX_PARALLEL_LOOKUPS", cfg.MaxParallelLookups); err != nil {
		return nil, err
	}
	if cfg.PendingCap, err = envInt("CITEGUARD_PENDING_CAP", cfg.PendingCap); err != nil {
		return nil, err
	}
	if cfg.PendingTTL, err = envDuration("CITEGUARD_PENDING_TTL", cfg.PendingTTL); err != nil {
		return nil, err
	}
	if cfg.MinMessageLength, err = envInt("CITEGUARD_MIN_MESSAGE_LENGTH", cfg.MinMessageLength); err != nil {
		return nil, err
	}
	if cfg.MaxContextMessages, err = envInt("CITEGUARD_MAX_CONTEXT_MESSAGES", cfg.MaxContextMessages); err != nil {
		return nil, err
	}
	if cfg.EnableInjection, err = envBool("CITEGUARD_ENABLE_INJECTION", cfg.EnableInjection); err != nil {
		return nil, err
	}
	if cfg.EnableValidation, err = envBool("CITEGUARD_ENABLE_VALIDATION", cfg.EnableValidation); err != nil {
		return nil, err
	}
	if cfg.IncludeHistory, err = envBool("CITEGUARD_INCLUDE_HISTORY", cfg.IncludeHistory); err != nil {
		return nil, err
	}
	if cfg.EnableLLMExtraction, err = envBool("CITEGUARD_ENABLE_LLM_EXTRACTION", cfg.EnableLLMExtraction); err != nil {
		return nil, err
	}
	cfg.OpenAIAPIKey = envString("OPENAI_API_KEY", "")
	cfg.OpenAIModel = envString("OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OTLPEndpoint = envString("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	if cfg.EnableLLMExtraction && cfg.OpenAIAPIKey == "" {
		slog.Warn("LLM extraction enabled without OPENAI_API_KEY, disabling")
		cfg.EnableLLMExtraction = false
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
