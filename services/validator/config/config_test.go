// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"testing"
	"time"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv with a clean environment failed: %v", err)
	}

	if cfg.Port != 12230 {
		t.Errorf("Port = %d, want 12230", cfg.Port)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %v, want 1h", cfg.CacheTTL)
	}
	if cfg.BreakerThreshold != 5 {
		t.Errorf("BreakerThreshold = %d, want 5", cfg.BreakerThreshold)
	}
	if cfg.BreakerCooldown != 60*time.Second {
		t.Errorf("BreakerCooldown = %v, want 60s", cfg.BreakerCooldown)
	}
	if cfg.MaxBatchBudget != 20*time.Second {
		t.Errorf("MaxBatchBudget = %v, want 20s", cfg.MaxBatchBudget)
	}
	if !cfg.EnableInjection || !cfg.EnableValidation {
		t.Error("Both filter phases should default on")
	}
	if cfg.EnableLLMExtraction {
		t.Error("LLM extraction should default off")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("CITEGUARD_PORT", "9999")
	t.Setenv("CITEGUARD_CACHE_TTL", "30m")
	t.Setenv("CITEGUARD_BREAKER_THRESHOLD", "3")
	t.Setenv("CITEGUARD_ENABLE_VALIDATION", "false")
	t.Setenv("CITEGUARD_STATUTE_SOURCE_URL", "http://statutes:8080")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Port)
	}
	if cfg.CacheTTL != 30*time.Minute {
		t.Errorf("CacheTTL = %v, want 30m", cfg.CacheTTL)
	}
	if cfg.BreakerThreshold != 3 {
		t.Errorf("BreakerThreshold = %d, want 3", cfg.BreakerThreshold)
	}
	if cfg.EnableValidation {
		t.Error("EnableValidation override ignored")
	}
	if cfg.StatuteSourceURL != "http://statutes:8080" {
		t.Errorf("StatuteSourceURL = %q", cfg.StatuteSourceURL)
	}
}

func TestFromEnv_InvalidValue(t *testing.T) {
	t.Setenv("CITEGUARD_PORT", "not-a-number")

	if _, err := FromEnv(); err == nil {
		t.Error("Invalid port should fail loading")
	}
}

func TestFromEnv_ExtractionRequiresKey(t *testing.T) {
	t.Setenv("CITEGUARD_ENABLE_LLM_EXTRACTION", "true")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.EnableLLMExtraction {
		t.Error("Extraction without an API key should be forced off")
	}
}
