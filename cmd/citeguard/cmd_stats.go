// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	statsServiceURL string // Base URL of the running validator service
	statsJSONOutput bool   // Output as JSON
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// statsCmd fetches the operational snapshot from a running validator.
//
// # Examples
//
//	citeguard stats
//	citeguard stats --service http://validator:12230 --json
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache, breaker, and correlation-table counters of a running validator",
	Run:   runStatsCommand,
}

func init() {
	statsCmd.Flags().StringVar(&statsServiceURL, "service", "http://localhost:12230",
		"Base URL of the running validator service")
	statsCmd.Flags().BoolVar(&statsJSONOutput, "json", false,
		"Output as JSON for scripting")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// statsPayload mirrors the validator's stats response.
type statsPayload struct {
	Cache struct {
		Size      int     `json:"size"`
		Hits      uint64  `json:"hits"`
		Misses    uint64  `json:"misses"`
		Evictions uint64  `json:"evictions"`
		HitRate   float64 `json:"hit_rate"`
	} `json:"cache"`
	Breaker struct {
		State    string `json:"state"`
		Failures int    `json:"failures"`
	} `json:"breaker"`
	Pending int `json:"pending"`
}

func runStatsCommand(cmd *cobra.Command, args []string) {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(statsServiceURL + "/v1/filter/stats")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Could not reach the validator at %s: %v\n", statsServiceURL, err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read stats response: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Validator returned status %d: %s\n", resp.StatusCode, string(body))
		os.Exit(1)
	}

	if statsJSONOutput {
		fmt.Println(string(body))
		return
	}

	var payload statsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse stats response: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Cache")
	fmt.Printf("  entries:   %d\n", payload.Cache.Size)
	fmt.Printf("  hits:      %d\n", payload.Cache.Hits)
	fmt.Printf("  misses:    %d\n", payload.Cache.Misses)
	fmt.Printf("  evictions: %d\n", payload.Cache.Evictions)
	fmt.Printf("  hit rate:  %.1f%%\n", payload.Cache.HitRate*100)
	fmt.Println("Breaker")
	fmt.Printf("  state:    %s\n", payload.Breaker.State)
	fmt.Printf("  failures: %d\n", payload.Breaker.Failures)
	fmt.Printf("Pending correlations: %d\n", payload.Pending)
}
