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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/CiteGuard/services/validator/datatypes"
	"github.com/AleutianAI/CiteGuard/services/validator/resolver"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	lookupSourceURL  string // Base URL of the authoritative statute source
	lookupJSONOutput bool   // Output as JSON
	lookupTimeout    string // Per-request timeout (e.g., "5s")
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// lookupCmd resolves one section directly against the statute source,
// bypassing the validator service. Useful for checking what the validator
// would inject for a citation.
//
// # Examples
//
//	citeguard lookup PEN 187
//	citeguard lookup FAM 761 --json
var lookupCmd = &cobra.Command{
	Use:   "lookup CODE SECTION",
	Short: "Resolve a statute section against the authoritative source",
	Args:  cobra.ExactArgs(2),
	Run:   runLookupCommand,
}

func init() {
	lookupCmd.Flags().StringVar(&lookupSourceURL, "source", "http://localhost:12231",
		"Base URL of the authoritative statute source")
	lookupCmd.Flags().BoolVar(&lookupJSONOutput, "json", false,
		"Output as JSON for scripting")
	lookupCmd.Flags().StringVar(&lookupTimeout, "timeout", "10s",
		"Request timeout (e.g., 5s, 30s)")
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runLookupCommand(cmd *cobra.Command, args []string) {
	code := datatypes.Code(strings.ToUpper(args[0]))
	section := args[1]
	if !code.Valid() {
		fmt.Fprintf(os.Stderr, "Unknown code %q. Valid codes: %v\n", args[0], datatypes.AllCodes())
		os.Exit(1)
	}

	timeout, err := time.ParseDuration(lookupTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid timeout %q: %v\n", lookupTimeout, err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := resolver.NewClient(lookupSourceURL, timeout, 10)
	record, err := client.Resolve(ctx, code, section)
	if err != nil {
		if errors.Is(err, resolver.ErrNotFound) {
			fmt.Printf("%s Code § %s does not exist in the authoritative source.\n",
				code.DisplayName(), section)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Lookup failed: %v\n", err)
		os.Exit(1)
	}

	if lookupJSONOutput {
		out, _ := json.MarshalIndent(record, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Printf("%s Code § %s\n", record.Code.DisplayName(), record.Section)
	fmt.Printf("Location: %s\n", record.HierarchyPath())
	if !record.IsCurrent {
		fmt.Println("Status: NOT currently operative")
	}
	fmt.Println()
	fmt.Println(strings.TrimSpace(record.Content))
	if record.LegislativeHistory != "" {
		fmt.Printf("\nLegislative history: %s\n", record.LegislativeHistory)
	}
	if record.SourceURL != "" {
		fmt.Printf("Source: %s\n", record.SourceURL)
	}
}
