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
	"log/slog"
	"strings"
)

// maxSanitizedLength bounds user text embedded into the augmented prompt.
const maxSanitizedLength = 10000

// injectionMarkers are phrases worth logging when they appear in user text
// that is about to be embedded into an instruction-bearing prompt. They
// are logged, not blocked: blocking on substrings punishes legitimate
// questions about prompt injection itself.
var injectionMarkers = []string{
	"ignore previous instructions",
	"ignore the above",
	"disregard the above",
	"system prompt",
	"you are now",
}

// sanitizeForPrompt neutralizes user text before it is embedded inside the
// augmented prompt.
//
// # Description
//
// Truncates to maxSanitizedLength, downgrades code fences so the embedded
// text cannot close a fence opened by the template, and doubles braces so
// the text survives any later template expansion verbatim. Known
// injection phrasing is logged for audit.
func sanitizeForPrompt(text string) string {
	if len(text) > maxSanitizedLength {
		text = text[:maxSanitizedLength]
	}

	lower := strings.ToLower(text)
	for _, marker := range injectionMarkers {
		if strings.Contains(lower, marker) {
			slog.Warn("sanitize: injection phrasing in user text", "marker", marker)
			break
		}
	}

	text = strings.ReplaceAll(text, "```", "'''")
	text = strings.ReplaceAll(text, "{", "{{")
	text = strings.ReplaceAll(text, "}", "}}")
	return text
}
