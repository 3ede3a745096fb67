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
	"fmt"
	"strings"

	"github.com/AleutianAI/CiteGuard/services/validator/resolver"
)

// sectionDelimiter frames each injected statute block so the model can
// tell authoritative text from conversation.
const sectionDelimiter = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// groundingInstruction tells the model how to treat the injected text.
// The phrasing is deliberate: the model must prefer the provided text over
// its parametric memory, and must say so when the text does not answer.
const groundingInstruction = `When answering, use ONLY the verified statute text provided above for any claims about these code sections. Do not rely on memorized statute content. If the provided text does not contain the answer, say so rather than reciting from memory.`

// buildAugmentedMessage renders the inlet output: the user's (sanitized)
// question, then the verified statute blocks, then the grounding
// instruction.
//
// Only verified resolutions contribute blocks; not-found, rejected, and
// failed citations add nothing here and are reported through the response
// status list instead.
func buildAugmentedMessage(original string, resolutions []resolver.Resolution) string {
	var verified []resolver.Resolution
	for _, res := range resolutions {
		if res.Status == resolver.StatusVerified && res.Record != nil {
			verified = append(verified, res)
		}
	}
	if len(verified) == 0 {
		return original
	}

	var b strings.Builder
	b.WriteString(sanitizeForPrompt(original))
	b.WriteString("\n\nVERIFIED STATUTE TEXT (retrieved from the authoritative source):\n")
	for _, res := range verified {
		rec := res.Record
		b.WriteString(sectionDelimiter)
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s Code § %s\n", rec.Code.DisplayName(), rec.Section)
		fmt.Fprintf(&b, "Location: %s\n", rec.HierarchyPath())
		if !rec.IsCurrent {
			b.WriteString("Status: NOT currently operative\n")
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(rec.Content))
		b.WriteString("\n")
		if rec.LegislativeHistory != "" {
			fmt.Fprintf(&b, "\nLegislative history: %s\n", rec.LegislativeHistory)
		}
	}
	b.WriteString(sectionDelimiter)
	b.WriteString("\n\n")
	b.WriteString(groundingInstruction)
	return b.String()
}
