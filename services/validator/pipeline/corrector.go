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

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/CiteGuard/services/validator/datatypes"
	"github.com/AleutianAI/CiteGuard/services/validator/resolver"
	"github.com/AleutianAI/CiteGuard/services/validator/rules"
)

// contradictionFile mirrors the structure of the embedded
// contradiction_phrases.yaml.
type contradictionFile struct {
	Templates []string `yaml:"templates"`
	Phrases   []string `yaml:"phrases"`
}

// Corrector detects replies that deny the existence of a section the
// pipeline just verified, and replaces them with the authoritative text.
//
// # Description
//
// Detection expands the embedded phrase templates once per verified
// citation ({section}, {code_name}, and {other_code} over every other
// canonical code for misattribution) and matches case-insensitively
// against the reply. The fixed phrases match verbatim; they only matter
// in the presence of a verified citation, which is the only context the
// corrector runs in.
//
// Replacement is total: a reply that contradicts verified statute text is
// wrong at its core, and annotating it would present the user with an
// authoritative-looking denial plus a footnote. The replacement carries
// the verified text itself.
//
// # Thread Safety
//
// Read-only after construction; safe for concurrent use.
type Corrector struct {
	templates []string
	phrases   []string
}

// NewCorrector loads the contradiction phrase data embedded in the
// binary.
func NewCorrector() (*Corrector, error) {
	var file contradictionFile
	if err := yaml.Unmarshal(rules.ContradictionPhrases, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded contradiction file: %w", err)
	}
	if len(file.Templates) == 0 {
		return nil, fmt.Errorf("embedded contradiction file contains no templates")
	}
	return &Corrector{templates: file.Templates, phrases: file.Phrases}, nil
}

// Detect reports whether the reply contradicts any verified resolution,
// returning the first contradicted resolution.
func (c *Corrector) Detect(reply string, resolutions []resolver.Resolution) (resolver.Resolution, bool) {
	lower := strings.ToLower(reply)

	for _, res := range resolutions {
		if res.Status != resolver.StatusVerified || res.Record == nil {
			continue
		}
		for _, pattern := range c.expandTemplates(res.Citation) {
			if strings.Contains(lower, pattern) {
				return res, true
			}
		}
	}

	// Fixed phrases are citation-independent. They count as a
	// contradiction only because this method runs with at least one
	// verified citation in scope; the first one receives the correction.
	for _, res := range resolutions {
		if res.Status != resolver.StatusVerified || res.Record == nil {
			continue
		}
		for _, phrase := range c.phrases {
			if strings.Contains(lower, strings.ToLower(phrase)) {
				return res, true
			}
		}
		break
	}

	return resolver.Resolution{}, false
}

// expandTemplates renders the detection patterns for one citation,
// lowercased for case-insensitive matching.
func (c *Corrector) expandTemplates(cit datatypes.Citation) []string {
	codeName := strings.ToLower(cit.Code.DisplayName())

	var patterns []string
	for _, tmpl := range c.templates {
		expanded := strings.ReplaceAll(tmpl, "{section}", cit.Section)
		expanded = strings.ReplaceAll(expanded, "{code_name}", codeName)
		if strings.Contains(expanded, "{other_code}") {
			for _, other := range datatypes.AllCodes() {
				if other == cit.Code {
					continue
				}
				patterns = append(patterns,
					strings.ToLower(strings.ReplaceAll(expanded, "{other_code}", strings.ToLower(other.DisplayName()))))
			}
			continue
		}
		patterns = append(patterns, strings.ToLower(expanded))
	}
	return patterns
}

// Correct builds the replacement reply for a contradicted resolution.
func (c *Corrector) Correct(res resolver.Resolution) string {
	rec := res.Record

	var b strings.Builder
	fmt.Fprintf(&b, "Correction: %s Code § %s does exist. The previous response was inaccurate.\n\n",
		rec.Code.DisplayName(), rec.Section)
	fmt.Fprintf(&b, "**%s Code § %s**", rec.Code.DisplayName(), rec.Section)
	if !rec.IsCurrent {
		b.WriteString(" *(a version of this section is no longer operative; see the version headers below)*")
	}
	b.WriteString("\n\n")
	if path := rec.HierarchyPath(); path != "N/A" {
		fmt.Fprintf(&b, "Location: %s\n\n", path)
	}
	b.WriteString(strings.TrimSpace(rec.Content))
	b.WriteString("\n")
	if rec.LegislativeHistory != "" {
		fmt.Fprintf(&b, "\nLegislative history: %s\n", rec.LegislativeHistory)
	}
	if rec.SourceURL != "" {
		fmt.Fprintf(&b, "\nSource: %s\n", rec.SourceURL)
	}
	return b.String()
}
