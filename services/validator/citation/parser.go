// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package citation extracts statute citations from free text.
//
// Extraction applies an ordered list of independent matcher strategies,
// one per citation dialect, then normalizes the matched code text through
// the alias table. New dialects are added by appending a matcher; existing
// matchers are never touched.
package citation

import (
	"regexp"
	"strings"

	"github.com/AleutianAI/CiteGuard/services/validator/datatypes"
)

// =============================================================================
// Matchers
// =============================================================================

// Candidate is a raw pattern match before alias normalization.
type Candidate struct {
	// CodeText is the captured code name or abbreviation, unnormalized.
	CodeText string
	// Section is the captured section number (at most one decimal point).
	Section string
	// Raw is the full matched substring.
	Raw string

	// codeStart is the byte offset of CodeText within Raw, used when the
	// parser trims unresolvable leading words off a long-form match.
	codeStart int
}

// Matcher finds citation candidates for one citation dialect.
//
// # Thread Safety
//
// Implementations must be stateless and safe for concurrent use.
type Matcher interface {
	// Match returns all candidates found in text, in source order.
	// Malformed candidates (e.g. section numbers with more than one
	// decimal component) are discarded by the matcher itself.
	Match(text string) []Candidate
}

// regexMatcher implements Matcher over a compiled pattern with two capture
// groups: (1) code text, (2) section number.
type regexMatcher struct {
	name string
	re   *regexp.Regexp
}

// The three pattern families, in fixed priority order.
//
//   - long form:     "[California] <Name> Code [Section] [§] <number>"
//   - official:      "PEN 187", "CCP §1234", "EVID 35"
//   - common short:  "PC 187", "CC 1234.5"
var (
	longFormMatcher = &regexMatcher{
		name: "long_form",
		re:   regexp.MustCompile(`(?i)(?:California\s+)?([A-Za-z][A-Za-z\s]*?)\s+Code\s+(?:Section\s+)?§?\s*(\d+(?:\.\d+)?)`),
	}
	officialAbbrevMatcher = &regexMatcher{
		name: "official_abbreviation",
		re:   regexp.MustCompile(`(?i)\b(PEN|CIV|CCP|FAM|GOV|CORP|PROB|EVID)\s+§?\s*(\d+(?:\.\d+)?)\b`),
	}
	shortFormMatcher = &regexMatcher{
		name: "common_short_form",
		re:   regexp.MustCompile(`(?i)\b(PC|CC|FC|GC|EC)\s+§?\s*(\d+(?:\.\d+)?)\b`),
	}
)

// Match implements Matcher.
func (m *regexMatcher) Match(text string) []Candidate {
	indexes := m.re.FindAllStringSubmatchIndex(text, -1)
	candidates := make([]Candidate, 0, len(indexes))
	for _, ix := range indexes {
		start, end := ix[0], ix[1]
		// Section numbers carry at most one decimal point. A match whose
		// tail continues with ".<digit>" is a malformed multi-decimal
		// number like "1234.5.6" and is discarded whole.
		if end+1 < len(text) && text[end] == '.' && isDigit(text[end+1]) {
			continue
		}
		candidates = append(candidates, Candidate{
			CodeText:  text[ix[2]:ix[3]],
			Section:   text[ix[4]:ix[5]],
			Raw:       text[start:end],
			codeStart: ix[2] - start,
		})
	}
	return candidates
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// =============================================================================
// Parser
// =============================================================================

// Parser turns free text into a deduplicated, ordered list of normalized
// citations.
//
// # Description
//
// Matchers run in priority order; the first match for a given
// (code, section) wins and its raw text is retained for later substring
// replacement. Matches whose code text does not resolve through the alias
// table are discarded silently; unknown aliases are never defaulted.
//
// # Thread Safety
//
// Stateless after construction; safe for concurrent use.
type Parser struct {
	matchers []Matcher
	aliases  *AliasTable
}

// NewParser creates a parser over the default matcher strategies.
func NewParser(aliases *AliasTable) *Parser {
	return &Parser{
		matchers: []Matcher{longFormMatcher, officialAbbrevMatcher, shortFormMatcher},
		aliases:  aliases,
	}
}

// Parse extracts all citations from text.
//
// # Outputs
//
//   - []datatypes.Citation: deduplicated by (code, section), ordered by
//     pattern-family priority then source order. Empty when no citation is
//     found; never an error.
func (p *Parser) Parse(text string) []datatypes.Citation {
	var citations []datatypes.Citation
	seen := make(map[string]struct{})

	for _, matcher := range p.matchers {
		for _, cand := range matcher.Match(text) {
			code, raw, ok := p.resolveCode(cand)
			if !ok {
				continue
			}
			cit := datatypes.Citation{Code: code, Section: cand.Section, RawText: raw}
			if _, dup := seen[cit.Key()]; dup {
				continue
			}
			seen[cit.Key()] = struct{}{}
			citations = append(citations, cit)
		}
	}
	return citations
}

// resolveCode maps a candidate's code text to a canonical code.
//
// Long-form matches can capture leading words that belong to the sentence
// rather than the code name ("What does Penal" before "Code Section 187").
// Unresolvable leading words are trimmed one at a time until the remaining
// suffix resolves; the returned raw text is trimmed to start at the first
// resolved word so substring replacement stays exact.
func (p *Parser) resolveCode(c Candidate) (datatypes.Code, string, bool) {
	rest := c.CodeText
	offset := 0
	for {
		if code, ok := p.aliases.Resolve(rest); ok {
			return code, c.Raw[c.codeStart+offset:], true
		}
		i := strings.IndexAny(rest, " \t\n\r")
		if i < 0 {
			return "", "", false
		}
		j := i
		for j < len(rest) && isSpace(rest[j]) {
			j++
		}
		offset += j
		rest = rest[j:]
	}
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
