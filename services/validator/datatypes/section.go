// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the citation validator
// service.
//
// This file contains the statute domain model: canonical code identifiers,
// parsed citations, and section records returned by the authoritative
// statute source.
package datatypes

import (
	"strings"
	"time"
)

// =============================================================================
// Canonical Codes
// =============================================================================

// Code is a canonical California statute code identifier.
//
// # Description
//
// Code is the domain component of every cache and lookup key. The set of
// valid codes is closed: aliases that do not map into this set are rejected
// at parse time, never defaulted.
type Code string

const (
	CodePenal          Code = "PEN"
	CodeCivil          Code = "CIV"
	CodeCivilProcedure Code = "CCP"
	CodeFamily         Code = "FAM"
	CodeGovernment     Code = "GOV"
	CodeCorporations   Code = "CORP"
	CodeProbate        Code = "PROB"
	CodeEvidence       Code = "EVID"
)

// codeNames maps canonical codes to their display names.
var codeNames = map[Code]string{
	CodePenal:          "Penal",
	CodeCivil:          "Civil",
	CodeCivilProcedure: "Code of Civil Procedure",
	CodeFamily:         "Family",
	CodeGovernment:     "Government",
	CodeCorporations:   "Corporations",
	CodeProbate:        "Probate",
	CodeEvidence:       "Evidence",
}

// Valid reports whether c is a member of the closed canonical code set.
func (c Code) Valid() bool {
	_, ok := codeNames[c]
	return ok
}

// DisplayName returns the human-readable name of the code ("Penal",
// "Code of Civil Procedure"). Unknown codes fall back to their raw value.
func (c Code) DisplayName() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return string(c)
}

// AllCodes returns the closed set of canonical codes in a stable order.
func AllCodes() []Code {
	return []Code{
		CodePenal, CodeCivil, CodeCivilProcedure, CodeFamily,
		CodeGovernment, CodeCorporations, CodeProbate, CodeEvidence,
	}
}

// =============================================================================
// Citations
// =============================================================================

// Citation is a parsed reference to a statute section, normalized to a
// canonical code and section number.
//
// # Description
//
// Two citations are the same entity iff (Code, Section) match. RawText
// retains the exact substring that matched in the source text, per first
// occurrence, so the response validator can annotate it in place later.
// Citations are created per parse call and never mutated.
type Citation struct {
	Code    Code   `json:"code"`
	Section string `json:"section"`
	RawText string `json:"raw_text,omitempty"`
}

// Key returns the identity key for deduplication and cache addressing,
// e.g. "PEN-187".
func (c Citation) Key() string {
	return string(c.Code) + "-" + c.Section
}

// =============================================================================
// Section Records
// =============================================================================

// SectionRecord is the authoritative content of one statute section.
//
// # Description
//
// Records are owned by the cache entry that holds them and are always
// cloned before being handed to a caller, so consumer-side mutation cannot
// corrupt the cached original. A record may be a composite merged from
// multiple operative versions of the same section; in that case Content
// carries per-version headers and LegislativeHistory concatenates all
// versions.
//
// # Fields
//
//   - Code, Section: the (code, section) identity of the record.
//   - Content: the statute text (or merged multi-version text).
//   - LegislativeHistory: enactment/amendment notes, possibly merged.
//   - Division/Part/Chapter/Article: hierarchy location, any may be empty.
//   - SourceURL: where the section was fetched from.
//   - IsCurrent: whether any merged version is currently operative.
//   - VersionNumber: the version ordinal reported by the source.
//   - OperativeDates: operative date range / status header text.
//   - FetchedAt: when the record was retrieved from the source.
type SectionRecord struct {
	Code               Code      `json:"code"`
	Section            string    `json:"section"`
	Content            string    `json:"content"`
	LegislativeHistory string    `json:"legislative_history,omitempty"`
	Division           string    `json:"division,omitempty"`
	Part               string    `json:"part,omitempty"`
	Chapter            string    `json:"chapter,omitempty"`
	Article            string    `json:"article,omitempty"`
	SourceURL          string    `json:"url,omitempty"`
	IsCurrent          bool      `json:"is_current"`
	VersionNumber      int       `json:"version_number,omitempty"`
	OperativeDates     string    `json:"operative_dates,omitempty"`
	FetchedAt          time.Time `json:"fetched_at,omitempty"`
}

// Clone returns a deep copy of the record.
//
// All fields are value types, so a shallow copy is a deep copy today; the
// method exists so every hand-off point copies through one place.
func (r *SectionRecord) Clone() *SectionRecord {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

// HierarchyPath renders the record's location as a breadcrumb, e.g.
// "Division 3 > Part 4 > Chapter 1". Returns "N/A" when no hierarchy
// fields are set.
func (r *SectionRecord) HierarchyPath() string {
	var parts []string
	if r.Division != "" {
		parts = append(parts, "Division "+r.Division)
	}
	if r.Part != "" {
		parts = append(parts, "Part "+r.Part)
	}
	if r.Chapter != "" {
		parts = append(parts, "Chapter "+r.Chapter)
	}
	if r.Article != "" {
		parts = append(parts, "Article "+r.Article)
	}
	if len(parts) == 0 {
		return "N/A"
	}
	return strings.Join(parts, " > ")
}
