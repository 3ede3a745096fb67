// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package citation

import (
	"testing"

	"github.com/AleutianAI/CiteGuard/services/validator/datatypes"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	aliases, err := NewAliasTable()
	if err != nil {
		t.Fatalf("Failed to load the alias table: %v", err)
	}
	return NewParser(aliases)
}

// TestParser_Parse_EquivalentForms tests that the three citation dialects
// normalize to the same (code, section) identity.
func TestParser_Parse_EquivalentForms(t *testing.T) {
	parser := newTestParser(t)

	for _, text := range []string{
		"What does Penal Code Section 187 say?",
		"What does PEN 187 say?",
		"What does PC 187 say?",
	} {
		citations := parser.Parse(text)
		if len(citations) != 1 {
			t.Fatalf("Parse(%q) returned %d citations, want 1: %v", text, len(citations), citations)
		}
		got := citations[0]
		if got.Code != datatypes.CodePenal || got.Section != "187" {
			t.Errorf("Parse(%q) = %s-%s, want PEN-187", text, got.Code, got.Section)
		}
	}
}

// TestParser_Parse_LongFormTrimsSentenceWords tests that sentence words
// preceding the code name are not swallowed into the raw text.
func TestParser_Parse_LongFormTrimsSentenceWords(t *testing.T) {
	parser := newTestParser(t)

	citations := parser.Parse("Tell me about the California Family Code Section 761 today")
	if len(citations) != 1 {
		t.Fatalf("Expected 1 citation, got %d", len(citations))
	}
	if citations[0].Code != datatypes.CodeFamily || citations[0].Section != "761" {
		t.Errorf("Got %s-%s, want FAM-761", citations[0].Code, citations[0].Section)
	}
}

// TestParser_Parse_RawTextReplaceable tests that the retained raw text is
// an exact substring of the source, so annotation-by-replacement works.
func TestParser_Parse_RawTextReplaceable(t *testing.T) {
	parser := newTestParser(t)
	text := "Murder is defined in Penal Code Section 187 of California law."

	citations := parser.Parse(text)
	if len(citations) != 1 {
		t.Fatalf("Expected 1 citation, got %d", len(citations))
	}
	if citations[0].RawText != "Penal Code Section 187" {
		t.Errorf("RawText = %q, want %q", citations[0].RawText, "Penal Code Section 187")
	}
}

// TestParser_Parse_DeduplicatesAcrossDialects tests that the same section
// cited in two dialects yields one citation, keeping the raw text of the
// higher-priority pattern.
func TestParser_Parse_DeduplicatesAcrossDialects(t *testing.T) {
	parser := newTestParser(t)

	citations := parser.Parse("Penal Code Section 187, also written PC 187.")
	if len(citations) != 1 {
		t.Fatalf("Expected 1 deduplicated citation, got %d: %v", len(citations), citations)
	}
	if citations[0].RawText != "Penal Code Section 187" {
		t.Errorf("RawText = %q, want the long-form match retained", citations[0].RawText)
	}
}

// TestParser_Parse_MultipleCitations tests extraction of distinct
// citations from one message.
func TestParser_Parse_MultipleCitations(t *testing.T) {
	parser := newTestParser(t)

	citations := parser.Parse("Compare Family Code Section 761 with CCP 1234 and EVID 35.")
	if len(citations) != 3 {
		t.Fatalf("Expected 3 citations, got %d: %v", len(citations), citations)
	}

	want := map[string]bool{"FAM-761": false, "CCP-1234": false, "EVID-35": false}
	for _, cit := range citations {
		if _, ok := want[cit.Key()]; !ok {
			t.Errorf("Unexpected citation %s", cit.Key())
			continue
		}
		want[cit.Key()] = true
	}
	for key, found := range want {
		if !found {
			t.Errorf("Missing citation %s", key)
		}
	}
}

// TestParser_Parse_RejectsMultiDecimalSections tests that malformed
// section numbers with stacked decimals are discarded whole.
func TestParser_Parse_RejectsMultiDecimalSections(t *testing.T) {
	parser := newTestParser(t)

	if citations := parser.Parse("See Penal Code Section 1234.5.6 for details."); len(citations) != 0 {
		t.Errorf("Multi-decimal section should be rejected, got %v", citations)
	}
}

// TestParser_Parse_AcceptsSingleDecimalSections tests the common
// one-decimal section form.
func TestParser_Parse_AcceptsSingleDecimalSections(t *testing.T) {
	parser := newTestParser(t)

	citations := parser.Parse("Civil Code Section 1798.100 covers consumer privacy.")
	if len(citations) != 1 || citations[0].Section != "1798.100" {
		t.Fatalf("Expected CIV-1798.100, got %v", citations)
	}
}

// TestParser_Parse_UnknownCodeDropped tests that an unrecognized code name
// never defaults to some canonical code.
func TestParser_Parse_UnknownCodeDropped(t *testing.T) {
	parser := newTestParser(t)

	if citations := parser.Parse("See the Maritime Code Section 99."); len(citations) != 0 {
		t.Errorf("Unknown code should be dropped, got %v", citations)
	}
}

// TestParser_Parse_NoCitations tests plain text passes through empty.
func TestParser_Parse_NoCitations(t *testing.T) {
	parser := newTestParser(t)

	if citations := parser.Parse("What is the weather like in Sacramento?"); len(citations) != 0 {
		t.Errorf("Expected no citations, got %v", citations)
	}
}

// TestParser_Parse_SectionSymbol tests the section symbol variants.
func TestParser_Parse_SectionSymbol(t *testing.T) {
	parser := newTestParser(t)

	for _, text := range []string{
		"Penal Code § 187",
		"Penal Code §187",
		"PEN § 187",
	} {
		citations := parser.Parse(text)
		if len(citations) != 1 || citations[0].Key() != "PEN-187" {
			t.Errorf("Parse(%q) = %v, want exactly PEN-187", text, citations)
		}
	}
}
