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
	"fmt"
	"strings"

	"github.com/AleutianAI/CiteGuard/services/validator/datatypes"
	"github.com/AleutianAI/CiteGuard/services/validator/rules"
	"gopkg.in/yaml.v3"
)

// aliasFile mirrors the structure of the embedded code_aliases.yaml.
type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// AliasTable maps free-form statute code names and abbreviations to
// canonical code identifiers.
//
// # Description
//
// The table is loaded once from the rule data embedded in the binary.
// Lookups are case-insensitive and whitespace-normalized. Every alias maps
// to exactly one canonical code; loading fails if an alias targets a code
// outside the closed set, so an invalid data file cannot silently widen
// the domain.
//
// # Thread Safety
//
// Read-only after construction; safe for concurrent use.
type AliasTable struct {
	aliases map[string]datatypes.Code
}

// NewAliasTable loads the alias table from the embedded rule data.
//
// Returns an error if the embedded YAML is malformed, empty, or contains
// an alias mapped to an unknown canonical code.
func NewAliasTable() (*AliasTable, error) {
	var file aliasFile
	if err := yaml.Unmarshal(rules.CodeAliases, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal the embedded alias file: %w", err)
	}
	if len(file.Aliases) == 0 {
		return nil, fmt.Errorf("embedded alias file contains no aliases")
	}

	table := &AliasTable{aliases: make(map[string]datatypes.Code, len(file.Aliases))}
	for alias, code := range file.Aliases {
		canonical := datatypes.Code(code)
		if !canonical.Valid() {
			return nil, fmt.Errorf("alias %q maps to unknown code %q", alias, code)
		}
		table.aliases[normalizeAlias(alias)] = canonical
	}
	return table, nil
}

// Resolve maps a raw code name or abbreviation to its canonical code.
// The second return value is false when the alias is unknown; callers
// must drop the citation in that case, not default it.
func (t *AliasTable) Resolve(raw string) (datatypes.Code, bool) {
	code, ok := t.aliases[normalizeAlias(raw)]
	return code, ok
}

// Len returns the number of loaded aliases.
func (t *AliasTable) Len() int {
	return len(t.aliases)
}

// normalizeAlias lowercases and collapses all interior whitespace to
// single spaces, so "Code  of civil\tProcedure" and "code of civil
// procedure" resolve identically.
func normalizeAlias(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
