// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
This file serves as the bridge between the build system and the runtime logic.
It uses the Go embed package to bake the rule data files directly into the
compiled binary, so the alias table and contradiction phrase list are
immutable at runtime and travel with the executable.
*/

package rules

import (
	_ "embed"
)

// CodeAliases holds the raw byte content of 'code_aliases.yaml': the static
// mapping from free-form statute code names and abbreviations to canonical
// code identifiers.
//
// Usage:
//
//	// Pass these bytes directly to yaml.Unmarshal
//	err := yaml.Unmarshal(rules.CodeAliases, &targetStruct)
//
//go:embed code_aliases.yaml
var CodeAliases []byte

// ContradictionPhrases holds the raw byte content of
// 'contradiction_phrases.yaml': the hand-curated phrase list used by the
// contradiction corrector. The list is data, not code: it has been tuned
// empirically to reduce false positives and is expected to change without
// touching detection logic.
//
//go:embed contradiction_phrases.yaml
var ContradictionPhrases []byte
