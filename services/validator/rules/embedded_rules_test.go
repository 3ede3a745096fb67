// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"testing"

	"gopkg.in/yaml.v3"
)

// TestEmbeddedFilesParse guards against a malformed rule file reaching a
// release; the embed succeeds at compile time, the YAML only fails at
// startup.
func TestEmbeddedFilesParse(t *testing.T) {
	var aliases struct {
		Aliases map[string]string `yaml:"aliases"`
	}
	if err := yaml.Unmarshal(CodeAliases, &aliases); err != nil {
		t.Fatalf("code_aliases.yaml does not parse: %v", err)
	}
	if len(aliases.Aliases) == 0 {
		t.Error("code_aliases.yaml has no aliases")
	}

	var phrases struct {
		Templates []string `yaml:"templates"`
		Phrases   []string `yaml:"phrases"`
	}
	if err := yaml.Unmarshal(ContradictionPhrases, &phrases); err != nil {
		t.Fatalf("contradiction_phrases.yaml does not parse: %v", err)
	}
	if len(phrases.Templates) == 0 {
		t.Error("contradiction_phrases.yaml has no templates")
	}
}
