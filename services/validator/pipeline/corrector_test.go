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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/CiteGuard/services/validator/datatypes"
	"github.com/AleutianAI/CiteGuard/services/validator/resolver"
)

func verifiedFamilyResolution() resolver.Resolution {
	return resolver.Resolution{
		Citation: datatypes.Citation{Code: datatypes.CodeFamily, Section: "761"},
		Record:   familyRecord(),
		Status:   resolver.StatusVerified,
	}
}

func TestCorrector_Detect_DenialTemplates(t *testing.T) {
	corrector, err := NewCorrector()
	require.NoError(t, err)
	resolutions := []resolver.Resolution{verifiedFamilyResolution()}

	for _, reply := range []string{
		"There is no Family Code section 761 in California law.",
		"THERE IS NO FAMILY CODE SECTION 761.",
		"I checked and section 761 does not exist.",
		"There is no such section as 761 anywhere.",
	} {
		if _, ok := corrector.Detect(reply, resolutions); !ok {
			t.Errorf("Detect(%q) missed a denial", reply)
		}
	}
}

func TestCorrector_Detect_Misattribution(t *testing.T) {
	corrector, err := NewCorrector()
	require.NoError(t, err)
	resolutions := []resolver.Resolution{verifiedFamilyResolution()}

	res, ok := corrector.Detect("Actually, section 761 belongs to the probate code.", resolutions)
	require.True(t, ok, "misattribution to another code is a contradiction")
	assert.Equal(t, "FAM-761", res.Citation.Key())
}

func TestCorrector_Detect_FixedPhrases(t *testing.T) {
	corrector, err := NewCorrector()
	require.NoError(t, err)
	resolutions := []resolver.Resolution{verifiedFamilyResolution()}

	_, ok := corrector.Detect("The database is mistaken about that provision.", resolutions)
	assert.True(t, ok)
}

func TestCorrector_Detect_CleanReply(t *testing.T) {
	corrector, err := NewCorrector()
	require.NoError(t, err)
	resolutions := []resolver.Resolution{verifiedFamilyResolution()}

	for _, reply := range []string{
		"Family Code Section 761 keeps trust-held community property as community property.",
		"Section 761 governs this situation directly.",
		"That provision was amended in 1992.",
	} {
		if _, ok := corrector.Detect(reply, resolutions); ok {
			t.Errorf("Detect(%q) flagged a clean reply", reply)
		}
	}
}

func TestCorrector_Detect_IgnoresUnverifiedResolutions(t *testing.T) {
	corrector, err := NewCorrector()
	require.NoError(t, err)
	resolutions := []resolver.Resolution{{
		Citation: datatypes.Citation{Code: datatypes.CodeFamily, Section: "761"},
		Status:   resolver.StatusNotFound,
	}}

	_, ok := corrector.Detect("There is no Family Code section 761.", resolutions)
	assert.False(t, ok, "a denial of an unverified section is not a contradiction")
}

func TestCorrector_Correct_CarriesAuthoritativeText(t *testing.T) {
	corrector, err := NewCorrector()
	require.NoError(t, err)

	replacement := corrector.Correct(verifiedFamilyResolution())
	assert.Contains(t, replacement, "Correction: Family Code § 761 does exist")
	assert.Contains(t, replacement, "community property that is transferred in trust")
	assert.Contains(t, replacement, "Location: Division 4 > Part 2")
	assert.Contains(t, replacement, "Enacted by Stats. 1992, Ch. 162.")
}

func TestCorrector_Correct_MarksNonCurrentVersions(t *testing.T) {
	corrector, err := NewCorrector()
	require.NoError(t, err)

	res := verifiedFamilyResolution()
	res.Record.IsCurrent = false
	replacement := corrector.Correct(res)
	assert.Contains(t, replacement, "no longer operative")
}
