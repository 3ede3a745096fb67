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

	"github.com/AleutianAI/CiteGuard/services/validator/datatypes"
	"github.com/AleutianAI/CiteGuard/services/validator/resolver"
)

// annotation marks appended to cited sections in the reply.
const (
	verifiedMark   = " ✓"
	unverifiedMark = " ⚠️"
)

// annotationResult is the outcome of marking up a model reply.
type annotationResult struct {
	message    string
	verified   int
	unverified []string
	notFound   int
}

// annotateReply marks every citation in the model's reply with its
// verification outcome.
//
// # Description
//
// Verified citations get a trailing check mark; everything else is
// struck through with a warning mark, because a citation the pipeline
// could not confirm must not read as authoritative, whether the source
// denied it or was unreachable. The distinction between "does not exist" and
// "could not check" is kept in the notFound count for logs and metrics,
// not in the user-facing marks. Only the first occurrence of each
// citation's raw text is annotated, so a section discussed repeatedly is
// not littered with marks. When anything was unverifiable, a summary
// block is appended naming the affected citations.
func annotateReply(reply string, citations []datatypes.Citation, resolutions []resolver.Resolution) annotationResult {
	byKey := make(map[string]resolver.Resolution, len(resolutions))
	for _, res := range resolutions {
		byKey[res.Citation.Key()] = res
	}

	result := annotationResult{message: reply}
	for _, cit := range citations {
		if cit.RawText == "" {
			continue
		}
		res, ok := byKey[cit.Key()]
		if !ok {
			continue
		}
		if res.Status == resolver.StatusVerified {
			result.message = strings.Replace(result.message, cit.RawText, cit.RawText+verifiedMark, 1)
			result.verified++
			continue
		}
		result.message = strings.Replace(result.message, cit.RawText, "~~"+cit.RawText+"~~"+unverifiedMark, 1)
		result.unverified = append(result.unverified, cit.RawText)
		if res.Status == resolver.StatusNotFound {
			result.notFound++
		}
	}

	if len(result.unverified) > 0 {
		var b strings.Builder
		b.WriteString(result.message)
		b.WriteString("\n\n---\n⚠️ **Citation check**: the following could not be verified against the authoritative statute database and may not exist:\n")
		for _, raw := range result.unverified {
			fmt.Fprintf(&b, "- %s\n", raw)
		}
		result.message = b.String()
	}
	return result
}
