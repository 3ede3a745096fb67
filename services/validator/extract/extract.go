// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package extract provides the model-assisted citation extraction
// fallback.
//
// The regex parser is the primary extractor. When it finds nothing but the
// text still looks like it references statutes ("the murder statute",
// "that section about community property"), a small model call can pull
// out citations the patterns cannot. Everything the model returns is
// validated against the closed code set before use; a hallucinated
// extraction must never enter the resolution path.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/AleutianAI/CiteGuard/services/validator/datatypes"
)

// extractionPrompt asks for strict JSON so the answer survives mechanical
// parsing. The code list is pinned to the canonical set.
const extractionPrompt = `Extract all references to California statute sections from the text below.
Return ONLY a JSON array, no prose. Each element: {"code": "<one of PEN, CIV, CCP, FAM, GOV, CORP, PROB, EVID>", "section": "<number>"}.
Return [] if there are none. Do not guess section numbers that are not stated or clearly implied.

Text:
%s`

// sectionNumberPattern is the shape of an acceptable extracted section
// number: digits with at most one decimal component.
var sectionNumberPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

// legalKeywords marks text worth a fallback extraction attempt even when
// no pattern matched.
var legalKeywords = []string{
	"statute", "section", "code", "law", "legal", "penal",
	"civil", "murder", "divorce", "custody", "contract",
	"probate", "evidence", "corporation",
}

// Extractor pulls citations out of text the regex parser could not read.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]datatypes.Citation, error)
}

// SeemsToReferenceCitations reports whether unparseable text still looks
// like it is talking about statutes, making a fallback extraction
// worthwhile.
func SeemsToReferenceCitations(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range legalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// OpenAIExtractor implements Extractor over the OpenAI chat API.
//
// # Thread Safety
//
// Safe for concurrent use.
type OpenAIExtractor struct {
	client *openai.Client
	model  string
}

// NewOpenAIExtractor creates an extractor with its own API client.
func NewOpenAIExtractor(apiKey, model string) (*OpenAIExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("extraction requires an API key")
	}
	if model == "" {
		model = "gpt-4o-mini"
		slog.Warn("extraction model not set, defaulting to gpt-4o-mini")
	}
	return &OpenAIExtractor{client: openai.NewClient(apiKey), model: model}, nil
}

// NewOpenAIExtractorWithClient creates an extractor over a caller-supplied
// client. Used by tests to point at a stub server.
func NewOpenAIExtractorWithClient(client *openai.Client, model string) *OpenAIExtractor {
	return &OpenAIExtractor{client: client, model: model}
}

// Extract asks the model for citations and validates every one.
//
// # Outputs
//
//   - []datatypes.Citation: validated extractions only. Elements with an
//     unknown code or a malformed section number are dropped, not fixed.
//   - error: API failure or an unparseable answer. Callers treat any error
//     as "no extractions"; the fallback must never block the pipeline.
func (e *OpenAIExtractor) Extract(ctx context.Context, text string) ([]datatypes.Citation, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf(extractionPrompt, text)},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("extraction returned no choices")
	}
	return parseExtractionAnswer(resp.Choices[0].Message.Content)
}

// extractedItem is one element of the model's JSON answer.
type extractedItem struct {
	Code    string `json:"code"`
	Section string `json:"section"`
}

// parseExtractionAnswer parses the model's answer, tolerating a
// code-fenced JSON block, and keeps only valid extractions.
func parseExtractionAnswer(answer string) ([]datatypes.Citation, error) {
	cleaned := stripFences(answer)

	var items []extractedItem
	if err := json.Unmarshal([]byte(cleaned), &items); err != nil {
		return nil, fmt.Errorf("failed to parse extraction answer: %w", err)
	}

	var citations []datatypes.Citation
	for _, item := range items {
		code := datatypes.Code(strings.ToUpper(strings.TrimSpace(item.Code)))
		section := strings.TrimSpace(item.Section)
		if !code.Valid() || !sectionNumberPattern.MatchString(section) {
			slog.Debug("extract: dropped invalid extraction",
				"code", item.Code,
				"section", item.Section,
			)
			continue
		}
		citations = append(citations, datatypes.Citation{Code: code, Section: section})
	}
	return citations, nil
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag, leaving bare JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.HasPrefix(s, "[") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
