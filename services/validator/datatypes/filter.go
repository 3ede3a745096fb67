// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file contains request and response types for the filter endpoints
// (the host invocation boundary): "before generation" (inlet) and
// "after generation" (outlet).
package datatypes

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxMessageContentBytes is the maximum size of a single message body.
	MaxMessageContentBytes = 32 * 1024 // 32KB

	// MaxHistoryMessages is the maximum number of prior messages accepted
	// on an inlet request.
	MaxHistoryMessages = 100
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// filterValidate is the validator instance for filter datatypes.
// Initialized in init() with custom validators.
var filterValidate *validator.Validate

func init() {
	filterValidate = validator.New()
	_ = filterValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes enforces MaxMessageContentBytes on string fields.
// Byte length (not rune count) is checked to bound memory, not characters.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxMessageContentBytes
}

// =============================================================================
// Messages
// =============================================================================

// Message is a single turn of the conversation surrounding the filtered
// exchange. History is only scanned for citations to pre-warm the cache;
// it is never modified.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"maxbytes"`
}

// =============================================================================
// Inlet (before generation)
// =============================================================================

// InletRequest is the payload for POST /v1/filter/inlet.
type InletRequest struct {
	// Id is a caller-supplied correlation ID. Generated when empty.
	Id string `json:"id,omitempty"`

	// Message is the outbound user text to scan and possibly augment.
	Message string `json:"message" validate:"required,maxbytes"`

	// History holds recent prior messages, newest last. Optional.
	History []Message `json:"history,omitempty" validate:"omitempty,max=100,dive"`
}

// EnsureDefaults populates the request ID when the caller omitted it.
func (r *InletRequest) EnsureDefaults() {
	if r.Id == "" {
		r.Id = "req_" + uuid.NewString()
	}
}

// Validate checks the request against the declared constraints.
func (r *InletRequest) Validate() error {
	if err := filterValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid inlet request: %w", err)
	}
	return nil
}

// CitationStatus reports the resolution outcome for one citation found in
// a filtered message.
type CitationStatus struct {
	Code    Code   `json:"code"`
	Section string `json:"section"`
	// Status is one of "verified", "not_found", "breaker_open", "error".
	Status string `json:"status"`
}

// InletResponse is the result of inlet filtering. Message is the text the
// host should send downstream; it equals the request message when nothing
// was injected.
type InletResponse struct {
	Id        string           `json:"id"`
	Message   string           `json:"message"`
	Injected  bool             `json:"injected"`
	Citations []CitationStatus `json:"citations,omitempty"`
}

// =============================================================================
// Outlet (after generation)
// =============================================================================

// OutletRequest is the payload for POST /v1/filter/outlet.
//
// UserMessage must be the user text the model actually received (i.e. the
// inlet response message, if injection happened). It is the only channel
// the core relies on to correlate the two phases; out-of-band metadata may
// be stripped by the host.
type OutletRequest struct {
	Id               string `json:"id,omitempty"`
	UserMessage      string `json:"user_message" validate:"maxbytes"`
	AssistantMessage string `json:"assistant_message" validate:"required,maxbytes"`
}

// EnsureDefaults populates the request ID when the caller omitted it.
func (r *OutletRequest) EnsureDefaults() {
	if r.Id == "" {
		r.Id = "req_" + uuid.NewString()
	}
}

// Validate checks the request against the declared constraints.
func (r *OutletRequest) Validate() error {
	if err := filterValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid outlet request: %w", err)
	}
	return nil
}

// OutletResponse is the result of outlet validation. Message is the
// (possibly annotated or fully replaced) reply text.
type OutletResponse struct {
	Id         string   `json:"id"`
	Message    string   `json:"message"`
	Verified   int      `json:"verified"`
	Unverified []string `json:"unverified,omitempty"`
	Corrected  bool     `json:"corrected"`
}
