// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers provides HTTP request handlers for the validator
// service.
//
// This file implements the two filter endpoints wrapping the pipeline
// phases.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/CiteGuard/services/validator/datatypes"
	"github.com/AleutianAI/CiteGuard/services/validator/pipeline"
	"github.com/AleutianAI/CiteGuard/services/validator/resolver"
)

// HandleInlet returns the handler for POST /v1/filter/inlet.
//
// # Description
//
// Runs the before-generation phase: scans the user message for statute
// citations, resolves them, and returns the (possibly augmented) message
// the host should send to the model.
//
// A pipeline failure returns the original message with injected=false
// rather than an error status. The filter sits in the conversation path;
// degrading to passthrough is always preferable to blocking the exchange.
func HandleInlet(p *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.InletRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := p.PreGeneration(c.Request.Context(), req.Message, req.History)
		if err != nil {
			slog.Error("inlet filtering failed, passing message through",
				"request_id", req.Id,
				"error", err,
			)
			c.JSON(http.StatusOK, datatypes.InletResponse{
				Id:      req.Id,
				Message: req.Message,
			})
			return
		}

		c.JSON(http.StatusOK, datatypes.InletResponse{
			Id:        req.Id,
			Message:   result.Message,
			Injected:  result.Injected,
			Citations: citationStatuses(result.Resolutions),
		})
	}
}

// HandleOutlet returns the handler for POST /v1/filter/outlet.
//
// # Description
//
// Runs the after-generation phase: verifies the citations in the model's
// reply, annotates them, and replaces the reply when it contradicts
// statute text verified on the way in.
func HandleOutlet(p *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.OutletRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := p.PostGeneration(c.Request.Context(), req.UserMessage, req.AssistantMessage)
		if err != nil {
			slog.Error("outlet filtering failed, passing reply through",
				"request_id", req.Id,
				"error", err,
			)
			c.JSON(http.StatusOK, datatypes.OutletResponse{
				Id:      req.Id,
				Message: req.AssistantMessage,
			})
			return
		}

		c.JSON(http.StatusOK, datatypes.OutletResponse{
			Id:         req.Id,
			Message:    result.Message,
			Verified:   result.Verified,
			Unverified: result.Unverified,
			Corrected:  result.Corrected,
		})
	}
}

// citationStatuses flattens resolutions into the wire-level status list.
func citationStatuses(resolutions []resolver.Resolution) []datatypes.CitationStatus {
	if len(resolutions) == 0 {
		return nil
	}
	statuses := make([]datatypes.CitationStatus, 0, len(resolutions))
	for _, res := range resolutions {
		statuses = append(statuses, datatypes.CitationStatus{
			Code:    res.Citation.Code,
			Section: res.Citation.Section,
			Status:  res.Status.String(),
		})
	}
	return statuses
}
