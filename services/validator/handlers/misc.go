// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// This file implements the health and stats endpoints.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/CiteGuard/services/validator/breaker"
	"github.com/AleutianAI/CiteGuard/services/validator/cache"
	"github.com/AleutianAI/CiteGuard/services/validator/pipeline"
)

// HealthCheck handles GET /health.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StatsResponse is the payload for GET /v1/filter/stats.
type StatsResponse struct {
	Cache   cache.Stats      `json:"cache"`
	Breaker breaker.Snapshot `json:"breaker"`
	Pending int              `json:"pending"`
}

// HandleStats returns the handler for GET /v1/filter/stats, a plain
// operational snapshot for humans and the CLI. Prometheus scraping uses
// /metrics instead.
func HandleStats(p *pipeline.Pipeline, sectionCache *cache.SectionCache, brk *breaker.Breaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, StatsResponse{
			Cache:   sectionCache.Stats(),
			Breaker: brk.Stats(),
			Pending: p.PendingLen(),
		})
	}
}
