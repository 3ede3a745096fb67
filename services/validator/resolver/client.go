// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package resolver looks statute sections up against the authoritative
// source and orchestrates cache, failure breaker, and time budgets around
// those lookups.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/CiteGuard/services/validator/datatypes"
)

// ErrNotFound indicates the authoritative source answered and the section
// does not exist. It is a definitive outcome, not a failure: it must never
// trip the breaker and must never be cached as content.
var ErrNotFound = errors.New("section not found")

// ResolveError is a transport-level or server-side failure talking to the
// authoritative source.
type ResolveError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("statute source error (status %d): %s", e.StatusCode, e.Message)
}

// IsResolveError reports whether err is a ResolveError.
func IsResolveError(err error) bool {
	var re *ResolveError
	return errors.As(err, &re)
}

// Client fetches section records from the authoritative statute source
// over HTTP.
//
// # Thread Safety
//
// Safe for concurrent use; the rate limiter serializes request admission.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a client for the statute source at baseURL.
//
// # Inputs
//
//   - baseURL: scheme and host of the source, no trailing slash needed.
//   - timeout: per-request HTTP timeout.
//   - rps: sustained request rate toward the source; bursts of up to twice
//     the rate are allowed so a single message's citations go out together.
func NewClient(baseURL string, timeout time.Duration, rps float64) *Client {
	burst := int(rps * 2)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// NewClientWithHTTPClient creates a client over a caller-supplied
// *http.Client. Used by tests to point at an httptest server.
func NewClientWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
}

// sectionResponse is the wire shape of a section lookup answer.
type sectionResponse struct {
	Matches []datatypes.SectionRecord `json:"matches"`
}

// FetchSection retrieves all operative versions of (code, section).
//
// # Outputs
//
//   - []datatypes.SectionRecord: zero or more versions. A zero-length
//     result means the source answered and the section does not exist.
//   - error: transport failure, context cancellation, or a non-2xx answer
//     other than 404 (as *ResolveError).
func (c *Client) FetchSection(ctx context.Context, code datatypes.Code, section string) ([]datatypes.SectionRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/codes/%s/sections/%s?current=true",
		c.baseURL, url.PathEscape(string(code)), url.PathEscape(section))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build section request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("section request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &ResolveError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	var parsed sectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode section response: %w", err)
	}
	return parsed.Matches, nil
}

// Resolve retrieves the composite record for (code, section).
//
// # Outputs
//
//   - *datatypes.SectionRecord: the single version, or a composite merged
//     from all operative versions when the source returns several.
//   - error: ErrNotFound when the section definitively does not exist;
//     otherwise the transport or server failure from FetchSection.
func (c *Client) Resolve(ctx context.Context, code datatypes.Code, section string) (*datatypes.SectionRecord, error) {
	matches, err := c.FetchSection(ctx, code, section)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	if len(matches) == 1 {
		rec := matches[0]
		if rec.FetchedAt.IsZero() {
			rec.FetchedAt = time.Now()
		}
		return &rec, nil
	}
	return MergeVersions(code, section, matches), nil
}

// MergeVersions folds multiple operative versions of one section into a
// single composite record.
//
// # Description
//
// Sections under staged amendment exist in several simultaneously
// operative versions. Rather than pick one and lose the others, the
// composite carries every version's text under a header naming its
// version ordinal and operative dates, and concatenates the legislative
// histories. IsCurrent is true if any version is current; hierarchy
// fields come from the first current version, else the first version.
func MergeVersions(code datatypes.Code, section string, versions []datatypes.SectionRecord) *datatypes.SectionRecord {
	sorted := make([]datatypes.SectionRecord, len(versions))
	copy(sorted, versions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].VersionNumber < sorted[j].VersionNumber
	})

	primary := &sorted[0]
	for i := range sorted {
		if sorted[i].IsCurrent {
			primary = &sorted[i]
			break
		}
	}

	var content strings.Builder
	var history []string
	anyCurrent := false
	for i, v := range sorted {
		if i > 0 {
			content.WriteString("\n\n")
		}
		header := fmt.Sprintf("[Version %d", v.VersionNumber)
		if v.OperativeDates != "" {
			header += ", operative " + v.OperativeDates
		}
		if v.IsCurrent {
			header += ", current"
			anyCurrent = true
		}
		header += "]"
		content.WriteString(header)
		content.WriteString("\n")
		content.WriteString(v.Content)

		if h := strings.TrimSpace(v.LegislativeHistory); h != "" {
			history = append(history, h)
		}
	}

	return &datatypes.SectionRecord{
		Code:               code,
		Section:            section,
		Content:            content.String(),
		LegislativeHistory: strings.Join(history, " | "),
		Division:           primary.Division,
		Part:               primary.Part,
		Chapter:            primary.Chapter,
		Article:            primary.Article,
		SourceURL:          primary.SourceURL,
		IsCurrent:          anyCurrent,
		VersionNumber:      sorted[len(sorted)-1].VersionNumber,
		OperativeDates:     primary.OperativeDates,
		FetchedAt:          time.Now(),
	}
}
