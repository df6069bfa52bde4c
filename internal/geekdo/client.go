// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

// Package geekdo provides a read-only client for the GeekDo
// (BoardGameGeek) XML API v2 plays feed, plus the domain models and
// unique-entity extraction the sync engine consumes.
package geekdo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the official GeekDo XML API endpoint.
const DefaultBaseURL = "https://boardgamegeek.com/xmlapi2"

// Config holds configuration for the GeekDo client.
type Config struct {
	BaseURL      string        // defaults to DefaultBaseURL
	Token        string        // bearer token, sent as-is
	Timeout      time.Duration // per-request timeout, defaults to 30s
	RequestDelay time.Duration // pacing between successive page requests, defaults to 1s
	Logger       *slog.Logger
	HTTPClient   *http.Client // overrides the default client, mainly for tests
}

// Client fetches pages of the plays feed. Successive requests are
// paced by RequestDelay; the first request goes out immediately.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a GeekDo API client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = 1 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		httpc:   httpc,
		limiter: rate.NewLimiter(rate.Every(cfg.RequestDelay), 1),
		logger:  cfg.Logger,
	}
}

// Plays fetches one page of plays for a user. Page numbering starts at
// 1. A zero minDate means no lower bound; otherwise the server prunes
// plays before that date.
func (c *Client) Plays(ctx context.Context, username string, page int, minDate time.Time) (*PlaysPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("username", username)
	q.Set("page", strconv.Itoa(page))
	if !minDate.IsZero() {
		q.Set("mindate", minDate.Format(DateLayout))
	}
	reqURL := c.baseURL + "/plays?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build plays request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("Fetching plays page", "username", username, "page", page, "mindate", q.Get("mindate"))

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch plays page %d: %w", page, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read plays response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("plays page %d: unexpected status %d: %s", page, resp.StatusCode, snippet(body))
	}

	parsed, err := ParsePlaysPage(body)
	if err != nil {
		return nil, fmt.Errorf("parse plays page %d: %w", page, err)
	}

	c.logger.Debug("Parsed plays page", "page", page, "plays", len(parsed.Plays), "total", parsed.Total)
	return parsed, nil
}

func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
