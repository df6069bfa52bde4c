// Copyright 2025 The geekdo-sync Authors
// SPDX-License-Identifier: Apache-2.0

// Package grist implements the destination store against the Grist
// records REST API. Grist's add-or-update endpoint is keyed on the
// "require" fields of each record, which maps directly onto the sync
// engine's natural-key upsert contract.
package grist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gsync "github.com/pedorich-n/geekdo-sync/internal/sync"
)

// DefaultBaseURL is the hosted Grist endpoint.
const DefaultBaseURL = "https://docs.getgrist.com"

// Config holds configuration for the Grist client.
type Config struct {
	BaseURL    string // defaults to DefaultBaseURL
	APIKey     string
	DocID      string
	Timeout    time.Duration // per-request timeout, defaults to 30s
	Logger     *slog.Logger
	HTTPClient *http.Client // overrides the default client, mainly for tests
}

// Client talks to one Grist document. It implements sync.Store.
type Client struct {
	baseURL string
	apiKey  string
	docID   string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient creates a Grist records API client for one document.
func NewClient(cfg Config) (*Client, error) {
	if cfg.DocID == "" {
		return nil, fmt.Errorf("grist: doc id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
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
		apiKey:  cfg.APIKey,
		docID:   cfg.DocID,
		httpc:   httpc,
		logger:  cfg.Logger,
	}, nil
}

// Wire models for the records API.

type listResponse struct {
	Records []listRecord `json:"records"`
}

type listRecord struct {
	ID     int64          `json:"id"`
	Fields map[string]any `json:"fields"`
}

type upsertRequest struct {
	Records []upsertRecord `json:"records"`
}

type upsertRecord struct {
	Require map[string]any `json:"require"`
	Fields  map[string]any `json:"fields"`
}

// List fetches records from a table. Sort and limit pass through to
// the API ("-Col" sorts descending, Grist-style).
func (c *Client) List(ctx context.Context, table string, opts gsync.ListOptions) ([]gsync.Row, error) {
	q := url.Values{}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	endpoint := c.recordsURL(table)
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var decoded listResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("grist: decode list response for %s: %w", table, err)
	}

	rows := make([]gsync.Row, 0, len(decoded.Records))
	for _, rec := range decoded.Records {
		rows = append(rows, gsync.Row{ID: gsync.RowID(rec.ID), Fields: rec.Fields})
	}
	c.logger.Debug("Listed records", "table", table, "count", len(rows))
	return rows, nil
}

// Upsert add-or-updates records keyed on their require fields.
func (c *Client) Upsert(ctx context.Context, table string, records []gsync.UpsertRecord) error {
	if len(records) == 0 {
		return nil
	}

	req := upsertRequest{Records: make([]upsertRecord, 0, len(records))}
	for _, rec := range records {
		req.Records = append(req.Records, upsertRecord{Require: rec.Require, Fields: rec.Fields})
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("grist: encode upsert request for %s: %w", table, err)
	}

	if _, err := c.do(ctx, http.MethodPut, c.recordsURL(table), payload); err != nil {
		return err
	}
	c.logger.Debug("Upserted records", "table", table, "count", len(records))
	return nil
}

func (c *Client) recordsURL(table string) string {
	return fmt.Sprintf("%s/api/docs/%s/tables/%s/records", c.baseURL, url.PathEscape(c.docID), url.PathEscape(table))
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("grist: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grist: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("grist: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("grist: %s %s: status %d: %s", method, endpoint, resp.StatusCode, snippet(body))
	}
	return body, nil
}

func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
