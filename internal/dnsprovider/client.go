// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package dnsprovider implements the Cloudflare-compatible DNS record
// client used by the L3 mutation tier of the DDNS reconciler.
package dnsprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bkaewell/ddns-agent/internal/check"
	"github.com/bkaewell/ddns-agent/internal/errorsx"
)

// Client talks to a single Cloudflare-compatible zone's DNS records API.
type Client struct {
	baseURL  string
	apiToken string
	zoneID   string
	http     *http.Client
}

// NewClient builds a Client. apiToken and zoneID are assumed already
// validated by config.Load; reaching here with either empty indicates a
// wiring bug in the caller, not a runtime condition to recover from.
func NewClient(baseURL, apiToken, zoneID string) *Client {
	check.Check(apiToken != "", "dnsprovider.NewClient: apiToken must not be empty")
	check.Check(zoneID != "", "dnsprovider.NewClient: zoneID must not be empty")
	return &Client{
		baseURL:  baseURL,
		apiToken: apiToken,
		zoneID:   zoneID,
		http:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Record is a single DNS record as reported by the provider's list API.
type Record struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
}

type listResponse struct {
	Result []Record `json:"result"`
}

// FindARecord performs GET /zones/{zone}/dns_records?name={host}&type=A
// and locates the single matching A-record. More than one match returns
// ErrMultipleRecords; zero matches returns ErrRecordNotFound.
func (c *Client) FindARecord(ctx context.Context, hostname string) (Record, error) {
	url := c.baseURL + "/zones/" + c.zoneID + "/dns_records?name=" + hostname + "&type=A"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Record{}, errorsx.Wrap(err, "failed to build list request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return Record{}, errorsx.Wrap(err, "list request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Record{}, errorsx.Errorf("dnsprovider: list request returned status %s", resp.Status)
	}

	var parsed listResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Record{}, errorsx.Wrap(err, "failed to decode list response")
	}

	matches := make([]Record, 0, 1)
	for _, r := range parsed.Result {
		if r.Type == "A" && r.Name == hostname {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return Record{}, ErrRecordNotFound
	case 1:
		return matches[0], nil
	default:
		return Record{}, ErrMultipleRecords
	}
}

type updateRequest struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Content string `json:"content"`
	TTL     int    `json:"ttl"`
	Proxied bool   `json:"proxied"`
}

// UpdateRecord performs PUT /zones/{zone}/dns_records/{recordID} with the
// new content and ttl. Non-2xx or transport errors are reported as
// ErrUpdateFailed.
func (c *Client) UpdateRecord(ctx context.Context, recordID, hostname, content string, ttl int) error {
	body, err := json.Marshal(updateRequest{Type: "A", Name: hostname, Content: content, TTL: ttl, Proxied: false})
	if err != nil {
		return errorsx.Wrap(err, "failed to encode update request")
	}

	url := c.baseURL + "/zones/" + c.zoneID + "/dns_records/" + recordID
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return errorsx.WrapErr(err, ErrUpdateFailed)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errorsx.WrapErr(err, ErrUpdateFailed)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorsx.Wrapf(ErrUpdateFailed, "status %s", resp.Status)
	}
	return nil
}
