// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package relay isolates the two fixed-timeout HTTP calls the recovery
// controller issues to a LAN-attached smart relay, so internal/recovery
// doesn't import net/http directly.
package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/bkaewell/ddns-agent/internal/errorsx"
)

const timeout = 2 * time.Second

// Client turns a LAN smart relay's single switched outlet on or off.
type Client struct {
	plugIP string
	http   *http.Client
}

func NewClient(plugIP string) *Client {
	return &Client{plugIP: plugIP, http: &http.Client{Timeout: timeout}}
}

// TurnOff issues GET http://{plugIP}/relay/0?turn=off.
func (c *Client) TurnOff(ctx context.Context) error {
	return c.command(ctx, "off")
}

// TurnOn issues GET http://{plugIP}/relay/0?turn=on.
func (c *Client) TurnOn(ctx context.Context) error {
	return c.command(ctx, "on")
}

func (c *Client) command(ctx context.Context, turn string) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := "http://" + c.plugIP + "/relay/0?turn=" + turn
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errorsx.Wrapf(err, "failed to build relay %s request", turn)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errorsx.Wrapf(err, "relay %s request failed", turn)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorsx.Errorf("relay %s request returned status %s", turn, resp.Status)
	}
	return nil
}
