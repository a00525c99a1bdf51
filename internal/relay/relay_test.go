// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

package relay_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/bkaewell/ddns-agent/internal/relay"
)

func TestTurnOff_SendsExpectedQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		assert.Equal(t, r.URL.Path, "/relay/0")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := relay.NewClient(srv.Listener.Addr().String())
	err := c.TurnOff(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, gotQuery, "turn=off")
}

func TestTurnOn_SendsExpectedQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := relay.NewClient(srv.Listener.Addr().String())
	err := c.TurnOn(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, gotQuery, "turn=on")
}

func TestCommand_NonTwoXXReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := relay.NewClient(srv.Listener.Addr().String())
	err := c.TurnOn(context.Background())
	assert.ErrorContains(t, err, "status")
}

func TestCommand_UnreachableHostReturnsError(t *testing.T) {
	c := relay.NewClient("127.0.0.1:1")
	err := c.TurnOff(context.Background())
	assert.ErrorContains(t, err, "relay off request failed")
}
