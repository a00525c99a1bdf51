// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

package config_test

import (
	"os"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/bkaewell/ddns-agent/internal/config"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CLOUDFLARE_API_TOKEN", "test-token")
	t.Setenv("CLOUDFLARE_ZONE_ID", "0123456789abcdef0123456789abcdef")
	t.Setenv("CLOUDFLARE_DNS_NAME", "home.example.com")
}

func TestLoad_AppliesDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := config.Load()
	assert.NilError(t, err)
	assert.Equal(t, cfg.DNSRecordTTL, 300)
	assert.Equal(t, cfg.CycleIntervalS, 60.0)
	assert.Equal(t, cfg.FastPollScalar, 0.25)
	assert.Equal(t, cfg.GoogleWorksheetName, "Sheet1")
	assert.Equal(t, cfg.TZ, "UTC")
}

func TestLoad_ReadsOverriddenEnvVars(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DNS_RECORD_TTL", "120")
	t.Setenv("CYCLE_INTERVAL_S", "30")

	cfg, err := config.Load()
	assert.NilError(t, err)
	assert.Equal(t, cfg.DNSRecordTTL, 120)
	assert.Equal(t, cfg.CycleIntervalS, 30.0)
}

func TestLoad_MissingAPITokenFails(t *testing.T) {
	t.Setenv("CLOUDFLARE_ZONE_ID", "0123456789abcdef0123456789abcdef")
	t.Setenv("CLOUDFLARE_DNS_NAME", "home.example.com")

	_, err := config.Load()
	assert.ErrorContains(t, err, "CLOUDFLARE_API_TOKEN")
}

func TestLoad_MalformedZoneIDFails(t *testing.T) {
	t.Setenv("CLOUDFLARE_API_TOKEN", "test-token")
	t.Setenv("CLOUDFLARE_ZONE_ID", "not-hex")
	t.Setenv("CLOUDFLARE_DNS_NAME", "home.example.com")

	_, err := config.Load()
	assert.ErrorContains(t, err, "32-character hex string")
}

func TestLoad_CacheAgeBelowCycleIntervalFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_CACHE_AGE_S", "1")
	t.Setenv("CYCLE_INTERVAL_S", "60")
	t.Setenv("SLOW_POLL_SCALAR", "1")

	_, err := config.Load()
	assert.ErrorContains(t, err, "startup invariant violated")
}

func TestLoad_MissingCredentialsFileFails(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_FILE", "/nonexistent/credentials.json")

	_, err := config.Load()
	assert.ErrorContains(t, err, "GOOGLE_SHEETS_CREDENTIALS_FILE")
}

func TestMaxConsecutiveDownBeforeEscalation(t *testing.T) {
	cfg := &config.Config{
		ExpectedNetworkRecoveryS: 180,
		EscalationBufferS:        60,
		CycleIntervalS:           60,
		FastPollScalar:           0.25,
	}
	// EscalationDelay = 240s; nominal fast-poll interval = 15s; ceil(240/15) = 16
	assert.Equal(t, cfg.MaxConsecutiveDownBeforeEscalation(), 16)
}

func TestRunningInDocker_FalseOutsideContainer(t *testing.T) {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		t.Skip("running inside a container with /.dockerenv present")
	}
	assert.Equal(t, config.RunningInDocker(), false)
}
