// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package config loads and validates the agent's immutable Config value
// from environment variables. Load is the only constructor; the returned
// Config is never mutated afterwards.
package config

import (
	"math"
	"os"
	"regexp"
	"time"

	"github.com/spf13/viper"

	"github.com/bkaewell/ddns-agent/internal/errorsx"
)

// Config is the full set of settings the agent needs at startup. It is
// constructed once by Load and passed by pointer to every component that
// needs it; nothing mutates it afterwards.
type Config struct {
	// Cloudflare-compatible DNS provider.
	CloudflareAPIBaseURL string
	CloudflareAPIToken   string
	CloudflareZoneID     string
	CloudflareDNSName    string
	DNSRecordTTL         int

	// LAN topology.
	RouterIP string
	PlugIP   string

	// Scheduling.
	CycleIntervalS float64
	FastPollScalar float64
	SlowPollScalar float64
	PollingJitterS float64

	// Cache / recovery policy inputs.
	MaxCacheAgeS             float64
	ExpectedNetworkRecoveryS float64
	EscalationBufferS        float64
	RebootDelayS             float64
	RecoveryCooldownS        float64

	// Feature flags.
	AllowPhysicalRecovery bool
	DebugEnabled          bool

	// Optional audit sink.
	GoogleSheetsCredentialsFile string
	GoogleSpreadsheetID         string
	GoogleWorksheetName         string

	// Timezone used for the heartbeat line in telemetry.
	TZ string
}

var zoneIDPattern = regexp.MustCompile(`^[a-f0-9]{32}$`)

// Load reads every setting via viper's per-key env binding, applies
// defaults for everything that has a sane one, and validates the
// result. It never panics; callers decide how to report a non-nil error.
func Load() (*Config, error) {
	v := viper.New()
	bindDefaults(v)
	if err := bindEnv(v); err != nil {
		return nil, errorsx.Wrap(err, "failed to bind environment variables")
	}

	cfg := &Config{
		CloudflareAPIBaseURL: v.GetString("cloudflare_api_base_url"),
		CloudflareAPIToken:   v.GetString("cloudflare_api_token"),
		CloudflareZoneID:     v.GetString("cloudflare_zone_id"),
		CloudflareDNSName:    v.GetString("cloudflare_dns_name"),
		DNSRecordTTL:         v.GetInt("dns_record_ttl"),

		RouterIP: v.GetString("router_ip"),
		PlugIP:   v.GetString("plug_ip"),

		CycleIntervalS: v.GetFloat64("cycle_interval_s"),
		FastPollScalar: v.GetFloat64("fast_poll_scalar"),
		SlowPollScalar: v.GetFloat64("slow_poll_scalar"),
		PollingJitterS: v.GetFloat64("polling_jitter_s"),

		MaxCacheAgeS:             v.GetFloat64("max_cache_age_s"),
		ExpectedNetworkRecoveryS: v.GetFloat64("expected_network_recovery_s"),
		EscalationBufferS:        v.GetFloat64("escalation_buffer_s"),
		RebootDelayS:             v.GetFloat64("reboot_delay_s"),
		RecoveryCooldownS:        v.GetFloat64("recovery_cooldown_s"),

		AllowPhysicalRecovery: v.GetBool("allow_physical_recovery"),
		DebugEnabled:          v.GetBool("debug_enabled"),

		GoogleSheetsCredentialsFile: v.GetString("google_sheets_credentials_file"),
		GoogleSpreadsheetID:         v.GetString("google_spreadsheet_id"),
		GoogleWorksheetName:         v.GetString("google_worksheet_name"),

		TZ: v.GetString("tz"),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func bindDefaults(v *viper.Viper) {
	v.SetDefault("dns_record_ttl", 300)
	v.SetDefault("cycle_interval_s", 60.0)
	v.SetDefault("fast_poll_scalar", 0.25)
	v.SetDefault("slow_poll_scalar", 1.0)
	v.SetDefault("polling_jitter_s", 5.0)
	v.SetDefault("max_cache_age_s", 3600.0)
	v.SetDefault("expected_network_recovery_s", 180.0)
	v.SetDefault("escalation_buffer_s", 60.0)
	v.SetDefault("reboot_delay_s", 30.0)
	v.SetDefault("recovery_cooldown_s", 1800.0)
	v.SetDefault("allow_physical_recovery", false)
	v.SetDefault("debug_enabled", false)
	v.SetDefault("google_worksheet_name", "Sheet1")
	v.SetDefault("tz", "UTC")
}

// envKeys lists every config key alongside the literal environment
// variable name it binds to.
var envKeys = map[string]string{
	"cloudflare_api_base_url": "CLOUDFLARE_API_BASE_URL",
	"cloudflare_api_token":    "CLOUDFLARE_API_TOKEN",
	"cloudflare_zone_id":      "CLOUDFLARE_ZONE_ID",
	"cloudflare_dns_name":     "CLOUDFLARE_DNS_NAME",
	"dns_record_ttl":          "DNS_RECORD_TTL",

	"router_ip": "ROUTER_IP",
	"plug_ip":   "PLUG_IP",

	"cycle_interval_s": "CYCLE_INTERVAL_S",
	"fast_poll_scalar": "FAST_POLL_SCALAR",
	"slow_poll_scalar": "SLOW_POLL_SCALAR",
	"polling_jitter_s": "POLLING_JITTER_S",

	"max_cache_age_s":             "MAX_CACHE_AGE_S",
	"expected_network_recovery_s": "EXPECTED_NETWORK_RECOVERY_S",
	"escalation_buffer_s":         "ESCALATION_BUFFER_S",
	"reboot_delay_s":              "REBOOT_DELAY_S",
	"recovery_cooldown_s":         "RECOVERY_COOLDOWN_S",

	"allow_physical_recovery": "ALLOW_PHYSICAL_RECOVERY",
	"debug_enabled":           "DEBUG_ENABLED",

	"google_sheets_credentials_file": "GOOGLE_SHEETS_CREDENTIALS_FILE",
	"google_spreadsheet_id":          "GOOGLE_SPREADSHEET_ID",
	"google_worksheet_name":          "GOOGLE_WORKSHEET_NAME",

	"tz": "TZ",
}

func bindEnv(v *viper.Viper) error {
	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return errorsx.Wrapf(err, "failed to bind %s", env)
		}
	}
	return nil
}

// validate runs the startup invariant check plus the supplemental
// sanity checks on the Cloudflare credentials (token/zone-ID presence
// and shape). Any failure aborts startup before the supervisor loop is
// entered.
func validate(cfg *Config) error {
	if cfg.MaxCacheAgeS < cfg.CycleIntervalS*cfg.SlowPollScalar {
		return errorsx.Errorf(
			"startup invariant violated: max_cache_age_s (%.0f) must be >= cycle_interval_s*slow_poll_scalar (%.0f)",
			cfg.MaxCacheAgeS, cfg.CycleIntervalS*cfg.SlowPollScalar)
	}
	if cfg.CloudflareAPIToken == "" {
		return errorsx.New("CLOUDFLARE_API_TOKEN is required")
	}
	if cfg.CloudflareZoneID == "" {
		return errorsx.New("CLOUDFLARE_ZONE_ID is required")
	}
	if !zoneIDPattern.MatchString(cfg.CloudflareZoneID) {
		return errorsx.New("CLOUDFLARE_ZONE_ID must be a 32-character hex string")
	}
	if cfg.CloudflareDNSName == "" {
		return errorsx.New("CLOUDFLARE_DNS_NAME is required")
	}
	if cfg.GoogleSheetsCredentialsFile != "" {
		if _, err := os.Stat(cfg.GoogleSheetsCredentialsFile); err != nil {
			return errorsx.Wrap(err, "GOOGLE_SHEETS_CREDENTIALS_FILE does not exist")
		}
	}
	return nil
}

// EscalationDelay is expected_network_recovery_s + escalation_buffer_s,
// exposed here since both recovery.Policy and validate-adjacent tooling
// need it without re-deriving it.
func (c *Config) EscalationDelay() time.Duration {
	return time.Duration(c.ExpectedNetworkRecoveryS+c.EscalationBufferS) * time.Second
}

// MaxConsecutiveDownBeforeEscalation is
// ceil(escalation_delay_s / (cycle_interval_s * fast_poll_scalar)).
func (c *Config) MaxConsecutiveDownBeforeEscalation() int {
	nominal := c.CycleIntervalS * c.FastPollScalar
	if nominal <= 0 {
		return 1
	}
	return int(math.Ceil(c.EscalationDelay().Seconds() / nominal))
}

// RunningInDocker reports whether the process appears to be running
// inside a Docker container, used to pick the cache directory.
func RunningInDocker() bool {
	_, err := os.Stat("/.dockerenv")
	return err == nil
}
