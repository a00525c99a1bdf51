// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package cache persists the two small pieces of cross-restart state the
// agent needs: the last-confirmed public IP and cumulative uptime
// counters. Reads are tolerant of any failure (treated as a miss); writes
// are atomic (write-to-temp, then rename) so a crash never leaves a torn
// JSON file behind.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/bkaewell/ddns-agent/internal/clock"
)

const (
	cloudflareIPFile  = "cloudflare_ip.json"
	uptimeFile        = "uptime.json"
	googleSheetIDFile = "google_sheet_id.txt"
	dockerCacheDir    = "/data/cache"
)

// Dir resolves the directory cache files live under: a Docker-friendly
// fixed path when running containerized, otherwise the platform user
// cache directory.
func Dir(runningInDocker bool) (string, error) {
	if runningInDocker {
		return dockerCacheDir, nil
	}
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "ddns-agent"), nil
}

// Store reads and writes the cache files under dir. It is the sole writer
// of the IP cache (the DDNS reconciler) and of the uptime counters (the
// controller); both files are addressed through this one type to keep the
// write path (temp+rename) in a single place.
type Store struct {
	dir   string
	clock clock.Clock
}

func NewStore(dir string, c clock.Clock) *Store {
	return &Store{dir: dir, clock: c}
}

// CachedIP is the on-disk record of the last DNS-confirmed public IP.
type CachedIP struct {
	IP       string    `json:"last_ip"`
	StoredAt time.Time `json:"stored_at"`
}

// Lookup augments a CachedIP read with derived, read-time-only fields.
type Lookup struct {
	CachedIP
	Hit   bool
	AgeS  float64
	ElapsedMS float64
}

// LoadIP reads the IP cache file. Any error (missing file, malformed
// JSON) is reported as a miss, never as an error return.
func (s *Store) LoadIP() Lookup {
	start := time.Now()
	lookup := Lookup{}
	defer func() { lookup.ElapsedMS = float64(time.Since(start).Microseconds()) / 1000.0 }()

	raw, err := os.ReadFile(filepath.Join(s.dir, cloudflareIPFile))
	if err != nil {
		return lookup
	}
	var onDisk struct {
		LastIP   string `json:"last_ip"`
		StoredAt int64  `json:"stored_at"`
	}
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		return lookup
	}
	storedAt := time.Unix(onDisk.StoredAt, 0)
	lookup.CachedIP = CachedIP{IP: onDisk.LastIP, StoredAt: storedAt}
	lookup.Hit = true
	lookup.AgeS = s.clock.Now().Sub(storedAt).Seconds()
	return lookup
}

// StoreIP atomically writes ip as the new cached IP, stamped with the
// current time. A write failure is logged by the caller and never fails
// the cycle.
func (s *Store) StoreIP(ip string) error {
	onDisk := struct {
		LastIP   string `json:"last_ip"`
		StoredAt int64  `json:"stored_at"`
	}{LastIP: ip, StoredAt: s.clock.Now().Unix()}
	return s.writeJSON(cloudflareIPFile, onDisk)
}

// UptimeCounters tracks cumulative cycle outcomes. Up must never exceed
// Total, and both are monotonically non-decreasing.
type UptimeCounters struct {
	Total uint64 `json:"total"`
	Up    uint64 `json:"up"`
}

// LoadUptime reads the uptime counters file, defaulting to zero values on
// any read failure.
func (s *Store) LoadUptime() UptimeCounters {
	raw, err := os.ReadFile(filepath.Join(s.dir, uptimeFile))
	if err != nil {
		return UptimeCounters{}
	}
	var counters UptimeCounters
	if err := json.Unmarshal(raw, &counters); err != nil {
		return UptimeCounters{}
	}
	return counters
}

// StoreUptime atomically persists counters.
func (s *Store) StoreUptime(counters UptimeCounters) error {
	return s.writeJSON(uptimeFile, counters)
}

// LoadGoogleSheetID reads the cached spreadsheet ID the audit sink
// resolved on a previous run, returning "" on any miss.
func (s *Store) LoadGoogleSheetID() string {
	raw, err := os.ReadFile(filepath.Join(s.dir, googleSheetIDFile))
	if err != nil {
		return ""
	}
	return string(raw)
}

// StoreGoogleSheetID atomically persists id for future runs.
func (s *Store) StoreGoogleSheetID(id string) error {
	return s.writeFile(googleSheetIDFile, []byte(id))
}

func (s *Store) writeJSON(name string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.writeFile(name, raw)
}

// writeFile is the single write-to-temp-then-rename primitive every store
// method funnels through, per DESIGN NOTES ("Atomicity of writes... is
// required to avoid torn JSON after crash").
func (s *Store) writeFile(name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, filepath.Join(s.dir, name))
}
