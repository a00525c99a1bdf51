// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

package dnsprovider

import "github.com/bkaewell/ddns-agent/internal/errorsx"

// ErrRecordNotFound is returned when the provider's record list has no
// A-record matching the configured hostname.
var ErrRecordNotFound = errorsx.New("dnsprovider: no matching A-record found")

// ErrMultipleRecords is returned when more than one A-record matches the
// configured hostname. Ambiguity about which record is authoritative
// must surface as a failure, not be papered over by picking one.
var ErrMultipleRecords = errorsx.New("dnsprovider: multiple A-records match hostname")

// ErrUpdateFailed is returned when the PUT to update the record does not
// succeed (non-2xx or transport error).
var ErrUpdateFailed = errorsx.New("dnsprovider: record update failed")
