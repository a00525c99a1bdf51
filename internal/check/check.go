// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package check provides small assertion helpers for invariants that, if
// violated, indicate a bug rather than a recoverable runtime condition.
package check

import "fmt"

// Check panics with assertMsg if shouldBeTrue is false.
func Check(shouldBeTrue bool, assertMsg string) {
	if !shouldBeTrue {
		panic("check failed: " + assertMsg)
	}
}

// Checkf is Check with printf-style formatting of the panic message.
func Checkf(shouldBeTrue bool, format string, a ...any) {
	if !shouldBeTrue {
		panic("check failed: " + fmt.Sprintf(format, a...))
	}
}

// NoErr panics if err is non-nil.
func NoErr(err error, msg string) {
	Checkf(err == nil, "%s: %s", msg, err)
}

// Must takes the result of a (value, error) tuple and panics if err is
// non-nil, otherwise returning value.
func Must[T any](value T, err error) T {
	NoErr(err, "Must")
	return value
}
