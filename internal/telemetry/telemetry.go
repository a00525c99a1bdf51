// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package telemetry is the operator-facing structured cycle narration
// sink: one line per
// event, format `<emoji> <SUBSYSTEM:12> <STATE:20> <primary:16> | <meta>`.
// It is distinct from internal/logging, which is the ambient
// developer-facing log.
package telemetry

import "fmt"

// Logger is the minimal interface telemetry depends on, so callers can
// inject a *slog.Logger or a test double.
type Logger interface {
	Info(msg string, args ...any)
}

// Emit writes one telemetry line via logger at Info level. primary is the
// single most relevant value for the event (an IP, a duration, a count);
// meta is an optional "key=value[,key=value...]" suffix, omitted when
// empty.
func Emit(logger Logger, emoji, subsystem, state, primary, meta string) {
	if primary == "" {
		primary = "—--"
	}
	line := fmt.Sprintf("%-12s %-20s %-16s", subsystem, state, primary)
	if meta != "" {
		line += " | " + meta
	}
	logger.Info(emoji + " " + line)
}
