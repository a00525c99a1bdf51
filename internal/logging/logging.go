// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package logging configures the process-wide slog default logger:
// install one handler at startup, gated by a debug flag, and return a
// closer.
package logging

import (
	"log/slog"
	"os"
)

// LevelCritical is one step more severe than slog.LevelError, used for
// unexpected cycle exceptions the supervisor catches.
const LevelCritical = slog.Level(12)

// Init installs the process-wide slog logger. debugEnabled selects
// slog.LevelDebug; otherwise slog.LevelInfo. Returns a closer that should
// be deferred by the caller (a no-op today, kept for symmetry and to
// leave room for a future log-file target).
func Init(debugEnabled bool) (toDefer func()) {
	level := slog.LevelInfo
	if debugEnabled {
		level = slog.LevelDebug
	}
	levelerNames := map[slog.Leveler]string{LevelCritical: "CRITICAL"}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					if name, ok := levelerNames[lvl]; ok {
						a.Value = slog.StringValue(name)
					}
				}
			}
			return a
		},
	})
	slog.SetDefault(slog.New(handler))
	return func() {}
}
