// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package exit centralizes the agent's fatal-error reporting. The
// process never exits 0; every exit
// here carries a non-zero code for a startup invariant violation or
// fatal bootstrap error.
package exit

import (
	"fmt"
	"log/slog"
	"os"
)

const errCode = 1

// OnError should be called when there is no way for the agent to
// continue functioning normally; if err is not nil the program logs it
// and exits non-zero.
func OnError(err error) {
	if err != nil {
		slog.Error(fmt.Sprintf("exiting with %d", errCode), "err", err.Error())
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(errCode)
	}
}

// OnErrorMsg is like OnError but attaches a custom message describing
// what was being attempted when err occurred.
func OnErrorMsg(err error, msg string) {
	if err != nil {
		slog.Error(fmt.Sprintf("exiting with %d", errCode), "err", err.Error(), "msg", msg)
		fmt.Fprintf(os.Stderr, "%s: %s\n", msg, err.Error())
		os.Exit(errCode)
	}
}
