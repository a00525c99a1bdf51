// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

package audit_test

import (
	"context"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/bkaewell/ddns-agent/internal/audit"
	"github.com/bkaewell/ddns-agent/internal/cache"
	"github.com/bkaewell/ddns-agent/internal/clock"
)

type testLogger struct{}

func (testLogger) Info(msg string, args ...any) {}

func TestNew_DisabledWhenCredentialsFileMissing(t *testing.T) {
	cacheStore := cache.NewStore(t.TempDir(), clock.Real{})
	sink, err := audit.New(context.Background(), "", "spreadsheet-id", "Sheet1", cacheStore, testLogger{})
	assert.NilError(t, err)
	assert.Assert(t, sink == nil)
}

func TestNew_DisabledWhenSpreadsheetIDMissing(t *testing.T) {
	cacheStore := cache.NewStore(t.TempDir(), clock.Real{})
	sink, err := audit.New(context.Background(), "/some/credentials.json", "", "Sheet1", cacheStore, testLogger{})
	assert.NilError(t, err)
	assert.Assert(t, sink == nil)
}

func TestNew_MissingCredentialsFileReturnsError(t *testing.T) {
	cacheStore := cache.NewStore(t.TempDir(), clock.Real{})
	_, err := audit.New(context.Background(), "/nonexistent/credentials.json", "spreadsheet-id", "Sheet1", cacheStore, testLogger{})
	assert.ErrorContains(t, err, "no such file")
}

func TestAppendIPLog_NilSinkIsSafeNoOp(t *testing.T) {
	var sink *audit.Sink
	sink.AppendIPLog(context.Background(), "203.0.113.5", "home.example.com")
}
