// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package audit implements the optional, best-effort spreadsheet-audit
// sink: a status row appended to a Google Sheet after every successful
// DNS record update. It is never on the path a cycle's
// success depends on — every method swallows its own errors, logs them,
// and lets the caller move on rather than fail a cycle over a dropped
// connection.
package audit

import (
	"context"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/bkaewell/ddns-agent/internal/cache"
	"github.com/bkaewell/ddns-agent/internal/telemetry"
)

var scopes = []string{"https://www.googleapis.com/auth/spreadsheets"}

// Sink appends IP-change rows to a worksheet. A nil *Sink (returned by
// New whenever the feature isn't configured) is valid and a no-op —
// callers never need a feature-flag check of their own.
type Sink struct {
	service       *sheets.Service
	cacheStore    *cache.Store
	spreadsheetID string
	worksheetName string
	logger        telemetry.Logger
}

// New builds a Sink from a service-account credentials file and a
// spreadsheet ID. credentialsFile == "" or spreadsheetID == "" means the
// audit sink is disabled; New returns (nil, nil) in that case.
func New(ctx context.Context, credentialsFile, spreadsheetID, worksheetName string, cacheStore *cache.Store, logger telemetry.Logger) (*Sink, error) {
	if credentialsFile == "" || spreadsheetID == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, err
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, scopes...)
	if err != nil {
		return nil, err
	}
	service, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, err
	}
	if err := cacheStore.StoreGoogleSheetID(spreadsheetID); err != nil {
		telemetry.Emit(logger, "⚠️", "CACHE", "WRITE_FAILED", "google_sheet_id", err.Error())
	}
	return &Sink{
		service:       service,
		cacheStore:    cacheStore,
		spreadsheetID: spreadsheetID,
		worksheetName: worksheetName,
		logger:        logger,
	}, nil
}

// AppendIPLog appends one row (ip, hostname, timestamp) to the log
// sheet. Any failure is reported as an AUDIT WRITE_FAILED telemetry line
// and swallowed: the audit sink never blocks a cycle.
func (s *Sink) AppendIPLog(ctx context.Context, ip, hostname string) {
	if s == nil {
		return
	}
	row := &sheets.ValueRange{
		Values: [][]any{{ip, hostname, time.Now().UTC().Format(time.RFC3339)}},
	}
	valueRange := s.worksheetName + "!A1"
	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, valueRange, row).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		telemetry.Emit(s.logger, "⚠️", "AUDIT", "WRITE_FAILED", ip, err.Error())
		return
	}
	telemetry.Emit(s.logger, "✅", "AUDIT", "APPENDED", ip, "")
}
