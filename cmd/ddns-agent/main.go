// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Command ddns-agent is the autonomous DDNS control-plane agent: it keeps
// an authoritative DNS A-record synchronized with the host's public IPv4
// address and power-cycles a LAN-attached smart relay on persistent WAN
// outages.
package main

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bkaewell/ddns-agent/internal/audit"
	"github.com/bkaewell/ddns-agent/internal/cache"
	"github.com/bkaewell/ddns-agent/internal/clock"
	"github.com/bkaewell/ddns-agent/internal/config"
	"github.com/bkaewell/ddns-agent/internal/controller"
	"github.com/bkaewell/ddns-agent/internal/ddns"
	"github.com/bkaewell/ddns-agent/internal/dnsprovider"
	"github.com/bkaewell/ddns-agent/internal/exit"
	"github.com/bkaewell/ddns-agent/internal/logging"
	"github.com/bkaewell/ddns-agent/internal/readiness"
	"github.com/bkaewell/ddns-agent/internal/recovery"
	"github.com/bkaewell/ddns-agent/internal/relay"
	"github.com/bkaewell/ddns-agent/internal/scheduler"
	"github.com/bkaewell/ddns-agent/internal/supervisor"
	"github.com/bkaewell/ddns-agent/internal/telemetry"
)

const (
	wanHost      = "1.1.1.1"
	wanPort      = "443"
	probeTimeout = 3 * time.Second
	dohTimeout   = 3 * time.Second
)

func main() {
	cfg, err := config.Load()
	exit.OnErrorMsg(err, "failed to load configuration")

	closeLog := logging.Init(cfg.DebugEnabled)
	defer closeLog()
	logger := slog.Default()

	if cfg.TZ != "" {
		if loc, err := time.LoadLocation(cfg.TZ); err == nil {
			time.Local = loc
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheDir, err := cache.Dir(config.RunningInDocker())
	exit.OnErrorMsg(err, "failed to resolve cache directory")
	cacheStore := cache.NewStore(cacheDir, clock.Real{})

	auditSink, err := audit.New(ctx, cfg.GoogleSheetsCredentialsFile, cfg.GoogleSpreadsheetID, cfg.GoogleWorksheetName, cacheStore, logger)
	if err != nil {
		telemetry.Emit(logger, "⚠️", "AUDIT", "DISABLED", "", err.Error())
	} else if auditSink != nil {
		telemetry.Emit(logger, "✅", "AUDIT", "ENABLED", cfg.GoogleSpreadsheetID, "")
	}

	dnsClient := dnsprovider.NewClient(cfg.CloudflareAPIBaseURL, cfg.CloudflareAPIToken, cfg.CloudflareZoneID)
	reconciler := ddns.NewReconciler(
		cacheStore, dnsClient, cfg.CloudflareDNSName, cfg.DNSRecordTTL,
		cfg.MaxCacheAgeS, dohTimeout, auditSink, logger,
	)

	relayClient := relay.NewClient(cfg.PlugIP)
	recoveryPolicy := recovery.NewPolicy(cfg)
	recoveryController := recovery.NewController(
		recoveryPolicy, cfg.AllowPhysicalRecovery, cfg.PlugIP, relayClient, clock.Real{}, logger,
	)

	ctrl := controller.New(
		cfg.RouterIP, wanHost, wanPort, probeTimeout,
		recoveryPolicy.MaxConsecutiveDownBeforeEscalation,
		readiness.New(), reconciler, recoveryController, cacheStore, logger,
	)

	sched := scheduler.New(scheduler.Policy{
		CycleIntervalS: cfg.CycleIntervalS,
		FastPollScalar: cfg.FastPollScalar,
		SlowPollScalar: cfg.SlowPollScalar,
		PollingJitterS: cfg.PollingJitterS,
	}, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))

	telemetry.Emit(logger, "🚀", "AGENT", "START", cfg.CloudflareDNSName, "")
	supervisor.New(ctrl, sched, logger).Run(ctx)
	telemetry.Emit(logger, "🛑", "AGENT", "STOP", "", "shutdown signal received")
}
