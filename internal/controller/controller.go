// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package controller runs one observe->assess->decide->act->report cycle
// and owns the cross-cycle memory the rest of the agent's components are
// too stateless to hold.
package controller

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/bkaewell/ddns-agent/internal/cache"
	"github.com/bkaewell/ddns-agent/internal/ddns"
	"github.com/bkaewell/ddns-agent/internal/probes"
	"github.com/bkaewell/ddns-agent/internal/readiness"
	"github.com/bkaewell/ddns-agent/internal/recovery"
	"github.com/bkaewell/ddns-agent/internal/telemetry"
)

// PromotionConfirmationsRequired is the number of consecutive identical
// public-IP observations PROBING needs before the FSM is allowed to
// promote to READY.
const PromotionConfirmationsRequired = 2

// Prober is the set of reachability signals one cycle consumes. The
// production implementation wraps internal/probes directly; tests
// substitute a scripted fake so the end-to-end seed scenarios can drive
// exact (wan_ok, public_ip) sequences without any real network access.
type Prober interface {
	PingRouter(ctx context.Context) probes.Result
	VerifyWAN(ctx context.Context) probes.Result
	GetPublicIP(ctx context.Context) probes.IPResult
}

// Reconciler is the subset of ddns.Reconciler the controller drives; an
// interface so tests can script Outcome/error pairs without standing up
// a DoH resolver or DNS-provider HTTP server.
type Reconciler interface {
	Reconcile(ctx context.Context, publicIP string) (ddns.Outcome, error)
}

// realProber is the production Prober, backed by internal/probes.
type realProber struct {
	routerIP     string
	wanHost      string
	wanPort      string
	probeTimeout time.Duration
}

func (p *realProber) PingRouter(ctx context.Context) probes.Result {
	return probes.PingHost(ctx, p.routerIP, p.probeTimeout)
}

func (p *realProber) VerifyWAN(ctx context.Context) probes.Result {
	return probes.VerifyWANReachability(ctx, p.wanHost, p.wanPort, p.probeTimeout)
}

func (p *realProber) GetPublicIP(ctx context.Context) probes.IPResult {
	return probes.GetPublicIP(ctx, p.probeTimeout)
}

// memory is the cross-cycle state that outlives a single RunCycle call
// and is never touched by any other component. Readiness itself is
// already tracked by fsm, the single source of truth for current/
// previous state; memory only holds what the FSM doesn't.
type memory struct {
	lastPublicIP   string
	promotionVotes int
	notReadyStreak int
	loop           uint64
	uptime         cache.UptimeCounters
}

// Controller is constructed once with its collaborators and then driven,
// one RunCycle call per supervisor iteration.
type Controller struct {
	routerIP            string
	wanHost             string
	escalationThreshold int

	prober     Prober
	fsm        *readiness.FSM
	reconciler Reconciler
	recovery   *recovery.Controller
	cacheStore *cache.Store
	logger     telemetry.Logger

	mem memory
}

// New constructs a Controller wired to the real network probes. Cross-
// cycle memory is seeded from the persisted uptime counters so restarts
// don't reset the total/up tally.
func New(
	routerIP, wanHost, wanPort string,
	probeTimeout time.Duration,
	escalationThreshold int,
	fsm *readiness.FSM,
	reconciler Reconciler,
	recoveryController *recovery.Controller,
	cacheStore *cache.Store,
	logger telemetry.Logger,
) *Controller {
	prober := &realProber{routerIP: routerIP, wanHost: wanHost, wanPort: wanPort, probeTimeout: probeTimeout}
	return newWithProber(routerIP, wanHost, escalationThreshold, prober, fsm, reconciler, recoveryController, cacheStore, logger)
}

// NewWithProber is New but with an injected Prober, for tests that need
// to script exact per-cycle reachability sequences.
func NewWithProber(
	routerIP, wanHost string,
	escalationThreshold int,
	prober Prober,
	fsm *readiness.FSM,
	reconciler Reconciler,
	recoveryController *recovery.Controller,
	cacheStore *cache.Store,
	logger telemetry.Logger,
) *Controller {
	return newWithProber(routerIP, wanHost, escalationThreshold, prober, fsm, reconciler, recoveryController, cacheStore, logger)
}

func newWithProber(
	routerIP, wanHost string,
	escalationThreshold int,
	prober Prober,
	fsm *readiness.FSM,
	reconciler Reconciler,
	recoveryController *recovery.Controller,
	cacheStore *cache.Store,
	logger telemetry.Logger,
) *Controller {
	return &Controller{
		routerIP:            routerIP,
		wanHost:             wanHost,
		escalationThreshold: escalationThreshold,
		prober:              prober,
		fsm:                 fsm,
		reconciler:          reconciler,
		recovery:            recoveryController,
		cacheStore:          cacheStore,
		logger:              logger,
		mem: memory{
			loop:   1,
			uptime: cacheStore.LoadUptime(),
		},
	}
}

// RunCycle executes one full cycle. It returns the resulting readiness
// state, and a non-nil error only when the DDNS reconciler failed on a
// READY cycle; that error is passed up as the reconciler returned it,
// and the supervisor reports every such error the same way, without
// separating known DNS-provider failures from other errors. Neither
// return aborts the supervisor loop.
func (c *Controller) RunCycle(ctx context.Context) (readiness.State, error) {
	start := time.Now()

	// 1. Heartbeat.
	telemetry.Emit(c.logger, "🔁", "LOOP", "START", strconv.FormatUint(c.mem.loop, 10), "")

	// 2. Observe. LAN ping and the WAN probe are independent; issue them
	// concurrently and join before assessment.
	var lanResult probes.Result
	var wanResult probes.Result
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		lanResult = c.prober.PingRouter(ctx)
	}()
	go func() {
		defer wg.Done()
		wanResult = c.prober.VerifyWAN(ctx)
	}()
	wg.Wait()

	telemetry.Emit(c.logger, routerEmoji(lanResult.Success), "ROUTER", stateLabel(lanResult.Success), c.routerIP, "")
	telemetry.Emit(c.logger, wanEmoji(wanResult.Success), "WAN_PATH", stateLabel(wanResult.Success), c.wanHost, "")

	var publicIP probes.IPResult
	if c.fsm.State() != readiness.NotReady {
		publicIP = c.prober.GetPublicIP(ctx)
		telemetry.Emit(c.logger, ipEmoji(publicIP.Success), "PUBLIC_IP", stateLabel(publicIP.Success), publicIP.IP, "")
	}

	// 3. Stability gate.
	allowPromotion := false
	if c.fsm.State() == readiness.Probing && publicIP.Success {
		c.recordIPObservation(publicIP.IP)
		allowPromotion = c.mem.promotionVotes >= PromotionConfirmationsRequired
	}

	// 4. Assess.
	prev := c.fsm.State()
	next := c.fsm.Advance(wanResult.Success, allowPromotion)
	if next != prev {
		meta := ""
		if prev == readiness.Probing && next == readiness.Ready {
			meta = "confirmations=" + strconv.Itoa(c.mem.promotionVotes) + "/" + strconv.Itoa(PromotionConfirmationsRequired)
		}
		telemetry.Emit(c.logger, next.Emoji(), "READINESS", "CHANGE", prev.String()+" -> "+next.String(), meta)
	}
	telemetry.Emit(c.logger, next.Emoji(), "VERDICT", next.String(), "", "")

	// 5. Down-edge reset.
	if next == readiness.NotReady && prev != readiness.NotReady {
		c.mem.lastPublicIP = ""
		c.mem.promotionVotes = 0
	}

	// 6. Decide.
	if next == readiness.NotReady {
		c.mem.notReadyStreak++
	} else {
		c.mem.notReadyStreak = 0
	}
	escalate := next == readiness.NotReady && c.mem.notReadyStreak >= c.escalationThreshold
	if escalate {
		telemetry.Emit(c.logger, "⚠️", "RECOVERY", "ESCALATE", strconv.Itoa(c.mem.notReadyStreak), "")
	}

	// 7. Act.
	var cycleErr error
	if next == readiness.Ready {
		if !lanResult.Success {
			telemetry.Emit(c.logger, "⚠️", "ROUTER", "FLAKY", c.routerIP, "")
		}
		if publicIP.Success {
			if _, err := c.reconciler.Reconcile(ctx, publicIP.IP); err != nil {
				cycleErr = err
			}
		}
	}
	c.recovery.Observe(next)
	c.recovery.MaybeRecover(ctx)

	// 8. Report.
	c.mem.uptime.Total++
	if next == readiness.Ready {
		c.mem.uptime.Up++
	}
	if err := c.cacheStore.StoreUptime(c.mem.uptime); err != nil {
		telemetry.Emit(c.logger, "⚠️", "CACHE", "WRITE_FAILED", "uptime", err.Error())
	}

	elapsed := time.Since(start)
	telemetry.Emit(c.logger, "🔁", "LOOP", "COMPLETE", elapsed.String(), "")

	c.mem.loop++
	return next, cycleErr
}

// recordIPObservation advances (or resets) the promotion-vote counter:
// consecutive identical IPs accrue votes; any change resets to 1 on first
// sighting of the new address.
func (c *Controller) recordIPObservation(ip string) {
	if ip == "" {
		c.mem.promotionVotes = 0
		c.mem.lastPublicIP = ""
		return
	}
	if ip == c.mem.lastPublicIP {
		c.mem.promotionVotes++
	} else {
		c.mem.lastPublicIP = ip
		c.mem.promotionVotes = 1
	}
}

func stateLabel(success bool) string {
	if success {
		return "OK"
	}
	return "FAILED"
}

func routerEmoji(success bool) string {
	if success {
		return "✅"
	}
	return "⚠️"
}

func wanEmoji(success bool) string {
	if success {
		return "✅"
	}
	return "🔴"
}

func ipEmoji(success bool) string {
	if success {
		return "✅"
	}
	return "⚠️"
}

var _ Reconciler = (*ddns.Reconciler)(nil)
