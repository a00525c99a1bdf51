// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

package recovery

import (
	"context"
	"strconv"
	"time"

	"github.com/bkaewell/ddns-agent/internal/clock"
	"github.com/bkaewell/ddns-agent/internal/probes"
	"github.com/bkaewell/ddns-agent/internal/readiness"
	"github.com/bkaewell/ddns-agent/internal/relay"
	"github.com/bkaewell/ddns-agent/internal/telemetry"
)

// Relay is the subset of relay.Client the controller drives; an interface
// so tests can substitute a fake without opening a real HTTP listener.
type Relay interface {
	TurnOff(ctx context.Context) error
	TurnOn(ctx context.Context) error
}

// Controller tracks the consecutive NOT_READY streak, enforces the
// cooldown between physical-recovery attempts, and drives the smart
// relay's OFF->wait->ON sequence.
type Controller struct {
	policy                Policy
	allowPhysicalRecovery bool
	plugIP                string
	relay                 Relay
	clock                 clock.Clock
	logger                telemetry.Logger

	notReadyStreak   int
	lastRecoveryTime time.Time // zero value means "never"
}

func NewController(
	policy Policy,
	allowPhysicalRecovery bool,
	plugIP string,
	r Relay,
	c clock.Clock,
	logger telemetry.Logger,
) *Controller {
	return &Controller{
		policy:                policy,
		allowPhysicalRecovery: allowPhysicalRecovery,
		plugIP:                plugIP,
		relay:                 r,
		clock:                 c,
		logger:                logger,
	}
}

// Observe increments the down-streak iff readiness is NotReady, resetting
// it to zero otherwise.
func (c *Controller) Observe(state readiness.State) {
	if state == readiness.NotReady {
		c.notReadyStreak++
	} else {
		c.notReadyStreak = 0
	}
}

// NotReadyStreak exposes the current streak. The cycle controller keeps
// its own streak for escalation telemetry and does not read this one.
func (c *Controller) NotReadyStreak() int {
	return c.notReadyStreak
}

// MaybeRecover returns true only if a full power-cycle command sequence
// completed. Guards are evaluated in a fixed order; recovery is
// edge-triggered, never periodic — success of the command sequence is
// not success of the remediation, the next cycle's readiness is the
// ground truth.
func (c *Controller) MaybeRecover(ctx context.Context) bool {
	if !c.allowPhysicalRecovery {
		c.emitSuppressed("disabled by config", "")
		return false
	}
	if !c.plugReachable(ctx) {
		c.emitSuppressed("smart plug unavailable", "")
		return false
	}
	if c.notReadyStreak < c.policy.MaxConsecutiveDownBeforeEscalation {
		return false
	}
	now := c.clock.Now()
	if !c.lastRecoveryTime.IsZero() {
		elapsed := now.Sub(c.lastRecoveryTime)
		if elapsed < c.policy.RecoveryCooldown {
			c.emitSuppressed("cooldown active", "remaining_s="+(c.policy.RecoveryCooldown-elapsed).String())
			return false
		}
	}
	return c.executeRecovery(ctx, now)
}

func (c *Controller) plugReachable(ctx context.Context) bool {
	result := probes.PingHost(ctx, c.plugIP, 2*time.Second)
	return result.Success
}

func (c *Controller) executeRecovery(ctx context.Context, now time.Time) bool {
	telemetry.Emit(c.logger, "⚡", "RECOVERY", "TRIGGER", c.plugIP, "streak="+strconv.Itoa(c.notReadyStreak))
	if err := c.powerCycle(ctx); err != nil {
		telemetry.Emit(c.logger, "🔴", "RECOVERY", "FAILED", c.plugIP, err.Error())
		// Any transport error fails the recovery without retry; the next
		// cycle's escalation decision re-evaluates from scratch.
		return false
	}
	c.lastRecoveryTime = now
	c.notReadyStreak = 0
	telemetry.Emit(c.logger, "✅", "RECOVERY", "COMPLETE", c.plugIP, "")
	return true
}

func (c *Controller) powerCycle(ctx context.Context) error {
	if err := c.relay.TurnOff(ctx); err != nil {
		return err
	}
	time.Sleep(c.policy.RebootSettleDelay)
	return c.relay.TurnOn(ctx)
}

func (c *Controller) emitSuppressed(reason, meta string) {
	telemetry.Emit(c.logger, "⚠️", "RECOVERY", "SUPPRESSED", reason, meta)
}

var _ Relay = (*relay.Client)(nil)
