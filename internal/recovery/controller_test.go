// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

package recovery_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/bkaewell/ddns-agent/internal/clock"
	"github.com/bkaewell/ddns-agent/internal/readiness"
	"github.com/bkaewell/ddns-agent/internal/recovery"
)

type fakeRelay struct {
	offCalls, onCalls int
	failOff, failOn   bool
}

func (f *fakeRelay) TurnOff(ctx context.Context) error {
	f.offCalls++
	if f.failOff {
		return context.DeadlineExceeded
	}
	return nil
}

func (f *fakeRelay) TurnOn(ctx context.Context) error {
	f.onCalls++
	if f.failOn {
		return context.DeadlineExceeded
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testPolicy() recovery.Policy {
	return recovery.Policy{
		MaxConsecutiveDownBeforeEscalation: 3,
		RecoveryCooldown:                   30 * time.Minute,
		RebootSettleDelay:                  0,
	}
}

func TestMaybeRecover_SuppressedWhenDisabled(t *testing.T) {
	r := &fakeRelay{}
	c := recovery.NewController(testPolicy(), false, "10.0.0.5", r, clock.Real{}, testLogger())
	for i := 0; i < 5; i++ {
		c.Observe(readiness.NotReady)
	}
	assert.Equal(t, c.MaybeRecover(context.Background()), false)
	assert.Equal(t, r.offCalls, 0)
}

func TestMaybeRecover_FiresExactlyOnThresholdCycle(t *testing.T) {
	r := &fakeRelay{}
	c := recovery.NewController(testPolicy(), true, "10.0.0.5", r, clock.Real{}, testLogger())
	c.Observe(readiness.NotReady)
	assert.Equal(t, c.MaybeRecover(context.Background()), false, "streak=1 below threshold=3")
	c.Observe(readiness.NotReady)
	assert.Equal(t, c.MaybeRecover(context.Background()), false, "streak=2 below threshold=3")
	c.Observe(readiness.NotReady)
	assert.Equal(t, c.MaybeRecover(context.Background()), true, "streak=3 meets threshold")
	assert.Equal(t, r.offCalls, 1)
	assert.Equal(t, r.onCalls, 1)
	assert.Equal(t, c.NotReadyStreak(), 0)
}

func TestMaybeRecover_CooldownBoundary(t *testing.T) {
	fake := clock.NewFake(time.Unix(1_700_000_000, 0))
	r := &fakeRelay{}
	c := recovery.NewController(testPolicy(), true, "10.0.0.5", r, fake, testLogger())
	for i := 0; i < 3; i++ {
		c.Observe(readiness.NotReady)
	}
	assert.Equal(t, c.MaybeRecover(context.Background()), true)
	assert.Equal(t, r.offCalls, 1)

	// Drive the streak back up to threshold without the FSM ever leaving
	// NOT_READY, and advance to cooldown - epsilon: still suppressed.
	for i := 0; i < 3; i++ {
		c.Observe(readiness.NotReady)
	}
	fake.Advance(30*time.Minute - time.Second)
	assert.Equal(t, c.MaybeRecover(context.Background()), false, "cooldown - epsilon must suppress")
	assert.Equal(t, r.offCalls, 1)

	fake.Advance(time.Second)
	assert.Equal(t, c.MaybeRecover(context.Background()), true, "at exactly cooldown, recovery is permitted")
	assert.Equal(t, r.offCalls, 2)
}

func TestMaybeRecover_SuppressedWhenRelayUnreachable(t *testing.T) {
	r := &fakeRelay{}
	// An unroutable plug IP makes the reachability ping fail.
	c := recovery.NewController(testPolicy(), true, "192.0.2.1", r, clock.Real{}, testLogger())
	for i := 0; i < 3; i++ {
		c.Observe(readiness.NotReady)
	}
	assert.Equal(t, c.MaybeRecover(context.Background()), false)
	assert.Equal(t, r.offCalls, 0)
	assert.Equal(t, c.NotReadyStreak(), 3, "streak is unchanged by a suppressed attempt")
}
