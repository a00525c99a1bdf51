// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

package scheduler_test

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"gotest.tools/v3/assert"
	"pgregory.net/rapid"

	"github.com/bkaewell/ddns-agent/internal/readiness"
	"github.com/bkaewell/ddns-agent/internal/scheduler"
)

func TestNextSchedule_SpeedSelection(t *testing.T) {
	s := scheduler.New(scheduler.Policy{
		CycleIntervalS: 60, FastPollScalar: 0.1, SlowPollScalar: 1, PollingJitterS: 0,
	}, rand.New(rand.NewPCG(1, 1)))

	cases := []struct {
		state readiness.State
		want  scheduler.Speed
	}{
		{readiness.NotReady, scheduler.Fast},
		{readiness.Probing, scheduler.Fast},
		{readiness.Ready, scheduler.Slow},
		{readiness.Init, scheduler.Slow},
	}
	for _, c := range cases {
		got := s.NextSchedule(0, c.state)
		assert.Equal(t, got.Speed, c.want, "state %s", c.state)
	}
}

func TestNextSchedule_SleepForBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		policy := scheduler.Policy{
			CycleIntervalS: rapid.Float64Range(1, 600).Draw(rt, "cycle"),
			FastPollScalar: rapid.Float64Range(0.01, 1).Draw(rt, "fast"),
			SlowPollScalar: rapid.Float64Range(1, 10).Draw(rt, "slow"),
			PollingJitterS: rapid.Float64Range(0, 30).Draw(rt, "jitter"),
		}
		elapsedS := rapid.Float64Range(0, 1000).Draw(rt, "elapsed")
		state := readiness.State(rapid.IntRange(0, 3).Draw(rt, "state"))

		s := scheduler.New(policy, rand.New(rand.NewPCG(uint64(elapsedS*1000), 7)))
		d := s.NextSchedule(time.Duration(elapsedS*float64(time.Second)), state)

		assert.Assert(rt, d.SleepForS >= 0)
		scalar := policy.SlowPollScalar
		if d.Speed == scheduler.Fast {
			scalar = policy.FastPollScalar
		}
		maxPossible := math.Round(policy.CycleIntervalS*scalar) + policy.PollingJitterS
		assert.Assert(rt, d.SleepForS <= maxPossible+1e-9)
	})
}
