// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package scheduler maps a readiness verdict and elapsed cycle time to the
// next sleep interval, with jitter to avoid phase-locked polling against
// external echo services.
package scheduler

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/bkaewell/ddns-agent/internal/readiness"
)

// Speed is the coarse polling cadence.
type Speed int

const (
	Slow Speed = iota
	Fast
)

func (s Speed) String() string {
	switch s {
	case Fast:
		return "FAST_POLL"
	case Slow:
		return "SLOW_POLL"
	default:
		panic("exhaustive:enforce")
	}
}

// Decision is the outcome of one scheduling computation.
type Decision struct {
	Speed         Speed
	BaseIntervalS float64
	JitterS       float64
	SleepForS     float64
}

// Policy holds the configuration Scheduler needs: the nominal cycle
// interval, per-speed scalars, and the jitter ceiling.
type Policy struct {
	CycleIntervalS float64
	FastPollScalar float64
	SlowPollScalar float64
	PollingJitterS float64
}

// Scheduler computes ScheduleDecisions. Jitter is drawn from a seeded
// source so test timings are reproducible.
type Scheduler struct {
	policy Policy
	rng    *rand.Rand
}

// New returns a Scheduler. Pass a nil rng to use a freshly, randomly
// seeded (non-reproducible) source; tests should pass a seeded rand.New(...).
func New(policy Policy, rng *rand.Rand) *Scheduler {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Scheduler{policy: policy, rng: rng}
}

// speedFor selects FAST for NotReady and Probing, SLOW otherwise.
func speedFor(state readiness.State) Speed {
	switch state {
	case readiness.NotReady, readiness.Probing:
		return Fast
	default:
		return Slow
	}
}

// NextSchedule computes the sleep interval for the cycle just completed.
// base = round(cycle_interval_s * scalar[speed]);
// sleepFor = max(0, base + jitter - elapsed).
func (s *Scheduler) NextSchedule(elapsed time.Duration, state readiness.State) Decision {
	speed := speedFor(state)
	scalar := s.policy.SlowPollScalar
	if speed == Fast {
		scalar = s.policy.FastPollScalar
	}
	base := math.Round(s.policy.CycleIntervalS * scalar)
	jitter := s.rng.Float64() * s.policy.PollingJitterS
	sleepFor := base + jitter - elapsed.Seconds()
	if sleepFor < 0 {
		sleepFor = 0
	}
	return Decision{
		Speed:         speed,
		BaseIntervalS: base,
		JitterS:       jitter,
		SleepForS:     sleepFor,
	}
}
