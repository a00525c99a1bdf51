// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package supervisor runs the controller forever: one cycle, a computed
// sleep, repeat. It is the only layer that never returns control to its
// caller except on context cancellation, and the only layer allowed to
// catch an unexpected panic from a single cycle without taking the whole
// process down.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/bkaewell/ddns-agent/internal/logging"
	"github.com/bkaewell/ddns-agent/internal/readiness"
	"github.com/bkaewell/ddns-agent/internal/scheduler"
	"github.com/bkaewell/ddns-agent/internal/telemetry"
)

// Cycle is the subset of controller.Controller the supervisor drives.
type Cycle interface {
	RunCycle(ctx context.Context) (readiness.State, error)
}

// sleepAnomalyBuffer is the default fractional overrun that
// triggers a SLEEP ANOMALY warning: the post-sleep wall time exceeded
// sleep_for_s * (1 + buffer).
const sleepAnomalyBuffer = 0.10

// Supervisor owns the forever-loop.
type Supervisor struct {
	cycle     Cycle
	scheduler *scheduler.Scheduler
	logger    telemetry.Logger
	sleep     func(time.Duration)
	now       func() time.Time
}

// New returns a Supervisor. sleep and now default to time.Sleep and
// time.Now; tests may override both to avoid real wall-clock waits.
func New(cycle Cycle, sched *scheduler.Scheduler, logger telemetry.Logger) *Supervisor {
	return &Supervisor{
		cycle:     cycle,
		scheduler: sched,
		logger:    logger,
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

// Run loops until ctx is cancelled. Every cycle is wrapped so a panic
// inside it is reported (at Critical when the logger is leveled, see
// runCycleSafely) and treated as a failed cycle rather than crashing the
// process — the caught-exception policy.
func (s *Supervisor) Run(ctx context.Context) {
	state := readiness.Init
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		start := s.now()
		state = s.runCycleSafely(ctx, state)
		elapsed := s.now().Sub(start)

		decision := s.scheduler.NextSchedule(elapsed, state)
		sleepFor := time.Duration(decision.SleepForS * float64(time.Second))

		sleepStart := s.now()
		s.sleep(sleepFor)
		actualSlept := s.now().Sub(sleepStart)

		if threshold := time.Duration(float64(sleepFor) * (1 + sleepAnomalyBuffer)); actualSlept > threshold {
			telemetry.Emit(s.logger, "⚠️", "SUPERVISOR", "SLEEP ANOMALY", actualSlept.String(), "expected="+sleepFor.String())
		}
	}
}

// runCycleSafely invokes one RunCycle. A panic is reported as a
// SUPERVISOR PANIC telemetry line and, when the logger supports leveled
// logging (a *slog.Logger does), also logged at logging.LevelCritical;
// the previous readiness state is then carried forward. A returned error
// is reported as one SUPERVISOR CYCLE_ERROR telemetry line at Info level
// whatever its kind (known DNS-provider errors and other errors are not
// logged at different levels), and the state RunCycle returned is used.
func (s *Supervisor) runCycleSafely(ctx context.Context, prev readiness.State) (result readiness.State) {
	result = prev
	defer func() {
		if r := recover(); r != nil {
			telemetry.Emit(s.logger, "💥", "SUPERVISOR", "PANIC", "cycle", formatPanic(r))
			if l, ok := s.logger.(interface {
				Log(context.Context, slog.Level, string, ...any)
			}); ok {
				l.Log(ctx, logging.LevelCritical, "cycle panicked", "panic", formatPanic(r))
			}
		}
	}()
	next, err := s.cycle.RunCycle(ctx)
	if err != nil {
		telemetry.Emit(s.logger, "🔴", "SUPERVISOR", "CYCLE_ERROR", "", err.Error())
	}
	return next
}

func formatPanic(r any) string {
	if err, ok := r.(error); ok {
		return err.Error()
	}
	return "recovered: unknown panic value"
}
