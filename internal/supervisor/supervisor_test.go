// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

package supervisor_test

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/bkaewell/ddns-agent/internal/readiness"
	"github.com/bkaewell/ddns-agent/internal/scheduler"
	"github.com/bkaewell/ddns-agent/internal/supervisor"
)

type countingCycle struct {
	calls int
	err   error
	state readiness.State
}

func (c *countingCycle) RunCycle(ctx context.Context) (readiness.State, error) {
	c.calls++
	return c.state, c.err
}

type panickingCycle struct {
	calls int
}

func (c *panickingCycle) RunCycle(ctx context.Context) (readiness.State, error) {
	c.calls++
	panic("boom")
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testScheduler() *scheduler.Scheduler {
	return scheduler.New(scheduler.Policy{
		CycleIntervalS: 0, // zero interval keeps the loop's sleeps instantaneous for the test
		FastPollScalar: 1,
		SlowPollScalar: 1,
		PollingJitterS: 0,
	}, rand.New(rand.NewPCG(1, 2)))
}

// TestRun_StopsOnContextCancellation verifies the supervisor's forever
// loop actually terminates when its context is cancelled, rather than
// running the process into the ground.
func TestRun_StopsOnContextCancellation(t *testing.T) {
	cycle := &countingCycle{state: readiness.Ready}
	s := supervisor.New(cycle, testScheduler(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	assert.Assert(t, cycle.calls > 0, "expected at least one cycle to run")
}

// TestRun_SurvivesCyclePanic verifies a single cycle's panic doesn't
// crash the supervisor: the loop continues and later cycles still run.
func TestRun_SurvivesCyclePanic(t *testing.T) {
	cycle := &panickingCycle{}
	s := supervisor.New(cycle, testScheduler(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	assert.Assert(t, cycle.calls > 1, "expected the loop to keep running past the panicking cycle")
}

// TestRun_SurvivesCycleError verifies a returned (non-panic) cycle error
// also does not stop the loop.
func TestRun_SurvivesCycleError(t *testing.T) {
	cycle := &countingCycle{state: readiness.NotReady, err: context.DeadlineExceeded}
	s := supervisor.New(cycle, testScheduler(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
	assert.Assert(t, cycle.calls > 1, "expected the loop to keep running past the cycle error")
}
