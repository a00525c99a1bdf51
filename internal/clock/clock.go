// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package clock injects time so cooldown and cache-age logic can be
// driven deterministically in tests. Jitter does not use it: the
// scheduler draws jitter from an injected random source.
package clock

import "time"

// Clock is the minimal time source the rest of the agent depends on.
type Clock interface {
	Now() time.Time
}

// Real is the production Clock, backed by the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fake is a test Clock with a settable, monotonically-advanceable value.
type Fake struct {
	now time.Time
}

// NewFake returns a Fake clock starting at t.
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

func (f *Fake) Now() time.Time { return f.now }

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// Set pins the fake clock to t.
func (f *Fake) Set(t time.Time) {
	f.now = t
}
