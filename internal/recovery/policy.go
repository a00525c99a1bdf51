// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package recovery implements the escalation-and-cooldown physical
// recovery controller: an immutable derived Policy and
// a stateful Controller that tracks down-streaks and issues OFF/wait/ON
// commands to the smart relay.
package recovery

import (
	"time"

	"github.com/bkaewell/ddns-agent/internal/config"
)

// Policy is computed once at startup and carries no state of its own.
type Policy struct {
	EscalationDelay                    time.Duration
	MaxConsecutiveDownBeforeEscalation int
	RebootSettleDelay                  time.Duration
	RecoveryCooldown                   time.Duration
	FastPollNominalInterval            time.Duration
}

// NewPolicy derives a Policy from cfg.
func NewPolicy(cfg *config.Config) Policy {
	return Policy{
		EscalationDelay:                    cfg.EscalationDelay(),
		MaxConsecutiveDownBeforeEscalation: cfg.MaxConsecutiveDownBeforeEscalation(),
		RebootSettleDelay:                  time.Duration(cfg.RebootDelayS) * time.Second,
		RecoveryCooldown:                   time.Duration(cfg.RecoveryCooldownS) * time.Second,
		FastPollNominalInterval:            time.Duration(cfg.CycleIntervalS*cfg.FastPollScalar) * time.Second,
	}
}
