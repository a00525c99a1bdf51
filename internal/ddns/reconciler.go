// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package ddns implements the cache/verify/mutate three-tier DDNS
// reconciliation engine. It is the only component
// permitted to mutate the external DNS record.
package ddns

import (
	"context"
	"time"

	"github.com/bkaewell/ddns-agent/internal/cache"
	"github.com/bkaewell/ddns-agent/internal/dnsprovider"
	"github.com/bkaewell/ddns-agent/internal/probes"
	"github.com/bkaewell/ddns-agent/internal/telemetry"
)

// Outcome describes what Reconcile did: whether the record was mutated,
// and the reason tag also used in its telemetry.
type Outcome struct {
	Mutated bool
	Reason  string
}

// Auditor is the optional best-effort spreadsheet-audit sink. A nil
// Auditor (the zero value of this interface) is valid: Reconciler skips
// it. A nil *audit.Sink held in the interface is called, and is safe
// because its methods are no-ops on a nil receiver.
type Auditor interface {
	AppendIPLog(ctx context.Context, ip, hostname string)
}

// Resolver performs the authoritative L2 DoH lookup; an interface so
// tests can script an answer without any real DNS-over-HTTPS resolver.
type Resolver interface {
	Lookup(ctx context.Context, hostname string, timeout time.Duration) probes.IPResult
}

// DNSClient is the subset of dnsprovider.Client the L3 mutation tier
// drives; an interface so tests can script provider responses without a
// real Cloudflare-compatible HTTP server.
type DNSClient interface {
	FindARecord(ctx context.Context, hostname string) (dnsprovider.Record, error)
	UpdateRecord(ctx context.Context, recordID, hostname, content string, ttl int) error
}

type realResolver struct{}

func (realResolver) Lookup(ctx context.Context, hostname string, timeout time.Duration) probes.IPResult {
	return probes.DoHLookup(ctx, hostname, timeout)
}

// Reconciler owns the L1/L2/L3 reconciliation tiers. It is constructed
// once and is safe to call repeatedly — consecutive calls with unchanged
// upstream state converge to zero external work after the first success.
type Reconciler struct {
	cacheStore   *cache.Store
	dnsClient    DNSClient
	resolver     Resolver
	hostname     string
	ttl          int
	maxCacheAgeS float64
	dohTimeout   time.Duration
	auditor      Auditor
	logger       telemetry.Logger
}

func NewReconciler(
	cacheStore *cache.Store,
	dnsClient *dnsprovider.Client,
	hostname string,
	ttl int,
	maxCacheAgeS float64,
	dohTimeout time.Duration,
	auditor Auditor,
	logger telemetry.Logger,
) *Reconciler {
	return newReconciler(cacheStore, dnsClient, realResolver{}, hostname, ttl, maxCacheAgeS, dohTimeout, auditor, logger)
}

// NewReconcilerWithResolver is NewReconciler but with an injected
// Resolver and DNSClient, for tests that need to script L2/L3 responses.
func NewReconcilerWithResolver(
	cacheStore *cache.Store,
	dnsClient DNSClient,
	resolver Resolver,
	hostname string,
	ttl int,
	maxCacheAgeS float64,
	dohTimeout time.Duration,
	auditor Auditor,
	logger telemetry.Logger,
) *Reconciler {
	return newReconciler(cacheStore, dnsClient, resolver, hostname, ttl, maxCacheAgeS, dohTimeout, auditor, logger)
}

func newReconciler(
	cacheStore *cache.Store,
	dnsClient DNSClient,
	resolver Resolver,
	hostname string,
	ttl int,
	maxCacheAgeS float64,
	dohTimeout time.Duration,
	auditor Auditor,
	logger telemetry.Logger,
) *Reconciler {
	return &Reconciler{
		cacheStore:   cacheStore,
		dnsClient:    dnsClient,
		resolver:     resolver,
		hostname:     hostname,
		ttl:          ttl,
		maxCacheAgeS: maxCacheAgeS,
		dohTimeout:   dohTimeout,
		auditor:      auditor,
		logger:       logger,
	}
}

// Reconcile brings the external A-record into agreement with publicIP.
// It must only be called when readiness is READY and publicIP is a
// confirmed, valid address.
func (r *Reconciler) Reconcile(ctx context.Context, publicIP string) (Outcome, error) {
	// L1 — local cache.
	lookup := r.cacheStore.LoadIP()
	switch {
	case lookup.Hit && lookup.AgeS <= r.maxCacheAgeS && lookup.IP == publicIP:
		telemetry.Emit(r.logger, "✅", "CACHE", "HIT", publicIP, "age_s="+formatFloat(lookup.AgeS))
		telemetry.Emit(r.logger, "✅", "DDNS", "NO-OP", publicIP, "reason=cache=hit")
		return Outcome{Mutated: false, Reason: "cache=hit"}, nil
	case !lookup.Hit:
		telemetry.Emit(r.logger, "⚠️", "CACHE", "MISS", publicIP, "")
	case lookup.AgeS > r.maxCacheAgeS:
		telemetry.Emit(r.logger, "⚠️", "CACHE", "EXPIRED", publicIP, "age_s="+formatFloat(lookup.AgeS))
	default:
		telemetry.Emit(r.logger, "⚠️", "CACHE", "MISMATCH", publicIP, "cached="+lookup.IP)
	}

	// L2 — authoritative verification via DoH.
	doh := r.resolver.Lookup(ctx, r.hostname, r.dohTimeout)
	if doh.Success && doh.IP == publicIP {
		if err := r.cacheStore.StoreIP(publicIP); err != nil {
			telemetry.Emit(r.logger, "⚠️", "CACHE", "WRITE_FAILED", publicIP, err.Error())
		}
		telemetry.Emit(r.logger, "✅", "DNS", "VERIFIED", publicIP, "reason=doh=verified")
		telemetry.Emit(r.logger, "✅", "DDNS", "NO-OP", publicIP, "reason=doh=verified")
		return Outcome{Mutated: false, Reason: "doh=verified"}, nil
	}

	// L3 — mutation. Only reached when DoH disagrees or fails to confirm.
	rec, err := r.dnsClient.FindARecord(ctx, r.hostname)
	if err != nil {
		telemetry.Emit(r.logger, "🔴", "DNS", "LOOKUP_FAILED", publicIP, err.Error())
		return Outcome{}, err
	}
	if err := r.dnsClient.UpdateRecord(ctx, rec.ID, r.hostname, publicIP, r.ttl); err != nil {
		telemetry.Emit(r.logger, "🔴", "CLOUDFLARE", "UPDATE_FAILED", publicIP, err.Error())
		return Outcome{}, err
	}
	if err := r.cacheStore.StoreIP(publicIP); err != nil {
		telemetry.Emit(r.logger, "⚠️", "CACHE", "WRITE_FAILED", publicIP, err.Error())
	}
	telemetry.Emit(r.logger, "✅", "CLOUDFLARE", "UPDATED", publicIP, "")
	telemetry.Emit(r.logger, "✅", "DDNS", "UPDATED", publicIP, "reason=ip-mismatch")
	if r.auditor != nil {
		r.auditor.AppendIPLog(ctx, publicIP, r.hostname)
	}
	return Outcome{Mutated: true, Reason: "ip-mismatch"}, nil
}

func formatFloat(f float64) string {
	return time.Duration(f * float64(time.Second)).String()
}

var _ DNSClient = (*dnsprovider.Client)(nil)
var _ Resolver = realResolver{}
