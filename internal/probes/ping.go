// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

package probes

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"net"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"github.com/bkaewell/ddns-agent/internal/errorsx"
)

// icmpID is one random echo identifier shared by every PingHost call in
// the process; each call sends Seq 1 and does not match replies by ID.
var icmpID = randomID()

func randomID() uint16 {
	var b [2]byte
	_, _ = rand.Read(b[:]) // crypto/rand.Read never returns an error
	return binary.LittleEndian.Uint16(b[:])
}

// PingHost sends a single ICMP echo request to ip and waits up to timeout
// for the matching reply. It is a weak LAN signal only — never a
// readiness input — used purely for ROUTER_FLAKY telemetry and
// smart-relay reachability checks.
func PingHost(ctx context.Context, ip string, timeout time.Duration) Result {
	start := time.Now()

	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return Result{Success: false, ElapsedMS: elapsedMS(start), Attempts: 1, MaxAttempts: 1, Detail: err.Error()}
	}
	defer conn.Close()

	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{
			ID:   int(icmpID),
			Seq:  1,
			Data: []byte("ddns-agent"),
		},
	}
	raw, err := msg.Marshal(nil)
	if err != nil {
		return Result{Success: false, ElapsedMS: elapsedMS(start), Attempts: 1, MaxAttempts: 1, Detail: err.Error()}
	}

	dst := &net.UDPAddr{IP: net.ParseIP(ip)}
	if dst.IP == nil {
		return Result{Success: false, ElapsedMS: elapsedMS(start), Attempts: 1, MaxAttempts: 1, Detail: "invalid IP: " + ip}
	}
	if _, err := conn.WriteTo(raw, dst); err != nil {
		return Result{Success: false, ElapsedMS: elapsedMS(start), Attempts: 1, MaxAttempts: 1, Detail: err.Error()}
	}

	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	n, err := readWithTimeout(readCtx, conn, timeout)
	if err != nil {
		return Result{Success: false, ElapsedMS: elapsedMS(start), Attempts: 1, MaxAttempts: 1, Detail: err.Error()}
	}

	reply, err := icmp.ParseMessage(1 /* ICMPv4 protocol number */, n.buffer[:n.n])
	if err != nil {
		return Result{Success: false, ElapsedMS: elapsedMS(start), Attempts: 1, MaxAttempts: 1, Detail: errorsx.Wrap(err, "couldn't parse ICMP reply").Error()}
	}
	if reply.Type != ipv4.ICMPTypeEchoReply {
		return Result{Success: false, ElapsedMS: elapsedMS(start), Attempts: 1, MaxAttempts: 1, Detail: "unexpected ICMP type"}
	}
	return Result{Success: true, ElapsedMS: elapsedMS(start), Attempts: 1, MaxAttempts: 1}
}

type icmpRead struct {
	n      int
	buffer []byte
}

// readWithTimeout reads one packet off conn, bounded by ctx, mirroring
// a pingRead pattern of racing a read goroutine against
// context cancellation rather than relying solely on SetReadDeadline.
func readWithTimeout(ctx context.Context, conn *icmp.PacketConn, timeout time.Duration) (icmpRead, error) {
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	buffer := make([]byte, 512)
	type result struct {
		n   int
		err error
	}
	c := make(chan result, 1)
	go func() {
		n, _, err := conn.ReadFrom(buffer)
		c <- result{n: n, err: err}
	}()
	select {
	case <-ctx.Done():
		return icmpRead{}, context.Cause(ctx)
	case r := <-c:
		if r.err != nil {
			return icmpRead{}, r.err
		}
		return icmpRead{n: r.n, buffer: buffer}, nil
	}
}
