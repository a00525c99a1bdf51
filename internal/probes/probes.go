// Use of this source code is governed by a GPL-2 license that can be found in the LICENSE file.
//
// Copyright 2025-2026 ddns-agent authors
//
// SPDX-License-Identifier: GPL-2.0-only

// Package probes implements the agent's stateless, network-bound
// reachability primitives. Every function returns a Result and never
// raises an error for an expected transport failure; transport failures
// are instead encoded as Success=false with ElapsedMS populated.
package probes

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Result is the common shape every probe returns.
type Result struct {
	Success    bool
	ElapsedMS  float64
	Attempts   int
	MaxAttempts int
	Detail     string
}

// IPResult augments a Result with a resolved IPv4 address.
type IPResult struct {
	Result
	IP string
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

var ipv4Pattern = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3})$`)

// IsValidIPv4 accepts only dotted-quad 0-255 per octet.
func IsValidIPv4(s string) bool {
	m := ipv4Pattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return false
	}
	for _, octet := range m[1:] {
		if len(octet) > 1 && octet[0] == '0' {
			return false // reject leading zeros, e.g. "01"
		}
		n := 0
		for _, c := range octet {
			n = n*10 + int(c-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}

// httpClientFor returns a client whose total round trip cannot exceed
// timeout, independent of the context passed to individual requests.
func httpClientFor(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func fetchBody(ctx context.Context, client *http.Client, url string, headers map[string]string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", net.UnknownNetworkError("unexpected status " + resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// VerifyWANReachability opens a TCP connection to host:port and completes
// a TLS handshake. Success here means routing, L4, and TLS are all
// functional — the strong readiness signal the controller relies on.
func VerifyWANReachability(ctx context.Context, host string, port string, timeout time.Duration) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var d tls.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return Result{Success: false, ElapsedMS: elapsedMS(start), Attempts: 1, MaxAttempts: 1, Detail: err.Error()}
	}
	defer conn.Close()
	return Result{Success: true, ElapsedMS: elapsedMS(start), Attempts: 1, MaxAttempts: 1}
}

// publicIPEchoServices is the ordered list of echo services tried in
// turn; the first response that passes IPv4 validation wins.
var publicIPEchoServices = []string{
	"https://api.ipify.org",
	"https://ifconfig.me/ip",
	"https://ipv4.icanhazip.com",
	"https://ipecho.net/plain",
}

// GetPublicIP tries each echo service in order with a per-request
// timeout, returning the first syntactically-valid IPv4 address.
func GetPublicIP(ctx context.Context, perRequestTimeout time.Duration) IPResult {
	start := time.Now()
	client := httpClientFor(perRequestTimeout)
	attempts := 0
	for _, url := range publicIPEchoServices {
		attempts++
		reqCtx, cancel := context.WithTimeout(ctx, perRequestTimeout)
		body, err := fetchBody(reqCtx, client, url, nil)
		cancel()
		if err != nil {
			continue
		}
		candidate := strings.TrimSpace(body)
		if IsValidIPv4(candidate) {
			return IPResult{
				Result: Result{Success: true, ElapsedMS: elapsedMS(start), Attempts: attempts, MaxAttempts: len(publicIPEchoServices)},
				IP:     candidate,
			}
		}
	}
	return IPResult{
		Result: Result{Success: false, ElapsedMS: elapsedMS(start), Attempts: attempts, MaxAttempts: len(publicIPEchoServices), Detail: "no echo service returned a valid IPv4 address"},
	}
}

type dohAnswer struct {
	Answer []struct {
		Data string `json:"data"`
	} `json:"Answer"`
}

// DoHLookup resolves hostname's A record via the public Cloudflare DoH
// resolver, independent of both the local cache and the provider API —
// the authoritative external truth the L2 verification tier relies on.
func DoHLookup(ctx context.Context, hostname string, timeout time.Duration) IPResult {
	start := time.Now()
	client := httpClientFor(timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := "https://cloudflare-dns.com/dns-query?name=" + hostname + "&type=A"
	body, err := fetchBody(ctx, client, url, map[string]string{"Accept": "application/dns-json"})
	if err != nil {
		return IPResult{Result: Result{Success: false, ElapsedMS: elapsedMS(start), Attempts: 1, MaxAttempts: 1, Detail: err.Error()}}
	}
	answer, err := parseDoHAnswer(body)
	if err != nil || answer == "" || !IsValidIPv4(answer) {
		return IPResult{Result: Result{Success: false, ElapsedMS: elapsedMS(start), Attempts: 1, MaxAttempts: 1, Detail: "no valid A answer"}}
	}
	return IPResult{Result: Result{Success: true, ElapsedMS: elapsedMS(start), Attempts: 1, MaxAttempts: 1}, IP: answer}
}

func parseDoHAnswer(body string) (string, error) {
	var parsed dohAnswer
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return "", err
	}
	if len(parsed.Answer) == 0 {
		return "", nil
	}
	return parsed.Answer[0].Data, nil
}
