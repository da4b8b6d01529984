// Package ratelimit throttles inbound traffic per sender fingerprint so a
// single misbehaving or compromised peer cannot flood the node's POST
// /v0/receive or the relay's POST /v0/deposit (supplemented from
// _examples/original_source/agentmaild, which has no such guard, as an
// ambient hardening concern every HTTP-facing Go service in the teacher's
// style carries).
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SenderLimiter hands out one token bucket per sender fingerprint. Buckets
// are created lazily on first use and never evicted by Allow itself;
// callers that already run a periodic background tick (the node's
// register loop, the relay's expiry sweep) drive Sweep from there so idle
// fingerprints get reclaimed without every Allow call paying for a counter
// check.
type SenderLimiter struct {
	rps   rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	limiter *rate.Limiter
	seenAt  time.Time
}

// New builds a limiter allowing rps sustained requests per fingerprint with
// the given burst headroom. Returns nil when misconfigured; a nil
// *SenderLimiter always allows, so callers can wire it unconditionally.
func New(rps float64, burst int) *SenderLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	return &SenderLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		buckets: make(map[string]*bucket),
	}
}

// Allow consumes one token for fp at now, creating its bucket on first
// sight. An empty fp is never throttled — that's a caller bug to surface
// elsewhere, not something this package should reject traffic over.
func (l *SenderLimiter) Allow(fp string, now time.Time) bool {
	if l == nil || fp == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[fp]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.buckets[fp] = b
	}
	b.seenAt = now
	return b.limiter.AllowN(now, 1)
}

// Sweep drops every bucket not seen since before cutoff and reports how
// many were removed, so a caller can log or count it.
func (l *SenderLimiter) Sweep(cutoff time.Time) int {
	if l == nil {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for fp, b := range l.buckets {
		if b.seenAt.Before(cutoff) {
			delete(l.buckets, fp)
			removed++
		}
	}
	return removed
}

// Tracked reports how many fingerprints currently hold a bucket.
func (l *SenderLimiter) Tracked() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
