package ratelimit

import (
	"testing"
	"time"
)

func TestAllowEnforcesBurstThenRefills(t *testing.T) {
	l := New(1, 2)
	now := time.Unix(0, 0)

	if !l.Allow("fp1", now) {
		t.Fatal("first call should be allowed")
	}
	if !l.Allow("fp1", now) {
		t.Fatal("second call within burst should be allowed")
	}
	if l.Allow("fp1", now) {
		t.Fatal("third immediate call should be throttled")
	}

	later := now.Add(2 * time.Second)
	if !l.Allow("fp1", later) {
		t.Fatal("call after refill window should be allowed")
	}
}

func TestAllowIsPerKey(t *testing.T) {
	l := New(1, 1)
	now := time.Unix(0, 0)

	if !l.Allow("fp1", now) {
		t.Fatal("fp1 first call should be allowed")
	}
	if !l.Allow("fp2", now) {
		t.Fatal("fp2 should have its own bucket")
	}
}

func TestNilLimiterAlwaysAllows(t *testing.T) {
	var l *SenderLimiter
	if !l.Allow("anything", time.Now()) {
		t.Fatal("nil limiter should always allow")
	}
	if l.Sweep(time.Now()) != 0 {
		t.Fatal("nil limiter sweep should report nothing removed")
	}
}

func TestNewRejectsInvalidArgs(t *testing.T) {
	if New(0, 1) != nil {
		t.Fatal("expected nil limiter for non-positive rps")
	}
	if New(1, 0) != nil {
		t.Fatal("expected nil limiter for non-positive burst")
	}
}

func TestSweepEvictsOnlyIdleBuckets(t *testing.T) {
	l := New(1, 1)
	now := time.Unix(0, 0)

	l.Allow("stale", now)
	l.Allow("fresh", now.Add(time.Minute))

	removed := l.Sweep(now.Add(30 * time.Second))
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if l.Tracked() != 1 {
		t.Fatalf("tracked = %d, want 1", l.Tracked())
	}
}
