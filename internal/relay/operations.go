package relay

import (
	"log/slog"

	"agentmail-go/internal/envelope"
)

// Register upserts the registry entry for name (spec §4.7). A second
// register for the same name with a different fp is accepted per the
// documented v0 last-writer-wins policy, but logged as a change so an
// operator can notice name hijacking.
func (s *Store) Register(logger *slog.Logger, name, fp, signPub, encPub string, version int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.registry[name]; ok && existing.FP != fp && logger != nil {
		logger.Warn("relay name re-registered under a different fingerprint",
			"name", name, "old_fp", existing.FP, "new_fp", fp)
	}
	if existing, ok := s.registry[name]; ok {
		delete(s.byFP, existing.FP)
	}

	s.registry[name] = registryEntry{Name: name, FP: fp, SignPub: signPub, EncPub: encPub, Version: version}
	s.byFP[fp] = name
}

// Lookup returns the registry entry for name, if any (spec §4.7 lookup()).
func (s *Store) Lookup(name string) (registryEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.registry[name]
	return e, ok
}

// Deposit appends env to its recipient's queue, evicting the oldest entry
// on overflow of either the count or byte cap (spec §4.7 deposit()). The
// relay reads only recipient_fp (to pick the queue) and sender_fp (for the
// rate limiter); it treats the rest as opaque and never checks the
// signature. Returns false if the deposit was refused by the per-sender
// rate limiter.
func (s *Store) Deposit(env envelope.MessageEnvelope) bool {
	now := s.clock.Now()
	if !s.limiter.Allow(env.SenderFP, now) {
		s.metrics.rejected.WithLabelValues("rate_limited").Inc()
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blob := env.Canonical()
	msg := heldMessage{
		Envelope:    env,
		RecipientFP: env.RecipientFP,
		SizeBytes:   len(blob),
		DepositedAt: now.UnixMilli(),
		ExpiresAt:   now.UnixMilli() + s.ttl.Milliseconds(),
	}

	q := append(s.queues[env.RecipientFP], msg)
	for len(q) > s.maxPerRecipient || queueBytes(q) > s.maxBytesPerRecipient {
		q = q[1:]
		s.metrics.dropped.Inc()
	}
	s.queues[env.RecipientFP] = q
	s.metrics.deposited.Inc()
	s.metrics.held.Set(float64(s.totalHeldLocked()))
	return true
}

func (s *Store) totalHeldLocked() int {
	total := 0
	for _, q := range s.queues {
		total += len(q)
	}
	return total
}

// Pickup returns and drains every queued envelope for fp in one step (spec
// §4.7 pickup()): "returns all queued envelopes ... and drains the queue in
// one transaction."
func (s *Store) Pickup(fp string) []envelope.MessageEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.queues[fp]
	if len(q) == 0 {
		return nil
	}
	out := make([]envelope.MessageEnvelope, len(q))
	for i, m := range q {
		out[i] = m.Envelope
	}
	delete(s.queues, fp)
	s.metrics.held.Set(float64(s.totalHeldLocked()))
	return out
}

// QueueDepth reports how many envelopes fp currently has held, for tests
// and metrics.
func (s *Store) QueueDepth(fp string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues[fp])
}

func queueBytes(q []heldMessage) int {
	total := 0
	for _, m := range q {
		total += m.SizeBytes
	}
	return total
}
