package mailbox

import (
	"bytes"
	"sort"

	"agentmail-go/internal/envelope"
)

// UpsertPeer records or refreshes a peer entry (spec §3, §4.3: "merges,
// preferring a non-null endpoint and bumping last_seen"). The pair (fp,
// SignPub) is pinned on first sight; a later upsert carrying a different
// SignPub for the same fp is rejected with *PeerConflict rather than
// silently re-pinning trust. An upsert with an empty Endpoint never
// clobbers a previously known one (spec §4.4: on mDNS REMOVE, "endpoint is
// cleared but the record retained" is a deliberate exception handled by the
// caller passing the peer's fingerprint to ClearEndpoint, not through this
// merge path).
func (s *Store) UpsertPeer(p PeerInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.peers[p.FP]; ok {
		if !bytes.Equal(existing.SignPub, p.SignPub) {
			return &PeerConflict{FP: p.FP}
		}
		if existing.Name != "" && existing.Name != p.Name {
			delete(s.peersByName, existing.Name)
		}
		if p.Endpoint == "" {
			p.Endpoint = existing.Endpoint
		}
		if len(p.EncPub) == 0 {
			p.EncPub = existing.EncPub
		}
	}

	p.LastSeen = s.clock.Now().UnixMilli()
	s.peers[p.FP] = p
	if p.Name != "" {
		s.peersByName[p.Name] = p.FP
	}
	return s.persistLocked()
}

// ClearEndpoint blanks out a peer's endpoint without touching its pinned
// keys (spec §4.4: mDNS REMOVE clears endpoint but retains the record).
// A no-op if the fingerprint is unknown.
func (s *Store) ClearEndpoint(fp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.peers[fp]
	if !ok {
		return nil
	}
	p.Endpoint = ""
	s.peers[fp] = p
	return s.persistLocked()
}

// GetPeer looks up a peer by fingerprint.
func (s *Store) GetPeer(fp string) (PeerInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peers[fp]
	return p, ok
}

// GetPeerByNameOrFP resolves an address target (spec §3 addressing: either
// a human-assigned name or a raw fingerprint) to a pinned peer record.
func (s *Store) GetPeerByNameOrFP(target string) (PeerInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.peers[target]; ok {
		return p, true
	}
	if fp, ok := s.peersByName[target]; ok {
		p, ok := s.peers[fp]
		return p, ok
	}
	return PeerInfo{}, false
}

// ListPeers returns every pinned peer, sorted by fingerprint.
func (s *Store) ListPeers() []PeerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PeerInfo, 0, len(s.peers))
	for _, p := range s.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FP < out[j].FP })
	return out
}

// InsertInbound records a received message (spec §4.3 invariant: receive is
// idempotent on (sender_fp, nonce)). If a message with the same dedup key
// has already been recorded, the existing row is returned unchanged and
// created is false — callers must not re-decrypt or re-notify in that case.
func (s *Store) InsertInbound(senderFP, nonce string, msg StoredMessage) (StoredMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := dedupKey(senderFP, nonce)
	if id, ok := s.dedup[key]; ok {
		return s.messages[id], false, nil
	}

	msg.ID = s.nextULID()
	msg.Direction = DirIn
	s.messages[msg.ID] = msg
	s.dedup[key] = msg.ID
	if err := s.persistLocked(); err != nil {
		return StoredMessage{}, false, err
	}
	return msg, true, nil
}

// InsertOutbound records an outbound message together with its first
// OutboxEntry in a single mutation (spec §4.3: "queued as one transaction").
// msg.ID and entry.ID are assigned here; any values passed in are ignored.
func (s *Store) InsertOutbound(msg StoredMessage, env envelope.MessageEnvelope, targetFP string, nextTryAt int64) (StoredMessage, OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg.ID = s.nextULID()
	msg.Direction = DirOut
	msg.Status = StatusPending
	msg.Attempts = 0
	s.messages[msg.ID] = msg

	entry := OutboxEntry{
		ID:        s.nextULID(),
		MessageID: msg.ID,
		Envelope:  env,
		TargetFP:  targetFP,
		NextTryAt: nextTryAt,
		Attempts:  0,
		Tier:      TierDirect,
	}
	s.outbox[entry.ID] = entry
	s.outboxByMessage[msg.ID] = entry.ID

	if err := s.persistLocked(); err != nil {
		return StoredMessage{}, OutboxEntry{}, err
	}
	return msg, entry, nil
}

// MarkDelivered closes out an outbox entry as delivered (spec §4.3:
// delivered_at is set if and only if status is DELIVERED). The entry is
// removed from the outbox; the message row is kept for history.
func (s *Store) MarkDelivered(entryID string, deliveredAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.outbox[entryID]
	if !ok {
		return nil
	}
	msg, ok := s.messages[entry.MessageID]
	if ok {
		at := deliveredAt
		msg.Status = StatusDelivered
		msg.DeliveredAt = &at
		msg.Attempts = entry.Attempts + 1
		s.messages[msg.ID] = msg
	}
	delete(s.outbox, entryID)
	delete(s.outboxByMessage, entry.MessageID)
	return s.persistLocked()
}

// MarkFailed closes out an outbox entry as permanently failed (spec §4.3:
// the attempt ceiling has been reached, or the recipient is unknown and
// unresolvable). The entry is removed from the outbox.
func (s *Store) MarkFailed(entryID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.outbox[entryID]
	if !ok {
		return nil
	}
	msg, ok := s.messages[entry.MessageID]
	if ok {
		msg.Status = StatusFailed
		msg.Attempts = entry.Attempts + 1
		s.messages[msg.ID] = msg
	}
	delete(s.outbox, entryID)
	delete(s.outboxByMessage, entry.MessageID)
	_ = reason
	return s.persistLocked()
}

// RescheduleOutbox bumps attempts, records the next try time and last
// error, and moves the entry's tier (spec §4.5: direct delivery failures
// escalate to the relay tier before falling back to backoff). attempts is
// monotonically non-decreasing; callers pass attempts+1 of the prior value.
func (s *Store) RescheduleOutbox(entryID string, nextTryAt int64, attempts int, lastError string, tier Tier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.outbox[entryID]
	if !ok {
		return nil
	}
	entry.NextTryAt = nextTryAt
	entry.Attempts = attempts
	entry.LastError = lastError
	entry.Tier = tier
	s.outbox[entryID] = entry

	if msg, ok := s.messages[entry.MessageID]; ok {
		msg.Attempts = attempts
		s.messages[msg.ID] = msg
	}
	return s.persistLocked()
}

// ListOutboxDue returns up to limit outbox entries whose NextTryAt has
// elapsed, ordered by (TargetFP, NextTryAt) so the drain loop processes
// deliveries to the same peer in order (spec §4.5: per-recipient ordering).
func (s *Store) ListOutboxDue(now int64, limit int) []OutboxEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]OutboxEntry, 0, len(s.outbox))
	for _, e := range s.outbox {
		if e.NextTryAt <= now {
			due = append(due, e)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].TargetFP != due[j].TargetFP {
			return due[i].TargetFP < due[j].TargetFP
		}
		return due[i].NextTryAt < due[j].NextTryAt
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due
}

// OutboxDepth reports how many entries are currently queued for delivery,
// for metrics.
func (s *Store) OutboxDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.outbox)
}

// Inbox returns received messages, newest first, capped at limit (0 means
// unlimited).
func (s *Store) Inbox(limit int) []StoredMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]StoredMessage, 0, len(s.messages))
	for _, m := range s.messages {
		if m.Direction == DirIn {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GetMessage looks up a message by id regardless of direction.
func (s *Store) GetMessage(id string) (StoredMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	return m, ok
}
