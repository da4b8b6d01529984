package router

import (
	"context"

	"agentmail-go/internal/envelope"
	"agentmail-go/internal/mailbox"
)

// Send runs the full outbound state machine for one payload (spec §4.5):
// resolve, build+queue in one transaction, then attempt direct delivery,
// relay deposit, and finally reschedule on the outbox if both fail.
func (r *Router) Send(ctx context.Context, payload envelope.MessagePayload, recipientAddr string) (mailbox.StoredMessage, error) {
	peer, err := r.resolve(ctx, recipientAddr)
	if err != nil {
		return mailbox.StoredMessage{}, err
	}

	now := r.clock.Now()
	payload.CreatedAt = now.UnixMilli()
	if payload.Nonce == "" {
		nonce, err := envelope.NewNonce()
		if err != nil {
			return mailbox.StoredMessage{}, err
		}
		payload.Nonce = nonce
	}

	env, err := envelope.BuildEnvelope(payload, r.identity, peer.info.FP, peer.encPub, now)
	if err != nil {
		return mailbox.StoredMessage{}, err
	}

	msg := mailbox.StoredMessage{
		FromAddr:     payload.FromAddr,
		ToAddr:       payload.ToAddr,
		Subject:      payload.Subject,
		Body:         payload.Body,
		Kind:         payload.Kind,
		CreatedAt:    payload.CreatedAt,
		EnvelopeBlob: env.Canonical(),
	}
	storedMsg, entry, err := r.store.InsertOutbound(msg, env, peer.info.FP, r.nowMillis())
	if err != nil {
		return mailbox.StoredMessage{}, err
	}

	r.attemptDelivery(ctx, entry, peer)
	final, ok := r.store.GetMessage(storedMsg.ID)
	if !ok {
		return storedMsg, nil
	}
	return final, nil
}

// attemptDelivery runs steps 3-5 of spec §4.5 for a single outbox entry:
// try direct, then relay, then reschedule with backoff or fail terminally.
func (r *Router) attemptDelivery(ctx context.Context, entry mailbox.OutboxEntry, peer resolvedPeer) {
	if peer.info.Endpoint != "" {
		if err := r.postEnvelope(ctx, "http://"+peer.info.Endpoint+"/v0/receive", entry.Envelope, r.direct); err == nil {
			r.deliver(entry, mailbox.TierDirect)
			return
		}
	}

	if r.cfg.RelayURL != "" {
		if err := r.postEnvelope(ctx, r.cfg.RelayURL+"/v0/deposit", entry.Envelope, r.relay); err == nil {
			r.deliver(entry, mailbox.TierRelay)
			return
		}
	}

	r.reschedule(entry, "direct and relay delivery both failed")
}

func (r *Router) deliver(entry mailbox.OutboxEntry, tier mailbox.Tier) {
	if err := r.store.MarkDelivered(entry.ID, r.nowMillis()); err != nil {
		r.logger.Warn("mark delivered failed", "entry", entry.ID, "error", err)
	} else {
		r.metrics.delivered.WithLabelValues(string(tier)).Inc()
		r.logger.Info("delivered", "entry", entry.ID, "target_fp", entry.TargetFP, "tier", tier)
	}
}

// reschedule applies exponential backoff (spec §4.5 step 5):
// next_try_at = now + min(cap, base * 2^attempts). Past the attempt
// ceiling the entry transitions to FAILED instead.
func (r *Router) reschedule(entry mailbox.OutboxEntry, lastError string) {
	attempts := entry.Attempts + 1
	if attempts >= r.cfg.AttemptCeiling {
		if err := r.store.MarkFailed(entry.ID, lastError); err != nil {
			r.logger.Warn("mark failed failed", "entry", entry.ID, "error", err)
		} else {
			r.metrics.failed.Inc()
			r.logger.Warn("delivery failed permanently", "entry", entry.ID, "target_fp", entry.TargetFP, "attempts", attempts)
		}
		return
	}

	delay := backoffDelay(r.cfg.BackoffBase, r.cfg.BackoffCap, entry.Attempts)
	nextTry := r.nowMillis() + delay.Milliseconds()
	if err := r.store.RescheduleOutbox(entry.ID, nextTry, attempts, lastError, entry.Tier); err != nil {
		r.logger.Warn("reschedule failed", "entry", entry.ID, "error", err)
	}
}
