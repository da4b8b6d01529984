package node

import (
	"context"
	"net/http"
	"time"

	agentcrypto "agentmail-go/internal/crypto"
	"agentmail-go/internal/envelope"
	"agentmail-go/internal/mailbox"
	"agentmail-go/internal/wire"
)

// runRegisterLoop POSTs /v0/register every cfg.RegisterEvery (spec §4.6).
func (n *Node) runRegisterLoop(ctx context.Context) {
	ticker := time.NewTicker(n.cfg.RegisterEvery)
	defer ticker.Stop()

	n.registerOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.registerOnce(ctx)
			n.limiter.Sweep(n.clock.Now().Add(-10 * time.Minute))
		}
	}
}

func (n *Node) registerOnce(ctx context.Context) {
	req := wire.RegisterRequest{
		Name:    n.cfg.Name,
		FP:      agentcrypto.Fingerprint(n.identity.SignPub),
		SignPub: agentcrypto.B64Encode(n.identity.SignPub),
		EncPub:  agentcrypto.B64Encode(n.identity.EncPub[:]),
		Version: envelope.Version,
	}
	status, err := n.relay.PostJSON(ctx, n.cfg.RelayURL+"/v0/register", req, nil)
	if err != nil {
		n.logger.Warn("registration failed", "error", err)
		return
	}
	if status != http.StatusOK {
		n.logger.Warn("registration rejected", "status", status)
		return
	}
	n.logger.Info("registered with relay", "relay", n.cfg.RelayURL)
}

// runPickupLoop GETs /v0/pickup/{fp} every cfg.PickupEvery and verifies,
// decrypts, and persists each returned envelope (spec §4.6).
func (n *Node) runPickupLoop(ctx context.Context) {
	ticker := time.NewTicker(n.cfg.PickupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.pickupOnce(ctx)
		}
	}
}

func (n *Node) pickupOnce(ctx context.Context) {
	fp := agentcrypto.Fingerprint(n.identity.SignPub)
	var resp wire.PickupResponse
	status, err := n.relay.GetJSON(ctx, n.cfg.RelayURL+"/v0/pickup/"+fp, &resp)
	if err != nil || status != http.StatusOK {
		if err != nil {
			n.logger.Warn("pickup failed", "error", err)
		}
		return
	}

	for _, env := range resp.Envelopes {
		n.processPickedUpEnvelope(env)
	}
}

func (n *Node) processPickedUpEnvelope(env envelope.MessageEnvelope) {
	peer, ok := n.store.GetPeer(env.SenderFP)
	if !ok {
		n.logger.Warn("pickup: unknown sender", "sender_fp", env.SenderFP)
		return
	}
	senderPub, err := agentcrypto.ParseSignPub(peer.SignPub)
	if err != nil {
		n.logger.Warn("pickup: sender key invalid", "sender_fp", env.SenderFP)
		return
	}

	payload, err := envelope.VerifyAndOpen(env, n.identity, senderPub)
	if err != nil {
		n.logger.Warn("pickup: verify/decrypt failed", "sender_fp", env.SenderFP, "error", err)
		return
	}

	msg := mailbox.StoredMessage{
		FromAddr:     payload.FromAddr,
		ToAddr:       payload.ToAddr,
		Subject:      payload.Subject,
		Body:         payload.Body,
		Kind:         payload.Kind,
		CreatedAt:    payload.CreatedAt,
		Status:       mailbox.StatusDelivered,
		EnvelopeBlob: env.Canonical(),
	}
	deliveredAt := n.clock.Now().UnixMilli()
	msg.DeliveredAt = &deliveredAt

	if _, created, err := n.store.InsertInbound(env.SenderFP, payload.Nonce, msg); err != nil {
		n.logger.Warn("pickup: insert inbound failed", "error", err)
	} else if created {
		n.logger.Info("picked up from relay", "sender_fp", env.SenderFP, "subject", payload.Subject)
	}
}
