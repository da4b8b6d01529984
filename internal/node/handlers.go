package node

import (
	"encoding/json"
	"net/http"
	"strconv"

	agentcrypto "agentmail-go/internal/crypto"
	"agentmail-go/internal/envelope"
	"agentmail-go/internal/mailbox"
	"agentmail-go/internal/router"
	"agentmail-go/internal/transport"
	"agentmail-go/internal/wire"
)

// handleReceive accepts POST /v0/receive (spec §4.6, §6): verifies the
// envelope's signature against the claimed sender_fp, decrypts, and
// persists. The relay has no reverse fingerprint-to-name lookup, so "the
// sender is unknown and the relay lookup also returns nothing" (spec §4.6)
// reduces here to: if the sender isn't already a pinned local peer, the
// message is refused — see DESIGN.md for this Open Question decision.
func (n *Node) handleReceive(w http.ResponseWriter, r *http.Request) {
	var env envelope.MessageEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		transport.WriteJSON(w, http.StatusBadRequest, wire.ErrorResponse{Error: "malformed envelope: " + err.Error()})
		return
	}

	if !n.limiter.Allow(env.SenderFP, n.clock.Now()) {
		n.metrics.rejected.WithLabelValues("rate_limited").Inc()
		transport.WriteJSON(w, http.StatusTooManyRequests, wire.ErrorResponse{Error: "rate limited"})
		return
	}

	peer, ok := n.store.GetPeer(env.SenderFP)
	if !ok {
		n.metrics.rejected.WithLabelValues("unknown_sender").Inc()
		n.logger.Warn("receive refused: unknown sender", "sender_fp", env.SenderFP)
		transport.WriteJSON(w, http.StatusUnauthorized, wire.ErrorResponse{Error: "unknown sender"})
		return
	}
	senderPub, err := agentcrypto.ParseSignPub(peer.SignPub)
	if err != nil {
		n.metrics.rejected.WithLabelValues("bad_key").Inc()
		transport.WriteJSON(w, http.StatusUnauthorized, wire.ErrorResponse{Error: "sender key invalid"})
		return
	}

	payload, err := envelope.VerifyAndOpen(env, n.identity, senderPub)
	if err != nil {
		if cryptoErr, ok := err.(*agentcrypto.Error); ok && cryptoErr.Kind == agentcrypto.BadSig {
			n.metrics.rejected.WithLabelValues("bad_signature").Inc()
			n.logger.Warn("receive refused: bad signature", "sender_fp", env.SenderFP)
			transport.WriteJSON(w, http.StatusUnauthorized, wire.ErrorResponse{Error: "signature invalid"})
			return
		}
		n.metrics.rejected.WithLabelValues("decrypt_failed").Inc()
		n.logger.Warn("receive refused: decrypt failed", "sender_fp", env.SenderFP, "error", err)
		transport.WriteJSON(w, http.StatusUnprocessableEntity, wire.ErrorResponse{Error: "decrypt failed"})
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
		transport.WriteJSON(w, http.StatusInternalServerError, wire.ErrorResponse{Error: err.Error()})
		return
	} else if created {
		n.metrics.received.Inc()
		n.logger.Info("received", "sender_fp", env.SenderFP, "subject", payload.Subject)
	}
	w.WriteHeader(http.StatusOK)
}

// handleInbox serves GET /v0/inbox?cursor=&limit= (spec §6). cursor is
// accepted but ignored and no cursor is returned — ordering is by
// created_at descending and the mailbox has no separate cursor index; limit
// bounds result size.
func (n *Node) handleInbox(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	messages := n.store.Inbox(limit)
	resp := wire.InboxResponse{Messages: make([]wire.InboxMessage, 0, len(messages))}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, wire.InboxMessage{
			ID:          m.ID,
			FromAddr:    m.FromAddr,
			ToAddr:      m.ToAddr,
			Subject:     m.Subject,
			Body:        m.Body,
			Kind:        string(m.Kind),
			CreatedAt:   m.CreatedAt,
			DeliveredAt: m.DeliveredAt,
			Status:      string(m.Status),
		})
	}
	transport.WriteJSON(w, http.StatusOK, resp)
}

// handleSend serves POST /v0/send (spec §6): constructs payload+envelope
// and routes it per §4.5.
func (n *Node) handleSend(w http.ResponseWriter, r *http.Request) {
	var req wire.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteJSON(w, http.StatusBadRequest, wire.ErrorResponse{Error: "malformed request: " + err.Error()})
		return
	}
	if req.Kind == "" {
		req.Kind = envelope.KindMessage
	}

	payload := envelope.MessagePayload{
		FromAddr: n.cfg.Name,
		ToAddr:   req.To,
		Subject:  req.Subject,
		Body:     req.Body,
		Kind:     req.Kind,
	}

	msg, err := n.router.Send(r.Context(), payload, req.To)
	if err != nil {
		switch err.(type) {
		case *router.UnknownRecipient:
			transport.WriteJSON(w, http.StatusNotFound, wire.ErrorResponse{Error: err.Error()})
		case *router.IdentityConflict:
			transport.WriteJSON(w, http.StatusConflict, wire.ErrorResponse{Error: err.Error()})
		default:
			transport.WriteJSON(w, http.StatusInternalServerError, wire.ErrorResponse{Error: err.Error()})
		}
		return
	}

	transport.WriteJSON(w, http.StatusOK, wire.InboxMessage{
		ID:          msg.ID,
		FromAddr:    msg.FromAddr,
		ToAddr:      msg.ToAddr,
		Subject:     msg.Subject,
		Body:        msg.Body,
		Kind:        string(msg.Kind),
		CreatedAt:   msg.CreatedAt,
		DeliveredAt: msg.DeliveredAt,
		Status:      string(msg.Status),
	})
}
