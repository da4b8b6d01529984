package router

import (
	"context"
	"fmt"

	agentcrypto "agentmail-go/internal/crypto"
	"agentmail-go/internal/mailbox"
	"agentmail-go/internal/wire"
	"agentmail-go/pkg/address"
)

// resolve looks up recipient, first against the local mailbox, then (if not
// found and a relay is configured) against the relay's name registry (spec
// §4.5 step 1). A relay-returned record that conflicts with an already
// pinned fingerprint is rejected rather than trusted.
func (r *Router) resolve(ctx context.Context, recipient string) (resolvedPeer, error) {
	addr, err := address.Parse(recipient)
	name := recipient
	if err == nil {
		name = addr.Name
	}

	if p, ok := r.store.GetPeerByNameOrFP(name); ok {
		return toResolved(p)
	}

	if r.cfg.RelayURL == "" {
		return resolvedPeer{}, &UnknownRecipient{Address: recipient}
	}

	var resp wire.PeerResponse
	status, err := r.relay.GetJSON(ctx, r.cfg.RelayURL+"/v0/lookup/"+name, &resp)
	if err != nil || status != 200 {
		return resolvedPeer{}, &UnknownRecipient{Address: recipient}
	}

	signPub, err := decodeSignPub(resp.SignPub)
	if err != nil {
		return resolvedPeer{}, &UnknownRecipient{Address: recipient}
	}
	encPub, err := decodeEncPub(resp.EncPub)
	if err != nil {
		return resolvedPeer{}, &UnknownRecipient{Address: recipient}
	}

	peer := mailbox.PeerInfo{
		FP:       resp.FP,
		Name:     resp.Name,
		SignPub:  signPub,
		EncPub:   encPub[:],
		Endpoint: resp.Endpoint,
		Source:   mailbox.SourceRelay,
	}
	if err := r.store.UpsertPeer(peer); err != nil {
		if _, ok := err.(*mailbox.PeerConflict); ok {
			return resolvedPeer{}, &IdentityConflict{FP: resp.FP}
		}
		return resolvedPeer{}, fmt.Errorf("router: upsert resolved peer: %w", err)
	}
	return toResolved(peer)
}

func toResolved(p mailbox.PeerInfo) (resolvedPeer, error) {
	signPub, err := agentcrypto.ParseSignPub(p.SignPub)
	if err != nil {
		return resolvedPeer{}, fmt.Errorf("router: peer %s has malformed sign_pk: %w", p.FP, err)
	}
	encPub, err := agentcrypto.ParseEncPub(p.EncPub)
	if err != nil {
		return resolvedPeer{}, fmt.Errorf("router: peer %s has malformed enc_pk: %w", p.FP, err)
	}
	return resolvedPeer{info: p, signPub: signPub, encPub: encPub}, nil
}

// decodeSignPub decodes a base64url sign_pk wire field into raw bytes,
// validating its length as an Ed25519 public key.
func decodeSignPub(s string) ([]byte, error) {
	b, err := agentcrypto.B64Decode(s)
	if err != nil {
		return nil, err
	}
	if _, err := agentcrypto.ParseSignPub(b); err != nil {
		return nil, err
	}
	return b, nil
}

// decodeEncPub decodes a base64url enc_pk wire field into a validated
// 32-byte X25519 public key.
func decodeEncPub(s string) (*[32]byte, error) {
	b, err := agentcrypto.B64Decode(s)
	if err != nil {
		return nil, err
	}
	return agentcrypto.ParseEncPub(b)
}
