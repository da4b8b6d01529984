package envelope

import (
	"crypto/ed25519"
	"fmt"
	"time"

	agentcrypto "agentmail-go/internal/crypto"
)

// BuildEnvelope encrypts the canonical payload to the recipient's enc_pk and
// signs the result (spec §4.2). Pure: no I/O, no mailbox access.
func BuildEnvelope(payload MessagePayload, sender *agentcrypto.Identity, recipientFP string, recipientEncPub *[32]byte, now time.Time) (MessageEnvelope, error) {
	ciphertext, err := agentcrypto.Seal(recipientEncPub, payload.Canonical())
	if err != nil {
		return MessageEnvelope{}, fmt.Errorf("envelope: seal: %w", err)
	}

	env := MessageEnvelope{
		Version:     Version,
		SenderFP:    agentcrypto.Fingerprint(sender.SignPub),
		RecipientFP: recipientFP,
		Ciphertext:  ciphertext,
		SentAt:      now.UnixMilli(),
	}
	sig, err := agentcrypto.Sign(sender.SignSK, env.SignedBytes())
	if err != nil {
		return MessageEnvelope{}, fmt.Errorf("envelope: sign: %w", err)
	}
	env.Signature = sig
	return env, nil
}

// VerifyAndOpen checks env's signature against knownSenderPub, then decrypts
// with local's encryption private key (spec §4.2). Pure: no I/O, no mailbox
// access. Signature is checked before any decryption is attempted, per spec
// §8 invariant 2 (signature-first).
func VerifyAndOpen(env MessageEnvelope, local *agentcrypto.Identity, knownSenderPub ed25519.PublicKey) (MessagePayload, error) {
	if env.Version != Version {
		return MessagePayload{}, &agentcrypto.Error{Kind: agentcrypto.BadKey, Msg: "unsupported envelope version"}
	}
	if !agentcrypto.Verify(knownSenderPub, env.SignedBytes(), env.Signature) {
		return MessagePayload{}, &agentcrypto.Error{Kind: agentcrypto.BadSig, Msg: "envelope signature invalid"}
	}

	plaintext, err := agentcrypto.Open(local.EncPub, local.EncSK, env.Ciphertext)
	if err != nil {
		return MessagePayload{}, err
	}

	var payload MessagePayload
	if err := unmarshalPayload(plaintext, &payload); err != nil {
		return MessagePayload{}, &agentcrypto.Error{Kind: agentcrypto.DecryptFail, Msg: "payload malformed after decrypt: " + err.Error()}
	}
	return payload, nil
}
