package envelope

import (
	"testing"
	"time"

	agentcrypto "agentmail-go/internal/crypto"
)

func TestBuildVerifyRoundTrip(t *testing.T) {
	alice, err := agentcrypto.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity alice: %v", err)
	}
	bob, err := agentcrypto.GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity bob: %v", err)
	}

	nonce, err := NewNonce()
	if err != nil {
		t.Fatalf("NewNonce: %v", err)
	}
	payload := MessagePayload{
		FromAddr:  "alice@alice.local",
		ToAddr:    "bob@bob.local",
		Subject:   "hi",
		Body:      "ping",
		Kind:      KindMessage,
		CreatedAt: time.Now().UnixMilli(),
		Nonce:     nonce,
	}

	env, err := BuildEnvelope(payload, alice, agentcrypto.Fingerprint(bob.SignPub), bob.EncPub, time.Now())
	if err != nil {
		t.Fatalf("BuildEnvelope: %v", err)
	}

	got, err := VerifyAndOpen(env, bob, alice.SignPub)
	if err != nil {
		t.Fatalf("VerifyAndOpen: %v", err)
	}
	if got != payload {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, payload)
	}
}

func TestVerifyAndOpenRejectsTamperedCiphertext(t *testing.T) {
	alice, _ := agentcrypto.GenerateIdentity()
	bob, _ := agentcrypto.GenerateIdentity()
	nonce, _ := NewNonce()
	payload := MessagePayload{FromAddr: "a@a.local", ToAddr: "b@b.local", Kind: KindMessage, CreatedAt: 1, Nonce: nonce}

	env, err := BuildEnvelope(payload, alice, agentcrypto.Fingerprint(bob.SignPub), bob.EncPub, time.Now())
	if err != nil {
		t.Fatalf("BuildEnvelope: %v", err)
	}
	env.Ciphertext[0] ^= 0xFF
	// Re-sign so the signature itself stays valid and only decryption fails.
	resigned, err := agentcrypto.Sign(alice.SignSK, env.SignedBytes())
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	env.Signature = resigned

	if _, err := VerifyAndOpen(env, bob, alice.SignPub); err == nil {
		t.Fatalf("VerifyAndOpen accepted a tampered ciphertext")
	}
}

func TestVerifyAndOpenRejectsWrongSigner(t *testing.T) {
	alice, _ := agentcrypto.GenerateIdentity()
	mallory, _ := agentcrypto.GenerateIdentity()
	bob, _ := agentcrypto.GenerateIdentity()
	nonce, _ := NewNonce()
	payload := MessagePayload{FromAddr: "a@a.local", ToAddr: "b@b.local", Kind: KindMessage, CreatedAt: 1, Nonce: nonce}

	env, err := BuildEnvelope(payload, mallory, agentcrypto.Fingerprint(bob.SignPub), bob.EncPub, time.Now())
	if err != nil {
		t.Fatalf("BuildEnvelope: %v", err)
	}
	env.SenderFP = agentcrypto.Fingerprint(alice.SignPub) // claims to be alice

	if _, err := VerifyAndOpen(env, bob, alice.SignPub); err == nil {
		t.Fatalf("VerifyAndOpen accepted an envelope signed by the wrong key")
	}
}

func TestEnvelopeJSONRoundTrip(t *testing.T) {
	alice, _ := agentcrypto.GenerateIdentity()
	bob, _ := agentcrypto.GenerateIdentity()
	nonce, _ := NewNonce()
	payload := MessagePayload{FromAddr: "a@a.local", ToAddr: "b@b.local", Kind: KindMessage, CreatedAt: 1, Nonce: nonce}
	env, err := BuildEnvelope(payload, alice, agentcrypto.Fingerprint(bob.SignPub), bob.EncPub, time.Now())
	if err != nil {
		t.Fatalf("BuildEnvelope: %v", err)
	}

	raw, err := env.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	var round MessageEnvelope
	if err := round.UnmarshalJSON(raw); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if round.SenderFP != env.SenderFP || round.RecipientFP != env.RecipientFP || round.SentAt != env.SentAt {
		t.Fatalf("round-tripped envelope metadata mismatch")
	}
	if string(round.Ciphertext) != string(env.Ciphertext) || string(round.Signature) != string(env.Signature) {
		t.Fatalf("round-tripped envelope binary fields mismatch")
	}
}
