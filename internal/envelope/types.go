package envelope

import (
	"crypto/rand"

	agentcrypto "agentmail-go/internal/crypto"
)

// Kind classifies a MessagePayload (spec §3).
type Kind string

const (
	KindMessage Kind = "MESSAGE"
	KindTask    Kind = "TASK"
	KindAck     Kind = "ACK"
)

// Version is the current envelope wire version (spec §3, §4.2).
const Version = 1

// MessagePayload is the inner plaintext carried inside a sealed envelope.
// nonce is a 128-bit random value ensuring payload uniqueness even when
// every other field collides (spec §3).
type MessagePayload struct {
	FromAddr  string `json:"from_addr"`
	ToAddr    string `json:"to_addr"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Kind      Kind   `json:"kind"`
	CreatedAt int64  `json:"created_at"` // unix-milliseconds
	Nonce     string `json:"nonce"`      // URL-safe base64, 16 random bytes
}

// NewNonce returns a fresh 128-bit random nonce, base64url-encoded.
func NewNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return b64(buf), nil
}

// Canonical renders the payload per §4.2: JSON, ASCII-sorted keys, no
// insignificant whitespace, UTF-8.
func (p MessagePayload) Canonical() []byte {
	return canonicalObject([]field{
		{"body", p.Body},
		{"created_at", p.CreatedAt},
		{"from_addr", p.FromAddr},
		{"kind", string(p.Kind)},
		{"nonce", p.Nonce},
		{"subject", p.Subject},
		{"to_addr", p.ToAddr},
	})
}

// MessageEnvelope is the outer wire form (spec §3). Ciphertext is a
// sealed-box encryption of the canonical payload under the recipient's
// enc_pk; Signature is an Ed25519 signature over the canonical form of
// (version, sender_fp, recipient_fp, ciphertext, sent_at).
type MessageEnvelope struct {
	Version      int    `json:"version"`
	SenderFP     string `json:"sender_fp"`
	RecipientFP  string `json:"recipient_fp"`
	Ciphertext   []byte `json:"ciphertext"`
	Signature    []byte `json:"signature"`
	SentAt       int64  `json:"sent_at"` // unix-milliseconds
}

// signedFields is the canonical form over which Signature is computed: the
// envelope with the signature field omitted (§4.2).
func (e MessageEnvelope) signedFields() []field {
	return []field{
		{"ciphertext", b64(e.Ciphertext)},
		{"recipient_fp", e.RecipientFP},
		{"sender_fp", e.SenderFP},
		{"sent_at", int64(e.SentAt)},
		{"version", int64(e.Version)},
	}
}

// SignedBytes returns the canonical bytes that Signature is computed over:
// the canonical serialization of (version, sender_fp, recipient_fp,
// ciphertext, sent_at), exactly as spec'd — any peer implementation must
// reproduce this byte-for-byte to verify a signature (§4.2).
func (e MessageEnvelope) SignedBytes() []byte {
	return canonicalObject(e.signedFields())
}

// Canonical renders the full envelope, including the signature, for wire
// transport and storage (envelope_blob).
func (e MessageEnvelope) Canonical() []byte {
	fields := e.signedFields()
	fields = append(fields, field{"signature", b64(e.Signature)})
	return canonicalObject(fields)
}

// b64 is the URL-safe, unpadded base64 encoding shared with the crypto
// package so every binary wire field in the system (keys, signatures,
// ciphertext, nonces) uses one encoding.
func b64(b []byte) string {
	return agentcrypto.B64Encode(b)
}
