package envelope

import (
	"encoding/json"
	"fmt"

	agentcrypto "agentmail-go/internal/crypto"
)

// MarshalJSON renders the envelope in its canonical wire form so that the
// stored envelope_blob, the HTTP request body, and the signed bytes are all
// byte-identical modulo the signature field itself.
func (e MessageEnvelope) MarshalJSON() ([]byte, error) {
	return e.Canonical(), nil
}

type envelopeWire struct {
	Version     int    `json:"version"`
	SenderFP    string `json:"sender_fp"`
	RecipientFP string `json:"recipient_fp"`
	Ciphertext  string `json:"ciphertext"`
	Signature   string `json:"signature"`
	SentAt      int64  `json:"sent_at"`
}

// unmarshalPayload decodes a plaintext MessagePayload. Standard encoding/json
// is sufficient here (no binary fields), since key order doesn't matter for
// decoding — only Canonical()'s encoding side needs to be deterministic.
func unmarshalPayload(data []byte, p *MessagePayload) error {
	return json.Unmarshal(data, p)
}

// UnmarshalJSON parses the wire form produced by MarshalJSON/Canonical.
func (e *MessageEnvelope) UnmarshalJSON(data []byte) error {
	var raw envelopeWire
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("envelope: malformed json: %w", err)
	}
	ciphertext, err := agentcrypto.B64Decode(raw.Ciphertext)
	if err != nil {
		return fmt.Errorf("envelope: malformed ciphertext: %w", err)
	}
	signature, err := agentcrypto.B64Decode(raw.Signature)
	if err != nil {
		return fmt.Errorf("envelope: malformed signature: %w", err)
	}
	*e = MessageEnvelope{
		Version:     raw.Version,
		SenderFP:    raw.SenderFP,
		RecipientFP: raw.RecipientFP,
		Ciphertext:  ciphertext,
		Signature:   signature,
		SentAt:      raw.SentAt,
	}
	return nil
}
