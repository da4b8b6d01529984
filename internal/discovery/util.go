package discovery

import agentcrypto "agentmail-go/internal/crypto"

// decodeB64 decodes a base64url-no-padding TXT field, returning nil rather
// than an error on malformed input — a peer advertising a garbled key is
// simply not usable for direct delivery until it fixes its record, not a
// reason to crash the browse loop.
func decodeB64(s string) []byte {
	if s == "" {
		return nil
	}
	b, err := agentcrypto.B64Decode(s)
	if err != nil {
		return nil
	}
	return b
}
