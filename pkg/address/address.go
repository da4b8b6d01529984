// Package address parses the human-facing "name@host.local" address format
// (spec §3) into a structured value at the system boundary, so the router
// operates on structured addresses and PeerInfo rather than raw strings
// (spec §9's "string-typed addresses" redesign note).
package address

import (
	"errors"
	"strings"
)

// ErrMalformed is returned when a string isn't of the form "name@host".
var ErrMalformed = errors.New("address: malformed, expected name@host")

// Address is a parsed "name@host" value. Host is either an mDNS hostname
// (LAN) or a synthetic fingerprint-based pseudo-host when only the relay
// knows the peer (spec §3).
type Address struct {
	Name string
	Host string
}

// Parse splits raw into an Address. Name and Host must both be non-empty.
func Parse(raw string) (Address, error) {
	raw = strings.TrimSpace(raw)
	at := strings.IndexByte(raw, '@')
	if at <= 0 || at == len(raw)-1 {
		return Address{}, ErrMalformed
	}
	return Address{Name: raw[:at], Host: raw[at+1:]}, nil
}

// String renders the Address back to "name@host" form.
func (a Address) String() string {
	return a.Name + "@" + a.Host
}

// PseudoHost builds the synthetic host used when a peer is known only via
// the relay: "<fingerprint>.relay".
func PseudoHost(fingerprint string) string {
	return fingerprint + ".relay"
}
