package router

import "fmt"

// UnknownRecipient is returned when an address resolves to nothing, neither
// locally nor via the configured relay (spec §4.5 step 1).
type UnknownRecipient struct {
	Address string
}

func (e *UnknownRecipient) Error() string {
	return fmt.Sprintf("router: unknown recipient %q", e.Address)
}

// IdentityConflict is returned when resolution reveals a peer record with a
// different sign_pk than already pinned for its fingerprint (spec §4.5:
// "never silently trust new keys").
type IdentityConflict struct {
	FP string
}

func (e *IdentityConflict) Error() string {
	return fmt.Sprintf("router: identity conflict for fingerprint %s", e.FP)
}

// TransportError wraps a direct or relay delivery attempt's failure; it is
// not fatal to the send — the router reschedules on the outbox (spec §4.5
// step 5).
type TransportError struct {
	Tier string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("router: %s delivery failed: %v", e.Tier, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
