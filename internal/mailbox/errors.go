package mailbox

import "fmt"

// PeerConflict is returned when an upsert would change the signing key
// pinned to an existing fingerprint (spec §3, §8 invariant 3). The caller
// must manually purge the stale peer before accepting the new key — the
// mailbox never silently trusts a new key for a known fingerprint.
type PeerConflict struct {
	FP string
}

func (e *PeerConflict) Error() string {
	return fmt.Sprintf("mailbox: peer conflict for fingerprint %s: sign_pk would change", e.FP)
}

// MailboxErrorKind classifies a MailboxError (spec §7).
type MailboxErrorKind string

const (
	MailboxCorrupt MailboxErrorKind = "CORRUPT"
	MailboxFull    MailboxErrorKind = "FULL"
)

// MailboxError is fatal to the current operation and surfaced to the caller.
type MailboxError struct {
	Kind MailboxErrorKind
	Msg  string
}

func (e *MailboxError) Error() string {
	return fmt.Sprintf("mailbox: %s: %s", e.Kind, e.Msg)
}
