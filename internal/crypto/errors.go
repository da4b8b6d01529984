package crypto

import "fmt"

// Kind classifies a CryptoError per spec §4.1 / §7.
type Kind string

const (
	BadSig      Kind = "BAD_SIG"
	BadKey      Kind = "BAD_KEY"
	DecryptFail Kind = "DECRYPT_FAIL"
)

// Error is the local, never-retried error kind for cryptographic failures.
// It is surfaced to the caller immediately and never absorbed by the router.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("crypto: %s", e.Kind)
	}
	return fmt.Sprintf("crypto: %s: %s", e.Kind, e.Msg)
}

func newErr(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}
