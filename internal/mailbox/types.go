// Package mailbox implements C3: the durable store for messages, peers, and
// the outbox, with the atomic state-transition rules of spec §3/§4.3.
// Grounded on the teacher's in-memory-map-plus-persisted-snapshot storage
// pattern (internal/storage/message_store.go: a mutex-guarded map, mutated
// only behind persistSnapshotLocked, reloaded from disk on start) rather
// than an actual SQL engine — the teacher repo has no SQL dependency
// anywhere in the pack's direct requires, so "transactional" here means the
// same thing it means in internal/storage: every state-changing operation
// mutates the maps under the store mutex and then rewrites the whole
// snapshot file atomically (temp file + rename), so a crash mid-write never
// leaves a half-written file on disk. The in-memory change is not rolled
// back if that write fails.
package mailbox

import "agentmail-go/internal/envelope"

// Direction of a StoredMessage.
type Direction string

const (
	DirIn  Direction = "IN"
	DirOut Direction = "OUT"
)

// Status of a StoredMessage.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDelivered Status = "DELIVERED"
	StatusFailed    Status = "FAILED"
)

// Source records how a PeerInfo was learned.
type Source string

const (
	SourceLAN    Source = "LAN"
	SourceRelay  Source = "RELAY"
	SourceManual Source = "MANUAL"
)

// Tier is the delivery tier an OutboxEntry is currently attempting.
type Tier string

const (
	TierDirect Tier = "DIRECT"
	TierRelay  Tier = "RELAY"
)

// PeerInfo is a record keyed by fingerprint (spec §3). (fp, SignPub) is
// immutable once written.
type PeerInfo struct {
	FP       string
	Name     string
	SignPub  []byte // Ed25519 public key
	EncPub   []byte // X25519 public key
	Endpoint string // "host:port", empty if unknown
	LastSeen int64  // unix-milliseconds
	Source   Source
}

// StoredMessage is a row in the mailbox (spec §3).
type StoredMessage struct {
	ID           string
	Direction    Direction
	FromAddr     string
	ToAddr       string
	Subject      string
	Body         string
	Kind         envelope.Kind
	CreatedAt    int64
	DeliveredAt  *int64
	Status       Status
	Attempts     int
	EnvelopeBlob []byte
}

// OutboxEntry tracks a pending outbound delivery (spec §3). Every
// non-DELIVERED OUT StoredMessage has exactly one OutboxEntry.
type OutboxEntry struct {
	ID         string
	MessageID  string
	Envelope   envelope.MessageEnvelope
	TargetFP   string
	NextTryAt  int64
	Attempts   int
	LastError  string
	Tier       Tier
}
