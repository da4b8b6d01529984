// Package relay implements C7: the relay's name registry and opaque blob
// inbox (spec §4.7). The relay is cryptographically blind — it stores
// envelopes it cannot read and never attempts signature verification.
// Grounded on _examples/original_source/agentmaild/relay_server.py's
// RelayStore (same register/lookup/deposit/pickup/stats operations, same
// TTL-based expiry default) re-expressed as an in-memory, mutex-guarded
// store instead of SQLite, matching the teacher's preference for in-memory
// maps over an embedded SQL engine (internal/storage/message_store.go) —
// spec §5 explicitly accepts relay state loss on restart ("senders will
// re-deposit"), so unlike the mailbox this store has no persistence layer
// at all.
package relay

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"agentmail-go/internal/clock"
	"agentmail-go/internal/envelope"
	"agentmail-go/internal/ratelimit"
)

// DefaultTTL is how long a deposited envelope is held before expiring
// (spec.md's relay §4.7 has a count/byte cap but no TTL; this is supplemented
// from the original's relay_server.py DEFAULT_TTL = 604800 seconds).
const DefaultTTL = 7 * 24 * time.Hour

// DefaultMaxPerRecipient and DefaultMaxBytesPerRecipient are the per-recipient
// caps from spec §4.7 ("e.g. 1000 envelopes or 10 MiB total").
const (
	DefaultMaxPerRecipient     = 1000
	DefaultMaxBytesPerRecipient = 10 * 1024 * 1024
)

// registryEntry is one name→identity binding (spec §4.7).
type registryEntry struct {
	Name    string
	FP      string
	SignPub string // base64url
	EncPub  string // base64url
	Version int
}

// heldMessage is one deposited, still-opaque envelope.
type heldMessage struct {
	Envelope    envelope.MessageEnvelope
	RecipientFP string
	SizeBytes   int
	DepositedAt int64
	ExpiresAt   int64
}

// Store is the relay's registry plus per-recipient blob queues.
type Store struct {
	mu       sync.Mutex
	registry map[string]registryEntry // name -> entry
	byFP     map[string]string        // fp -> name, kept in step with registry by Register
	queues   map[string][]heldMessage // recipient fp -> queue, oldest first

	clock               clock.Clock
	ttl                 time.Duration
	maxPerRecipient     int
	maxBytesPerRecipient int

	metrics *metrics
	limiter *ratelimit.SenderLimiter
}

// Option configures a Store before use.
type Option func(*Store)

// WithRegisterer registers the store's prometheus metrics against reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Store) { s.metrics = newMetrics(reg) }
}

// WithDepositRateLimit caps accepted deposits per sender_fp (spec §11:
// per-sender-fp rate limiting ahead of /v0/deposit, mirroring the node's
// /v0/receive guard).
func WithDepositRateLimit(rps float64, burst int) Option {
	return func(s *Store) { s.limiter = ratelimit.New(rps, burst) }
}

// SweepLimiter drops any per-sender limiter bucket idle for longer than
// idle, piggybacking on the store's own expiry sweep tick instead of making
// every Deposit call pay for an eviction check.
func (s *Store) SweepLimiter(idle time.Duration) int {
	return s.limiter.Sweep(s.clock.Now().Add(-idle))
}

// New builds an empty relay Store.
func New(c clock.Clock, opts ...Option) *Store {
	s := &Store{
		registry:             make(map[string]registryEntry),
		byFP:                 make(map[string]string),
		queues:               make(map[string][]heldMessage),
		clock:                c,
		ttl:                  DefaultTTL,
		maxPerRecipient:      DefaultMaxPerRecipient,
		maxBytesPerRecipient: DefaultMaxBytesPerRecipient,
		metrics:              newMetrics(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) nowMillis() int64 { return clock.NowMillis(s.clock) }

// Stats reports aggregate held-message counts (spec §4.7 stats()).
type Stats struct {
	MessagesHeld int
	TotalBytes   int64
}

// Stats returns the current aggregate over every recipient queue.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats
	for _, q := range s.queues {
		st.MessagesHeld += len(q)
		for _, m := range q {
			st.TotalBytes += int64(m.SizeBytes)
		}
	}
	return st
}

// Sweep removes every expired held message across all recipient queues
// (supplemented from the original's cleanup_expired/cleanup_loop; spec.md's
// own §4.7 has no TTL, only the count/byte cap). Returns the count removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowMillis()
	removed := 0
	for fp, q := range s.queues {
		kept := q[:0:0]
		for _, m := range q {
			if m.ExpiresAt > now {
				kept = append(kept, m)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(s.queues, fp)
		} else {
			s.queues[fp] = kept
		}
	}
	s.metrics.held.Set(float64(s.totalHeldLocked()))
	return removed
}

// sortedNames returns the registered names in sorted order, for
// deterministic iteration over the registry. The caller must hold s.mu.
// Nothing in the package calls it at present.
func (s *Store) sortedNames() []string {
	names := make([]string, 0, len(s.registry))
	for name := range s.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
