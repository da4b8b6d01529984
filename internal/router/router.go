// Package router implements C5, the core delivery state machine (spec
// §4.5): resolve the recipient, build the envelope, attempt direct
// delivery, fall back to the relay, and otherwise queue on the outbox with
// exponential backoff. Grounded structurally on the teacher's
// internal/nodeagent and internal/waku background-loop/HTTP-client style,
// since the teacher has no router of its own to generalize directly — this
// is the one component built mostly from spec.md and the Python original's
// router.py, in the teacher's idiom.
package router

import (
	"crypto/ed25519"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"agentmail-go/internal/clock"
	agentcrypto "agentmail-go/internal/crypto"
	"agentmail-go/internal/mailbox"
	"agentmail-go/internal/transport"
)

// Router drives outbound delivery for a single node identity.
type Router struct {
	identity *agentcrypto.Identity
	store    *mailbox.Store
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics

	direct *transport.Client
	relay  *transport.Client
}

// Option configures a Router before use.
type Option func(*Router)

// WithRegisterer registers the router's prometheus metrics against reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Router) { r.metrics = newMetrics(reg) }
}

// New builds a Router bound to identity and store.
func New(identity *agentcrypto.Identity, store *mailbox.Store, c clock.Clock, cfg Config, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		identity: identity,
		store:    store,
		clock:    c,
		cfg:      cfg,
		logger:   logger.With("component", "router"),
		direct:   transport.NewClient(cfg.DirectTimeout),
		relay:    transport.NewClient(cfg.RelayTimeout),
		metrics:  newMetrics(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// resolvedPeer is a peer record with its parsed public keys, ready to feed
// into envelope construction.
type resolvedPeer struct {
	info    mailbox.PeerInfo
	signPub ed25519.PublicKey
	encPub  *[32]byte
}

func (r *Router) nowMillis() int64 { return clock.NowMillis(r.clock) }
