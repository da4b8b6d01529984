// Package node implements C6: the node service — inbound HTTP handler plus
// the registration, pickup, and outbox-drain background loops (spec §4.6).
// Grounded on the teacher's internal/nodeagent/service.go for the overall
// Service-with-background-loops shape and internal/adapters/rpc for the
// plain net/http mux wiring.
package node

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"agentmail-go/internal/clock"
	agentcrypto "agentmail-go/internal/crypto"
	"agentmail-go/internal/mailbox"
	"agentmail-go/internal/ratelimit"
	"agentmail-go/internal/router"
	"agentmail-go/internal/transport"
)

// Config holds the node's own tunables (spec §4.6, §5).
type Config struct {
	Name           string
	Addr           string // listen address, "host:port"
	RelayURL       string
	RegisterEvery  time.Duration // default 60s
	PickupEvery    time.Duration // default 5s
	RelayTimeout   time.Duration // default 5s
}

// DefaultConfig fills in spec §5's stated defaults.
func DefaultConfig() Config {
	return Config{
		RegisterEvery: 60 * time.Second,
		PickupEvery:   5 * time.Second,
		RelayTimeout:  5 * time.Second,
	}
}

// Node wires identity, mailbox, and router together behind an HTTP surface
// and a set of background loops.
type Node struct {
	identity *agentcrypto.Identity
	store    *mailbox.Store
	router   *router.Router
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger
	relay    *transport.Client
	metrics  *metrics
	limiter  *ratelimit.SenderLimiter
}

// Option configures a Node before it starts serving.
type Option func(*Node)

// WithRegisterer registers the node's prometheus metrics against reg
// instead of leaving them unregistered (tests typically omit this).
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(n *Node) { n.metrics = newMetrics(reg) }
}

// WithReceiveRateLimit caps accepted POST /v0/receive calls per sender_fp
// (spec §11: per-sender-fp rate limiting ahead of the inbound handler).
func WithReceiveRateLimit(rps float64, burst int) Option {
	return func(n *Node) { n.limiter = ratelimit.New(rps, burst) }
}

// New builds a Node. router must already be constructed with the same
// identity and store (cmd/agentmaild wires these together).
func New(identity *agentcrypto.Identity, store *mailbox.Store, r *router.Router, c clock.Clock, cfg Config, logger *slog.Logger, opts ...Option) *Node {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Node{
		identity: identity,
		store:    store,
		router:   r,
		clock:    c,
		cfg:      cfg,
		logger:   logger.With("component", "node"),
		relay:    transport.NewClient(cfg.RelayTimeout),
		metrics:  newMetrics(nil),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Mux builds the node's HTTP handler (spec §6 node surface).
func (n *Node) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v0/receive", n.handleReceive)
	mux.HandleFunc("GET /v0/inbox", n.handleInbox)
	mux.HandleFunc("POST /v0/send", n.handleSend)
	return mux
}

// Run serves the HTTP surface and runs every background loop until ctx is
// cancelled (spec §4.6, §5 shutdown semantics).
func (n *Node) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- transport.RunHTTPServer(ctx, n.cfg.Addr, n.Mux()) }()

	go n.router.RunDrainLoop(ctx)
	if n.cfg.RelayURL != "" {
		go n.runRegisterLoop(ctx)
		go n.runPickupLoop(ctx)
	}

	return <-errCh
}
