// Package discovery implements C4: LAN peer advertisement and browsing over
// multicast DNS (spec §4.4). Grounded on the original Python implementation's
// zeroconf-based discovery.py (same service type, same TXT record shape,
// same self-discovery filtering) ported onto github.com/hashicorp/mdns, the
// idiomatic Go mDNS library — the teacher's own mDNS-adjacent dependency,
// pion/mdns/v2, is a low-level packet-conn implementation pulled in
// transitively by go-waku/libp2p, not a service advertise/browse API, so it
// has no service-level Register/Query surface to build on here.
package discovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/mdns"

	"agentmail-go/internal/mailbox"
)

// ServiceType is the mDNS service type every node advertises under and
// browses for (spec §4.4).
const ServiceType = "_agentmail._tcp"

// Self describes the identity this node advertises.
type Self struct {
	FP      string
	Name    string
	SignPub string // base64url, for the TXT record
	EncPub  string // base64url, for the TXT record
	Port    int
}

// Discovery advertises Self on the LAN and periodically browses for peers,
// upserting what it finds into the mailbox store (spec §4.4: "on ADD or
// UPDATE, calls upsert_peer"; "on REMOVE, endpoint is cleared").
type Discovery struct {
	self      Self
	store     *mailbox.Store
	logger    *slog.Logger
	interval  time.Duration
	queryWait time.Duration

	mu      sync.Mutex
	server  *mdns.Server
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastSeen map[string]bool // fp -> seen in the most recent browse cycle
}

// Option configures a Discovery before Start.
type Option func(*Discovery)

// WithInterval overrides the default 10s browse interval.
func WithInterval(d time.Duration) Option {
	return func(disc *Discovery) { disc.interval = d }
}

// WithQueryWait overrides how long a single mDNS query collects responses
// (spec §5: "mDNS resolve: 2s" default).
func WithQueryWait(d time.Duration) Option {
	return func(disc *Discovery) { disc.queryWait = d }
}

// New builds a Discovery for self, persisting discovered peers into store.
func New(self Self, store *mailbox.Store, logger *slog.Logger, opts ...Option) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Discovery{
		self:      self,
		store:     store,
		logger:    logger.With("component", "discovery"),
		interval:  10 * time.Second,
		queryWait: 2 * time.Second,
		lastSeen:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start begins advertising and browsing. Idempotent: calling Start twice
// without an intervening Stop is a no-op (spec §4.4: "start(...) is
// idempotent").
func (d *Discovery) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.server != nil {
		return nil
	}

	service, err := mdns.NewMDNSService(
		d.self.Name,
		ServiceType,
		"",
		"",
		d.self.Port,
		nil,
		[]string{
			"fp=" + d.self.FP,
			"sign_pk=" + d.self.SignPub,
			"enc_pk=" + d.self.EncPub,
			"v=1",
		},
	)
	if err != nil {
		return err
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return err
	}
	d.server = server

	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.wg.Add(1)
	go d.browseLoop(ctx)

	d.logger.Info("discovery started", "name", d.self.Name, "port", d.self.Port)
	return nil
}

// Stop releases the multicast registration and halts browsing (spec §4.4:
// "stops on shutdown, releasing the multicast registration").
func (d *Discovery) Stop() error {
	d.mu.Lock()
	server, cancel := d.server, d.cancel
	d.server = nil
	d.cancel = nil
	d.mu.Unlock()
	if server == nil {
		return nil
	}
	// d.mu is released before waiting: browseOnce takes it to record each
	// scan, so holding it here would block the browse goroutine forever.
	cancel()
	d.wg.Wait()
	err := server.Shutdown()
	d.logger.Info("discovery stopped")
	return err
}

func (d *Discovery) browseLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	d.browseOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.browseOnce(ctx)
		}
	}
}
