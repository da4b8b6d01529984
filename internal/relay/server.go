package relay

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"agentmail-go/internal/transport"
)

// Server exposes a Store over the relay wire protocol (spec §6) and runs
// its own periodic expiry sweep (§12 supplemented feature).
type Server struct {
	store       *Store
	logger      *slog.Logger
	addr        string
	sweepEvery  time.Duration
}

// NewServer builds a relay Server bound to addr.
func NewServer(store *Store, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:      store,
		logger:     logger.With("component", "relay"),
		addr:       addr,
		sweepEvery: 5 * time.Minute,
	}
}

// Mux builds the relay's HTTP handler.
func (s *Server) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v0/register", s.handleRegister)
	mux.HandleFunc("GET /v0/lookup/{name}", s.handleLookup)
	mux.HandleFunc("POST /v0/deposit", s.handleDeposit)
	mux.HandleFunc("GET /v0/pickup/{fp}", s.handlePickup)
	mux.HandleFunc("GET /v0/stats", s.handleStats)
	return mux
}

// Run serves the relay's HTTP surface and its expiry sweep loop until ctx
// is cancelled.
func (s *Server) Run(ctx context.Context) error {
	go s.runSweepLoop(ctx)
	return transport.RunHTTPServer(ctx, s.addr, s.Mux())
}

func (s *Server) runSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.store.Sweep(); removed > 0 {
				s.logger.Info("expired held messages removed", "count", removed)
			}
			s.store.SweepLimiter(10 * time.Minute)
		}
	}
}
