package relay

import (
	"encoding/json"
	"net/http"

	"agentmail-go/internal/envelope"
	"agentmail-go/internal/transport"
	"agentmail-go/internal/wire"
)

// handleRegister serves POST /v0/register (spec §4.7, §6).
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req wire.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteJSON(w, http.StatusBadRequest, wire.ErrorResponse{Error: "malformed request: " + err.Error()})
		return
	}
	if req.Name == "" || req.FP == "" {
		transport.WriteJSON(w, http.StatusBadRequest, wire.ErrorResponse{Error: "name and fp are required"})
		return
	}
	s.store.Register(s.logger, req.Name, req.FP, req.SignPub, req.EncPub, req.Version)
	w.WriteHeader(http.StatusOK)
}

// handleLookup serves GET /v0/lookup/{name} (spec §4.7, §6).
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	entry, ok := s.store.Lookup(name)
	if !ok {
		transport.WriteJSON(w, http.StatusNotFound, wire.ErrorResponse{Error: "not found"})
		return
	}
	transport.WriteJSON(w, http.StatusOK, wire.PeerResponse{
		Name:    entry.Name,
		FP:      entry.FP,
		SignPub: entry.SignPub,
		EncPub:  entry.EncPub,
		Version: entry.Version,
	})
}

// handleDeposit serves POST /v0/deposit (spec §4.7, §6). The relay reads
// only recipient_fp and, for rate limiting, sender_fp; the rest of the
// envelope is opaque to it. Overflow is
// handled by Store.Deposit's oldest-dropped eviction (spec §4.7's
// component-level contract), so a deposit never itself fails with 413 under
// this policy — see DESIGN.md for this Open Question decision.
func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var env envelope.MessageEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		transport.WriteJSON(w, http.StatusBadRequest, wire.ErrorResponse{Error: "malformed envelope: " + err.Error()})
		return
	}
	if env.RecipientFP == "" {
		transport.WriteJSON(w, http.StatusBadRequest, wire.ErrorResponse{Error: "recipient_fp is required"})
		return
	}
	if !s.store.Deposit(env) {
		transport.WriteJSON(w, http.StatusTooManyRequests, wire.ErrorResponse{Error: "rate limited"})
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handlePickup serves GET /v0/pickup/{fp} (spec §4.7, §6): drains the
// recipient's queue in one step.
func (s *Server) handlePickup(w http.ResponseWriter, r *http.Request) {
	fp := r.PathValue("fp")
	envs := s.store.Pickup(fp)
	transport.WriteJSON(w, http.StatusOK, wire.PickupResponse{Envelopes: envs})
}

// handleStats serves GET /v0/stats (spec §4.7, §6). Unauthenticated and
// read-only by design — no sensitive data crosses this endpoint (carried
// forward from the original relay_server.py's stats() comment).
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.store.Stats()
	transport.WriteJSON(w, http.StatusOK, wire.StatsResponse{
		MessagesHeld: st.MessagesHeld,
		TotalBytes:   st.TotalBytes,
	})
}
