package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"agentmail-go/internal/clock"
	agentcrypto "agentmail-go/internal/crypto"
	"agentmail-go/internal/envelope"
	"agentmail-go/internal/mailbox"
)

func testRouter(t *testing.T, cfg Config) (*Router, *agentcrypto.Identity, *mailbox.Store) {
	t.Helper()
	id, err := agentcrypto.GenerateIdentity()
	if err != nil {
		t.Fatalf("generate identity: %v", err)
	}
	store := mailbox.NewMemory(clock.NewFixed(time.UnixMilli(1_700_000_000_000)))
	return New(id, store, clock.NewFixed(time.UnixMilli(1_700_000_000_000)), cfg, nil), id, store
}

func registerPeer(t *testing.T, store *mailbox.Store, name, endpoint string) *agentcrypto.Identity {
	t.Helper()
	peerID, err := agentcrypto.GenerateIdentity()
	if err != nil {
		t.Fatalf("generate peer identity: %v", err)
	}
	fp := agentcrypto.Fingerprint(peerID.SignPub)
	err = store.UpsertPeer(mailbox.PeerInfo{
		FP:       fp,
		Name:     name,
		SignPub:  []byte(peerID.SignPub),
		EncPub:   peerID.EncPub[:],
		Endpoint: endpoint,
		Source:   mailbox.SourceManual,
	})
	if err != nil {
		t.Fatalf("upsert peer: %v", err)
	}
	return peerID
}

func stripScheme(url string) string {
	return strings.TrimPrefix(url, "http://")
}

func TestSendDirectDeliverySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/v0/receive" {
			http.NotFound(w, req)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	r, _, store := testRouter(t, cfg)
	registerPeer(t, store, "bob", stripScheme(srv.URL))

	msg, err := r.Send(context.Background(), envelope.MessagePayload{
		FromAddr: "alice@local", ToAddr: "bob@local", Body: "hi", Kind: envelope.KindMessage,
	}, "bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Status != mailbox.StatusDelivered {
		t.Fatalf("expected DELIVERED, got %s", msg.Status)
	}
	if due := store.ListOutboxDue(9_999_999_999_999, 10); len(due) != 0 {
		t.Fatalf("expected outbox drained, got %+v", due)
	}
}

func TestSendUnknownRecipientFails(t *testing.T) {
	r, _, _ := testRouter(t, DefaultConfig())
	_, err := r.Send(context.Background(), envelope.MessagePayload{
		FromAddr: "alice@local", ToAddr: "ghost@local", Body: "hi", Kind: envelope.KindMessage,
	}, "ghost")
	if _, ok := err.(*UnknownRecipient); !ok {
		t.Fatalf("expected *UnknownRecipient, got %T: %v", err, err)
	}
}

func TestSendFallsBackToRelayOnDirectFailure(t *testing.T) {
	relaySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != "/v0/deposit" {
			http.NotFound(w, req)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer relaySrv.Close()

	cfg := DefaultConfig()
	cfg.RelayURL = relaySrv.URL
	r, _, store := testRouter(t, cfg)
	registerPeer(t, store, "bob", "127.0.0.1:1") // unreachable

	msg, err := r.Send(context.Background(), envelope.MessagePayload{
		FromAddr: "alice@local", ToAddr: "bob@local", Body: "hi", Kind: envelope.KindMessage,
	}, "bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Status != mailbox.StatusDelivered {
		t.Fatalf("expected DELIVERED via relay, got %s", msg.Status)
	}
}

func TestSendQueuesOnBothFailures(t *testing.T) {
	cfg := DefaultConfig()
	r, _, store := testRouter(t, cfg)
	registerPeer(t, store, "bob", "127.0.0.1:1")

	msg, err := r.Send(context.Background(), envelope.MessagePayload{
		FromAddr: "alice@local", ToAddr: "bob@local", Body: "hi", Kind: envelope.KindMessage,
	}, "bob")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.Status != mailbox.StatusPending {
		t.Fatalf("expected PENDING, got %s", msg.Status)
	}
	due := store.ListOutboxDue(9_999_999_999_999, 10)
	if len(due) != 1 || due[0].Attempts != 1 {
		t.Fatalf("expected one rescheduled entry with attempts=1, got %+v", due)
	}
}

func TestBackoffDelay(t *testing.T) {
	base := 5 * time.Second
	cap := 300 * time.Second
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 5 * time.Second},
		{1, 10 * time.Second},
		{2, 20 * time.Second},
		{6, 300 * time.Second}, // 5*2^6=320s, capped
		{20, 300 * time.Second},
	}
	for _, c := range cases {
		got := backoffDelay(base, cap, c.attempts)
		if got != c.want {
			t.Errorf("backoffDelay(attempts=%d) = %v, want %v", c.attempts, got, c.want)
		}
	}
}
