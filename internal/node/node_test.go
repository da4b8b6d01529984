package node

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agentmail-go/internal/clock"
	agentcrypto "agentmail-go/internal/crypto"
	"agentmail-go/internal/envelope"
	"agentmail-go/internal/mailbox"
	"agentmail-go/internal/router"
	"agentmail-go/internal/wire"
)

func newTestNode(t *testing.T) (*Node, *agentcrypto.Identity, *mailbox.Store) {
	t.Helper()
	id, err := agentcrypto.GenerateIdentity()
	if err != nil {
		t.Fatalf("generate identity: %v", err)
	}
	c := clock.NewFixed(time.UnixMilli(1_700_000_000_000))
	store := mailbox.NewMemory(c)
	r := router.New(id, store, c, router.DefaultConfig(), nil)
	n := New(id, store, r, c, Config{Name: "alice"}, nil)
	return n, id, store
}

func TestHandleReceiveRejectsUnknownSender(t *testing.T) {
	n, _, _ := newTestNode(t)
	env := envelope.MessageEnvelope{Version: 1, SenderFP: "ghostfp", RecipientFP: "x"}
	body, _ := json.Marshal(env)

	req := httptest.NewRequest(http.MethodPost, "/v0/receive", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	n.handleReceive(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleReceiveAcceptsValidEnvelope(t *testing.T) {
	n, recvID, store := newTestNode(t)

	senderID, err := agentcrypto.GenerateIdentity()
	if err != nil {
		t.Fatalf("generate sender identity: %v", err)
	}
	senderFP := agentcrypto.Fingerprint(senderID.SignPub)
	if err := store.UpsertPeer(mailbox.PeerInfo{
		FP:      senderFP,
		Name:    "bob",
		SignPub: []byte(senderID.SignPub),
		EncPub:  senderID.EncPub[:],
		Source:  mailbox.SourceManual,
	}); err != nil {
		t.Fatalf("upsert sender peer: %v", err)
	}

	nonce, err := envelope.NewNonce()
	if err != nil {
		t.Fatalf("nonce: %v", err)
	}
	payload := envelope.MessagePayload{
		FromAddr: "bob@local", ToAddr: "alice@local", Subject: "hi", Body: "hello",
		Kind: envelope.KindMessage, CreatedAt: 1_700_000_000_000, Nonce: nonce,
	}
	recvFP := agentcrypto.Fingerprint(recvID.SignPub)
	env, err := envelope.BuildEnvelope(payload, senderID, recvFP, recvID.EncPub, time.UnixMilli(1_700_000_000_000))
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	body, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v0/receive", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	n.handleReceive(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	inbox := store.Inbox(0)
	if len(inbox) != 1 || inbox[0].Subject != "hi" {
		t.Fatalf("expected message in inbox, got %+v", inbox)
	}

	// Re-delivering the same envelope must be idempotent (dedup on nonce).
	req2 := httptest.NewRequest(http.MethodPost, "/v0/receive", bytes.NewReader(body))
	rec2 := httptest.NewRecorder()
	n.handleReceive(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on redelivery, got %d", rec2.Code)
	}
	if len(store.Inbox(0)) != 1 {
		t.Fatalf("expected dedup to suppress duplicate insert, got %d messages", len(store.Inbox(0)))
	}
}

func TestHandleSendUnknownRecipient(t *testing.T) {
	n, _, _ := newTestNode(t)
	req := httptest.NewRequest(http.MethodPost, "/v0/send", bytes.NewReader(mustJSON(wire.SendRequest{
		To: "ghost", Subject: "hi", Body: "hello",
	})))
	rec := httptest.NewRecorder()
	n.handleSend(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
