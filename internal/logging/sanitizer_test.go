package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSanitizeAttrRedactsKeyMaterial(t *testing.T) {
	cases := []string{"sign_sk", "enc_sk", "signature", "ciphertext", "node_private"}
	for _, key := range cases {
		attr := SanitizeAttr(slog.String(key, "super-secret-bytes"))
		if attr.Value.String() != redactedValue {
			t.Fatalf("expected %q to be redacted, got %q", key, attr.Value.String())
		}
	}
}

func TestSanitizeAttrLeavesFingerprintsAlone(t *testing.T) {
	for _, key := range []string{"sender_fp", "recipient_fp", "peer_fp"} {
		attr := SanitizeAttr(slog.String(key, "abc123"))
		if attr.Value.String() != "abc123" {
			t.Fatalf("expected %q to pass through unredacted, got %q", key, attr.Value.String())
		}
	}
}

func TestHandlerRedactsThroughJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(WrapHandler(slog.NewJSONHandler(&buf, nil)))
	logger.Info("delivered", "sender_fp", "abc123", "signature", "deadbeef")

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if decoded["sender_fp"] != "abc123" {
		t.Fatalf("expected sender_fp preserved, got %v", decoded["sender_fp"])
	}
	if decoded["signature"] != redactedValue {
		t.Fatalf("expected signature redacted, got %v", decoded["signature"])
	}
}

func TestWrapHandlerNilIsNil(t *testing.T) {
	if WrapHandler(nil) != nil {
		t.Fatal("expected WrapHandler(nil) to return nil")
	}
}

func TestHandlerEnabledDelegates(t *testing.T) {
	h := WrapHandler(slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("expected info level disabled under warn threshold")
	}
	if !h.Enabled(context.Background(), slog.LevelWarn) {
		t.Fatal("expected warn level enabled")
	}
}
