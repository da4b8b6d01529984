// Package logging builds the process-wide *slog.Logger every binary uses,
// wrapping a JSON handler in a sanitizing handler that keeps key material
// out of logs (spec §10.1). Grounded on
// internal/platform/privacylog/sanitizer.go's Handler-wrapping shape
// (Enabled/Handle/WithAttrs/WithGroup delegating to a wrapped next
// handler), with the redaction policy itself rewritten for this domain:
// the teacher hashes free-form entity IDs into opaque fingerprints, but
// this repo's sender_fp/recipient_fp/peer_fp attrs are already short,
// opaque, intentionally-loggable identifiers (spec §3) — what actually
// needs redacting here is raw key material and ciphertext.
package logging

import (
	"context"
	"log/slog"
	"strings"
)

const redactedValue = "[REDACTED]"

var sensitiveKeySuffixes = []string{"_sk", "_priv", "_private"}
var sensitiveKeyNames = map[string]struct{}{
	"signature":  {},
	"ciphertext": {},
	"sign_sk":    {},
	"enc_sk":     {},
}

// SanitizingHandler redacts key-material and ciphertext attrs before they
// reach the wrapped handler.
type SanitizingHandler struct {
	next slog.Handler
}

// WrapHandler wraps next in a SanitizingHandler, or returns nil if next is
// nil.
func WrapHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return nil
	}
	return &SanitizingHandler{next: next}
}

func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *SanitizingHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(SanitizeAttr(attr))
		return true
	})
	return h.next.Handle(ctx, out)
}

func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SanitizingHandler{next: h.next.WithAttrs(sanitizeAttrs(attrs))}
}

func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{next: h.next.WithGroup(name)}
}

// SanitizeAttr redacts attr's value if its key names key material or
// ciphertext; otherwise it is returned unchanged.
func SanitizeAttr(attr slog.Attr) slog.Attr {
	if isSensitiveKey(attr.Key) {
		return slog.String(attr.Key, redactedValue)
	}
	if attr.Value.Kind() == slog.KindGroup {
		return slog.Any(attr.Key, sanitizeGroupValue(attr.Value.Group()))
	}
	return attr
}

func sanitizeAttrs(attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		out = append(out, SanitizeAttr(attr))
	}
	return out
}

func sanitizeGroupValue(attrs []slog.Attr) []any {
	out := make([]any, 0, len(attrs))
	for _, attr := range sanitizeAttrs(attrs) {
		out = append(out, attr)
	}
	return out
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	if _, ok := sensitiveKeyNames[lower]; ok {
		return true
	}
	for _, suffix := range sensitiveKeySuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}
