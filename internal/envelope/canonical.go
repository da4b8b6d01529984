// Package envelope implements C2: the canonical wire encoding, the
// MessagePayload/MessageEnvelope types, envelope construction, and
// verify-and-open. Grounded on the signed-bytes construction in
// _examples/original_source/agentmaild/router.go (sign over a fixed-order
// field join) and the teacher's AAD-construction discipline in
// internal/crypto/session.go's envelopeAAD — both build a deterministic byte
// string over a fixed field order before signing/authenticating, which this
// package generalizes into a reusable canonical JSON encoder (spec §4.2
// requires a byte-deterministic encoding keyed in ASCII-sorted order, which
// neither teacher precedent happens to use JSON for, so the encoder itself
// is new code grounded in that shared "fixed field order, no ambiguity"
// discipline rather than copied from either).
package envelope

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// field is one key/value pair of a canonical object. Binary values must be
// passed already base64-encoded (§4.2: "Binary fields ... are URL-safe
// base64 without padding").
type field struct {
	key   string
	value any // string, int64, or nil
}

// canonicalObject renders fields as compact JSON with keys in ASCII-sorted
// order, UTF-8, no insignificant whitespace, integers as decimal. This is
// the single encoding used both to build the bytes that get signed and to
// serialize the payload that gets sealed.
func canonicalObject(fields []field) []byte {
	sorted := make([]field, len(fields))
	copy(sorted, fields)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].key < sorted[j].key })

	var b strings.Builder
	b.WriteByte('{')
	for i, f := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(quoteJSONString(f.key))
		b.WriteByte(':')
		switch v := f.value.(type) {
		case string:
			b.WriteString(quoteJSONString(v))
		case int64:
			b.WriteString(strconv.FormatInt(v, 10))
		case nil:
			b.WriteString("null")
		default:
			panic(fmt.Sprintf("envelope: unsupported canonical field type %T", v))
		}
	}
	b.WriteByte('}')
	return []byte(b.String())
}

// quoteJSONString renders s as a JSON string literal: double-quoted,
// backslash/quote/control characters escaped, everything else (including
// non-ASCII UTF-8) passed through unescaped.
func quoteJSONString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
