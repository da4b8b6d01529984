package envelope

import "testing"

func TestCanonicalObjectIsKeySortedAndDeterministic(t *testing.T) {
	a := canonicalObject([]field{
		{"b", "2"},
		{"a", "1"},
		{"c", int64(3)},
	})
	b := canonicalObject([]field{
		{"c", int64(3)},
		{"a", "1"},
		{"b", "2"},
	})
	if string(a) != string(b) {
		t.Fatalf("canonical encoding depends on input order: %q vs %q", a, b)
	}
	want := `{"a":"1","b":"2","c":3}`
	if string(a) != want {
		t.Fatalf("got %q want %q", a, want)
	}
}

func TestPayloadCanonicalDeterministic(t *testing.T) {
	p := MessagePayload{
		FromAddr:  "alice@alice.local",
		ToAddr:    "bob@bob.local",
		Subject:   "hi",
		Body:      "ping",
		Kind:      KindMessage,
		CreatedAt: 1000,
		Nonce:     "abc123",
	}
	c1 := p.Canonical()
	c2 := p.Canonical()
	if string(c1) != string(c2) {
		t.Fatalf("payload canonical encoding not deterministic")
	}
}
