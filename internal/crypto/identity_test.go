package crypto

import (
	"regexp"
	"testing"
)

var fingerprintRe = regexp.MustCompile(`^[A-Za-z0-9\-_]{16}$`)

func TestFingerprintStable(t *testing.T) {
	id, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	fp1 := Fingerprint(id.SignPub)
	fp2 := Fingerprint(id.SignPub)
	if fp1 != fp2 {
		t.Fatalf("fingerprint not deterministic: %q vs %q", fp1, fp2)
	}
	if !fingerprintRe.MatchString(fp1) {
		t.Fatalf("fingerprint %q does not match URL-safe 16-char pattern", fp1)
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	id, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	msg := []byte("hello agentmail")
	sig, err := Sign(id.SignSK, msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !Verify(id.SignPub, msg, sig) {
		t.Fatalf("Verify rejected a valid signature")
	}
	if Verify(id.SignPub, []byte("tampered"), sig) {
		t.Fatalf("Verify accepted a signature over the wrong message")
	}
}

func TestVerifyWrongSigner(t *testing.T) {
	a, _ := GenerateIdentity()
	b, _ := GenerateIdentity()
	msg := []byte("payload")
	sig, _ := Sign(a.SignSK, msg)
	if Verify(b.SignPub, msg, sig) {
		t.Fatalf("Verify accepted a signature from a different signer")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	recipient, err := GenerateIdentity()
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	plaintext := []byte("anonymous sealed payload")
	ciphertext, err := Seal(recipient.EncPub, plaintext)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	opened, err := Open(recipient.EncPub, recipient.EncSK, ciphertext)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(opened) != string(plaintext) {
		t.Fatalf("round trip mismatch: got %q want %q", opened, plaintext)
	}
}

func TestOpenTamperedCiphertextFails(t *testing.T) {
	recipient, _ := GenerateIdentity()
	ciphertext, _ := Seal(recipient.EncPub, []byte("msg"))
	ciphertext[len(ciphertext)-1] ^= 0xFF
	if _, err := Open(recipient.EncPub, recipient.EncSK, ciphertext); err == nil {
		t.Fatalf("Open succeeded on tampered ciphertext")
	}
}

func TestOpenWrongKeyFails(t *testing.T) {
	recipient, _ := GenerateIdentity()
	other, _ := GenerateIdentity()
	ciphertext, _ := Seal(recipient.EncPub, []byte("msg"))
	if _, err := Open(other.EncPub, other.EncSK, ciphertext); err == nil {
		t.Fatalf("Open succeeded with the wrong recipient key")
	}
}
