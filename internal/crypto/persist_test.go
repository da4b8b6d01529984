package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"agentmail-go/internal/testutil/fsperm"
)

func TestLoadOrCreateIdentityPersists(t *testing.T) {
	dir := t.TempDir()

	first, err := LoadOrCreateIdentity(dir)
	if err != nil {
		t.Fatalf("LoadOrCreateIdentity (create): %v", err)
	}

	info, err := os.Stat(identityPath(dir))
	if err != nil {
		t.Fatalf("identity file missing: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("identity file mode = %v, want 0600", info.Mode().Perm())
	}
	fsperm.AssertPrivateDirPerm(t, KeysDir(dir))

	second, err := LoadOrCreateIdentity(dir)
	if err != nil {
		t.Fatalf("LoadOrCreateIdentity (reload): %v", err)
	}
	if Fingerprint(first.SignPub) != Fingerprint(second.SignPub) {
		t.Fatalf("reloaded identity has a different fingerprint")
	}
	if string(first.SignSK) != string(second.SignSK) {
		t.Fatalf("reloaded identity has a different signing key")
	}
	if *first.EncPub != *second.EncPub {
		t.Fatalf("reloaded identity has a different encryption public key")
	}
}

func TestLoadOrCreateIdentityMkdir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	if _, err := LoadOrCreateIdentity(dir); err != nil {
		t.Fatalf("LoadOrCreateIdentity should create nested dirs: %v", err)
	}
}
