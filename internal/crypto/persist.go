package crypto

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// identityFile is the on-disk shape of {data_dir}/keys/identity.json (§6):
// all four keys as URL-safe base64 strings, file mode 0600.
type identityFile struct {
	SignSK string `json:"sign_sk"`
	SignPK string `json:"sign_pk"`
	EncSK  string `json:"enc_sk"`
	EncPK  string `json:"enc_pk"`
}

// KeysDir returns the keys subdirectory of a node's data directory.
func KeysDir(dataDir string) string {
	return filepath.Join(dataDir, "keys")
}

func identityPath(dataDir string) string {
	return filepath.Join(KeysDir(dataDir), "identity.json")
}

// LoadOrCreateIdentity reads the persisted identity at dataDir, or generates
// and persists a fresh one if none exists yet, mirroring
// _examples/original_source/agentmaild/crypto.py's Identity.load_or_create.
func LoadOrCreateIdentity(dataDir string) (*Identity, error) {
	path := identityPath(dataDir)
	if _, err := os.Stat(path); err == nil {
		return loadIdentity(path)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	id, err := GenerateIdentity()
	if err != nil {
		return nil, err
	}
	if err := saveIdentity(dataDir, id); err != nil {
		return nil, err
	}
	return id, nil
}

func loadIdentity(path string) (*Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f identityFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}

	signSK, err := B64Decode(f.SignSK)
	if err != nil {
		return nil, err
	}
	signPK, err := B64Decode(f.SignPK)
	if err != nil {
		return nil, err
	}
	encSKBytes, err := B64Decode(f.EncSK)
	if err != nil {
		return nil, err
	}
	encPKBytes, err := B64Decode(f.EncPK)
	if err != nil {
		return nil, err
	}
	encSK, err := ParseEncPub(encSKBytes)
	if err != nil {
		return nil, err
	}
	encPK, err := ParseEncPub(encPKBytes)
	if err != nil {
		return nil, err
	}
	signPub, err := ParseSignPub(signPK)
	if err != nil {
		return nil, err
	}

	return &Identity{
		SignPub: signPub,
		SignSK:  signSK,
		EncPub:  encPK,
		EncSK:   encSK,
	}, nil
}

func saveIdentity(dataDir string, id *Identity) error {
	if err := os.MkdirAll(KeysDir(dataDir), 0o700); err != nil {
		return err
	}
	f := identityFile{
		SignSK: B64Encode(id.SignSK),
		SignPK: B64Encode(id.SignPub),
		EncSK:  B64Encode(id.EncSK[:]),
		EncPK:  B64Encode(id.EncPub[:]),
	}
	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	path := identityPath(dataDir)
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}
