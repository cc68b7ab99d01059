package store

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"dapp/internal/crypto"
	"dapp/internal/domain"
)

const keyFilename = "wallet.json.enc"

// KeyFileStore persists the wallet key to disk, encrypted under a passphrase.
type KeyFileStore struct {
	dir    string
	params scryptParams
	mu     sync.Mutex
}

// NewKeyFileStore returns a KeyFileStore rooted at dir.
func NewKeyFileStore(dir string) *KeyFileStore {
	return &KeyFileStore{dir: dir, params: defaultScryptParams()}
}

// SaveKey writes the encrypted key to disk, replacing any previous key.
func (s *KeyFileStore) SaveKey(passphrase string, key domain.WalletKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(key)
	if err != nil {
		return err
	}
	defer crypto.Wipe(raw)

	ct, err := seal(passphrase, raw, s.params)
	if err != nil {
		return err
	}
	return replaceFile(filepath.Join(s.dir, keyFilename), 0o600, func(w io.Writer) error {
		_, err := w.Write(ct)
		return err
	})
}

// LoadKey reads and decrypts the key.
func (s *KeyFileStore) LoadKey(passphrase string) (domain.WalletKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(filepath.Join(s.dir, keyFilename))
	if err != nil {
		return domain.WalletKey{}, err
	}
	pt, err := unseal(passphrase, b)
	if err != nil {
		return domain.WalletKey{}, err
	}
	defer crypto.Wipe(pt)

	var key domain.WalletKey
	if err := json.Unmarshal(pt, &key); err != nil {
		return domain.WalletKey{}, err
	}
	return key, nil
}

// HasKey reports whether a keystore file exists.
func (s *KeyFileStore) HasKey() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return exists(filepath.Join(s.dir, keyFilename))
}

// Compile-time assertion that KeyFileStore implements domain.KeyStore.
var _ domain.KeyStore = (*KeyFileStore)(nil)
