package interfaces

import (
	"context"
	"io"

	domaintypes "dapp/internal/domain/types"
)

// KeyStore persists the wallet key encrypted under a passphrase.
type KeyStore interface {
	SaveKey(passphrase string, key domaintypes.WalletKey) error
	LoadKey(passphrase string) (domaintypes.WalletKey, error)
	HasKey() (bool, error)
}

// PreferenceStore is a small persistent key-value store for preferences and
// cached session data. Values are JSON encoded.
type PreferenceStore interface {
	Get(key string, out any) (bool, error)
	Set(key string, value any) error
	Delete(key string) error
}

// ImageStore persists uploaded images and returns a public URL for them.
type ImageStore interface {
	SaveImage(ctx context.Context, name, contentType string, r io.Reader) (string, error)
	// Hosts reports whether url names an image this store serves.
	Hosts(url string) bool
}
