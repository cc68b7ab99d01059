package crypto

import (
	"runtime"

	"dapp/internal/domain"
)

// Wipe zeroes b in place. Best effort: copies the runtime made earlier are
// out of reach.
func Wipe(b []byte) {
	clear(b)
	runtime.KeepAlive(b)
}

// WipeKey zeroes the private half of a wallet key once it is no longer
// needed. The public half is left intact for logging.
func WipeKey(k *domain.WalletKey) {
	if k == nil {
		return
	}
	Wipe(k.Priv[:])
}
