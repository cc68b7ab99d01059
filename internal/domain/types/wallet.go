package types

// Ed25519Public is the public half of the wallet signing key. The account
// address is derived from it.
type Ed25519Public [32]byte

// Slice returns the key bytes.
func (p Ed25519Public) Slice() []byte { return p[:] }

// Ed25519Private is the private half of the wallet signing key.
type Ed25519Private [64]byte

// WalletKey is what the keystore holds.
type WalletKey struct {
	Pub  Ed25519Public  `json:"pub"`
	Priv Ed25519Private `json:"priv"`
}

// Wallet is the resolved result of the wallet stage.
//
// Account is empty when no keystore is present; the app then runs read-only.
type Wallet struct {
	Account          Address `json:"account"`
	Balance          string  `json:"balance"`
	NetworkID        int64   `json:"networkId"`
	IsCorrectNetwork bool    `json:"isCorrectNetwork"`
}

// Connected reports whether an account is unlocked.
func (w Wallet) Connected() bool { return !w.Account.IsZero() }
