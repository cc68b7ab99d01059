package interfaces

import (
	"context"

	domaintypes "dapp/internal/domain/types"
)

// WhitelistService resolves the whitelist stage.
type WhitelistService interface {
	LoadWhitelist(ctx context.Context) (domaintypes.Whitelist, error)
}

// WalletService creates wallet keys and resolves the wallet stage.
type WalletService interface {
	GenerateKey(passphrase string) (domaintypes.Address, domaintypes.Fingerprint, error)
	Account(passphrase string) (domaintypes.Address, error)
	Connect(ctx context.Context, wl domaintypes.Whitelist) (domaintypes.Wallet, error)
}

// SessionService resolves the session stage for a connected wallet.
type SessionService interface {
	LoadSession(ctx context.Context, w domaintypes.Wallet) (domaintypes.Session, error)
}

// Notifier delivers toasts to a browser client identified by clientID.
type Notifier interface {
	Notify(clientID string, t domaintypes.Toast)
}

// Tracker records analytics events.
type Tracker interface {
	TrackEvent(category, action, label string)
}
