package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode"

	"dapp/internal/crypto"
	"dapp/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)

	// ErrKeyExists is returned by GenerateKey when a keystore is already present.
	ErrKeyExists = errors.New("wallet key already exists")

	// ErrNoKey is returned by Account when no keystore is present.
	ErrNoKey = errors.New("no wallet key")
)

// Option configures a Service.
type Option func(*Service)

// WithPassphrase sets the passphrase Connect unlocks the keystore with.
func WithPassphrase(p string) Option {
	return func(s *Service) { s.passphrase = p }
}

// WithNetworkID sets the network the dapp expects. Zero accepts any.
func WithNetworkID(id int64) Option {
	return func(s *Service) { s.networkID = id }
}

// WithUnlockHook registers fn to receive the key each time Connect unlocks
// it, e.g. to sign requests to the DAC service.
func WithUnlockHook(fn func(domain.WalletKey)) Option {
	return func(s *Service) { s.onUnlock = fn }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l.With("component", "wallet")
		}
	}
}

// Service manages the wallet key and connects it to the chain backend.
type Service struct {
	store      domain.KeyStore
	chain      domain.ChainBackend
	passphrase string
	networkID  int64
	onUnlock   func(domain.WalletKey)
	logger     *slog.Logger
}

// New returns a wallet service over store and chain.
func New(store domain.KeyStore, chain domain.ChainBackend, opts ...Option) *Service {
	s := &Service{
		store:  store,
		chain:  chain,
		logger: slog.Default().With("component", "wallet"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GenerateKey creates a new wallet key, saves it encrypted with the
// passphrase, and returns the account address and the key fingerprint.
func (s *Service) GenerateKey(passphrase string) (domain.Address, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return "", "", ErrWeakPassphrase
	}
	has, err := s.store.HasKey()
	if err != nil {
		return "", "", err
	}
	if has {
		return "", "", ErrKeyExists
	}

	key, err := crypto.NewWalletKey()
	if err != nil {
		return "", "", err
	}
	defer crypto.WipeKey(&key)

	if err := s.store.SaveKey(passphrase, key); err != nil {
		return "", "", err
	}
	return crypto.AddressFromPublicKey(key.Pub), crypto.Fingerprint(key.Pub), nil
}

// Account decrypts the keystore and returns the account address.
func (s *Service) Account(passphrase string) (domain.Address, error) {
	key, err := s.unlock(passphrase)
	if err != nil {
		return "", err
	}
	defer crypto.WipeKey(&key)
	return crypto.AddressFromPublicKey(key.Pub), nil
}

// Fingerprint returns the fingerprint of the wallet public key.
func (s *Service) Fingerprint(passphrase string) (domain.Fingerprint, error) {
	key, err := s.unlock(passphrase)
	if err != nil {
		return "", err
	}
	defer crypto.WipeKey(&key)
	return crypto.Fingerprint(key.Pub), nil
}

// Connect resolves the wallet stage. The whitelist is used to report which
// roles the unlocked account holds.
func (s *Service) Connect(ctx context.Context, wl domain.Whitelist) (domain.Wallet, error) {
	has, err := s.store.HasKey()
	if err != nil {
		return domain.Wallet{}, fmt.Errorf("check keystore: %w", err)
	}
	if !has {
		s.logger.Info("no wallet key found, running read-only")
		return domain.Wallet{}, nil
	}

	key, err := s.unlock(s.passphrase)
	if err != nil {
		return domain.Wallet{}, err
	}
	account := crypto.AddressFromPublicKey(key.Pub)
	if s.onUnlock != nil {
		s.onUnlock(key)
	}

	netID, err := s.chain.FetchNetworkID(ctx)
	if err != nil {
		return domain.Wallet{}, fmt.Errorf("fetch network id: %w", err)
	}
	balance, err := s.chain.FetchBalance(ctx, account)
	if err != nil {
		return domain.Wallet{}, fmt.Errorf("fetch balance: %w", err)
	}

	w := domain.Wallet{
		Account:          account,
		Balance:          balance,
		NetworkID:        netID,
		IsCorrectNetwork: s.networkID == 0 || netID == s.networkID,
	}
	if !w.IsCorrectNetwork {
		s.logger.Warn("wallet is on the wrong network", "network_id", netID, "want", s.networkID)
	}
	s.logger.Info("wallet connected",
		"account", account.String(),
		"network_id", netID,
		"delegate", wl.IsDelegate(account),
		"reviewer", wl.IsReviewer(account),
		"project_owner", wl.IsProjectOwner(account),
	)
	return w, nil
}

func (s *Service) unlock(passphrase string) (domain.WalletKey, error) {
	has, err := s.store.HasKey()
	if err != nil {
		return domain.WalletKey{}, err
	}
	if !has {
		return domain.WalletKey{}, ErrNoKey
	}
	key, err := s.store.LoadKey(passphrase)
	if err != nil {
		return domain.WalletKey{}, fmt.Errorf("unlock wallet: %w", err)
	}
	return key, nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.WalletService.
var _ domain.WalletService = (*Service)(nil)
