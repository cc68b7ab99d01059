package wallet

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dapp/internal/crypto"
	"dapp/internal/domain"
	"dapp/internal/store"
)

const goodPass = "Correct-Horse-9-Battery"

type fakeChain struct {
	networkID int64
	balances  map[domain.Address]string
	err       error
}

func (f fakeChain) FetchNetworkID(context.Context) (int64, error) { return f.networkID, f.err }

func (f fakeChain) FetchBalance(_ context.Context, a domain.Address) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.balances[a], nil
}

func TestGenerateKeyRejectsWeakPassphrase(t *testing.T) {
	svc := New(store.NewKeyFileStore(t.TempDir()), fakeChain{})
	for _, p := range []string{"short", "alllowercase-but-long-1", "NoSymbolsButLong123"} {
		if _, _, err := svc.GenerateKey(p); !errors.Is(err, ErrWeakPassphrase) {
			t.Errorf("GenerateKey(%q) = %v", p, err)
		}
	}
}

func TestGenerateKeyThenAccount(t *testing.T) {
	svc := New(store.NewKeyFileStore(t.TempDir()), fakeChain{})
	addr, fp, err := svc.GenerateKey(goodPass)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := crypto.ParseAddress(addr.String()); err != nil {
		t.Fatalf("generated address %q is malformed", addr)
	}
	if len(fp) != 24 || strings.Count(fp.String(), " ") != 4 {
		t.Fatalf("fingerprint %q", fp)
	}

	got, err := svc.Account(goodPass)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if got != addr {
		t.Fatalf("account = %s, want %s", got, addr)
	}
	if _, err := svc.Account("Wrong-Passphrase-1"); !errors.Is(err, store.ErrWrongPassphrase) {
		t.Fatalf("wrong passphrase err = %v", err)
	}
	if _, _, err := svc.GenerateKey(goodPass); !errors.Is(err, ErrKeyExists) {
		t.Fatalf("second generate = %v", err)
	}
}

func TestConnectWithoutKeyIsReadOnly(t *testing.T) {
	svc := New(store.NewKeyFileStore(t.TempDir()), fakeChain{err: errors.New("unused")})
	w, err := svc.Connect(context.Background(), domain.Whitelist{})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if w.Connected() {
		t.Fatalf("wallet without key reports an account: %+v", w)
	}
	if _, err := svc.Account(goodPass); !errors.Is(err, ErrNoKey) {
		t.Fatalf("account without key = %v", err)
	}
}

func TestConnectUnlocksAndQueriesChain(t *testing.T) {
	dir := t.TempDir()
	addr, _, err := New(store.NewKeyFileStore(dir), fakeChain{}).GenerateKey(goodPass)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var unlocked domain.WalletKey
	chain := fakeChain{networkID: 66, balances: map[domain.Address]string{addr: "1000"}}
	svc := New(store.NewKeyFileStore(dir), chain,
		WithPassphrase(goodPass),
		WithNetworkID(66),
		WithUnlockHook(func(k domain.WalletKey) { unlocked = k }),
	)
	w, err := svc.Connect(context.Background(), domain.Whitelist{})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if w.Account != addr || w.Balance != "1000" || w.NetworkID != 66 || !w.IsCorrectNetwork {
		t.Fatalf("wallet = %+v", w)
	}
	if crypto.AddressFromPublicKey(unlocked.Pub) != addr {
		t.Fatalf("unlock hook did not receive the wallet key")
	}

	wrongNet := New(store.NewKeyFileStore(dir), chain, WithPassphrase(goodPass), WithNetworkID(1))
	w, err = wrongNet.Connect(context.Background(), domain.Whitelist{})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if w.IsCorrectNetwork {
		t.Fatalf("network 66 accepted when 1 is expected")
	}
}

func TestConnectFailsOnChainError(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := New(store.NewKeyFileStore(dir), fakeChain{}).GenerateKey(goodPass); err != nil {
		t.Fatalf("generate: %v", err)
	}
	boom := errors.New("node down")
	svc := New(store.NewKeyFileStore(dir), fakeChain{err: boom}, WithPassphrase(goodPass))
	if _, err := svc.Connect(context.Background(), domain.Whitelist{}); !errors.Is(err, boom) {
		t.Fatalf("connect err = %v", err)
	}
}
