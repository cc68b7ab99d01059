package crypto_test

import (
	"errors"
	"strings"
	"testing"

	"dapp/internal/crypto"
	"dapp/internal/domain"
)

func TestParseAddress_Checksum(t *testing.T) {
	vectors := []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	}
	for _, want := range vectors {
		lower := "0x" + toLower(want[2:])
		got, err := crypto.ParseAddress(lower)
		if err != nil {
			t.Fatalf("ParseAddress(%q): %v", lower, err)
		}
		if string(got) != want {
			t.Fatalf("ParseAddress(%q) = %q, want %q", lower, got, want)
		}
	}
}

func TestParseAddress_Invalid(t *testing.T) {
	for _, in := range []string{"", "5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", "0x1234", "0xzzaeb6053f3e94c9b9a09f33669435e7ef1beaed"} {
		if _, err := crypto.ParseAddress(in); !errors.Is(err, crypto.ErrInvalidAddress) {
			t.Fatalf("ParseAddress(%q): want ErrInvalidAddress, got %v", in, err)
		}
	}
}

func TestAddressFromPublicKey_StableAndValid(t *testing.T) {
	key, err := crypto.NewWalletKey()
	if err != nil {
		t.Fatalf("NewWalletKey: %v", err)
	}
	pub := key.Pub
	a := crypto.AddressFromPublicKey(pub)
	b := crypto.AddressFromPublicKey(pub)
	if a != b {
		t.Fatalf("address not deterministic: %s vs %s", a, b)
	}
	round, err := crypto.ParseAddress(string(a))
	if err != nil {
		t.Fatalf("derived address does not parse: %v", err)
	}
	if round != a {
		t.Fatalf("checksum mismatch: %s vs %s", round, a)
	}
}

func TestSignVerify(t *testing.T) {
	key, err := crypto.NewWalletKey()
	if err != nil {
		t.Fatalf("NewWalletKey: %v", err)
	}
	sig := crypto.SignEd25519(key.Priv, []byte("hello"))
	if !crypto.VerifyEd25519(key.Pub, []byte("hello"), sig) {
		t.Fatal("signature did not verify")
	}
	if crypto.VerifyEd25519(key.Pub, []byte("tampered"), sig) {
		t.Fatal("signature verified over wrong message")
	}
	if crypto.VerifyEd25519(key.Pub, []byte("hello"), sig[:10]) {
		t.Fatal("truncated signature verified")
	}
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func TestWipeKey(t *testing.T) {
	key, err := crypto.NewWalletKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	pub := key.Pub
	crypto.WipeKey(&key)
	if key.Priv != (domain.Ed25519Private{}) {
		t.Fatal("private key not zeroed")
	}
	if key.Pub != pub {
		t.Fatal("public key changed")
	}
	crypto.WipeKey(nil)
}

func TestFingerprint_Grouped(t *testing.T) {
	fp := crypto.Fingerprint(domain.Ed25519Public{7}).String()
	groups := strings.Split(fp, " ")
	if len(groups) != 5 {
		t.Fatalf("fingerprint %q: %d groups", fp, len(groups))
	}
	for _, g := range groups {
		if len(g) != 4 {
			t.Fatalf("fingerprint %q: group %q", fp, g)
		}
	}
	if crypto.Fingerprint(domain.Ed25519Public{8}).String() == fp {
		t.Fatal("distinct keys share a fingerprint")
	}
}
