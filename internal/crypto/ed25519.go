package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"dapp/internal/domain"
)

// NewWalletKey creates a wallet key pair. The account address is derived
// from its public half with AddressFromPublicKey.
func NewWalletKey() (domain.WalletKey, error) {
	pk, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return domain.WalletKey{}, err
	}
	defer Wipe(sk)

	var key domain.WalletKey
	copy(key.Priv[:], sk)
	copy(key.Pub[:], pk)
	return key, nil
}

// SignEd25519 signs a DAC service request payload with the wallet key.
func SignEd25519(priv domain.Ed25519Private, msg []byte) []byte {
	return ed25519.Sign(ed25519.PrivateKey(priv[:]), msg)
}

// VerifyEd25519 reports whether sig is pub's signature over msg. Signatures
// of the wrong size are refused outright.
func VerifyEd25519(pub domain.Ed25519Public, msg, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig)
}
