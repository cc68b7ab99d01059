package store

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"

	"dapp/internal/crypto"
)

const (
	envelopeVersion = 1
	envelopeAD      = "dapp-keystore-v1"
	saltSize        = 16
)

// ErrWrongPassphrase is returned when the passphrase is incorrect or the
// keystore has been tampered with.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted keystore")

// envelope is the on-disk form of the wallet key. The scrypt cost is stored
// alongside the ciphertext so it can be raised without breaking old files.
type envelope struct {
	Version int          `json:"version"`
	KDF     scryptParams `json:"kdf"`
	Salt    []byte       `json:"salt"`
	Nonce   []byte       `json:"nonce"`
	Sealed  []byte       `json:"sealed"`
}

type scryptParams struct {
	N int `json:"n"`
	R int `json:"r"`
	P int `json:"p"`
}

func defaultScryptParams() scryptParams { return scryptParams{N: 1 << 15, R: 8, P: 1} }

// aead derives the XChaCha20-Poly1305 cipher for passphrase and salt.
func (p scryptParams) aead(passphrase string, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, p.N, p.R, p.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	defer crypto.Wipe(key)
	return chacha20poly1305.NewX(key)
}

func seal(passphrase string, plaintext []byte, p scryptParams) ([]byte, error) {
	env := envelope{Version: envelopeVersion, KDF: p, Salt: make([]byte, saltSize)}
	if _, err := rand.Read(env.Salt); err != nil {
		return nil, err
	}
	a, err := p.aead(passphrase, env.Salt)
	if err != nil {
		return nil, err
	}
	env.Nonce = make([]byte, a.NonceSize())
	if _, err := rand.Read(env.Nonce); err != nil {
		return nil, err
	}
	env.Sealed = a.Seal(nil, env.Nonce, plaintext, []byte(envelopeAD))
	return json.Marshal(env)
}

func unseal(passphrase string, data []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode keystore: %w", err)
	}
	if env.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", env.Version)
	}
	a, err := env.KDF.aead(passphrase, env.Salt)
	if err != nil {
		return nil, err
	}
	if len(env.Nonce) != a.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	plaintext, err := a.Open(nil, env.Nonce, env.Sealed, []byte(envelopeAD))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return plaintext, nil
}
