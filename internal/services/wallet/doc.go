// Package wallet manages the local wallet key and resolves the second
// start-up stage.
//
// The key is an Ed25519 pair stored encrypted under a passphrase through a
// domain.KeyStore. The account address is derived from the public key.
// Connect unlocks the key and asks the chain backend for the network id and
// the account balance. Without a keystore the wallet resolves read-only,
// with no account.
package wallet
