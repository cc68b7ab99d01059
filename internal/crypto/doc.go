// Package crypto holds the wallet primitives: Ed25519 keys and signatures,
// account addresses with a mixed-case checksum, display fingerprints and
// zeroing of secrets once they have been used.
//
// Keys are the fixed-size arrays from internal/domain. Call Wipe or WipeKey
// on private material as soon as it is no longer needed.
package crypto
