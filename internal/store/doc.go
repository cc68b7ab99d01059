// Package store keeps the dapp's local state under its home directory.
//
// KeyFileStore holds the wallet key, sealed with a passphrase-derived key.
// PreferenceFileStore is a small JSON map shared by every dapp process on the
// same home; writers take an advisory file lock. Both replace their files
// atomically.
//
// The dev DAC service keeps its entities in SQLite; see store/sqlite.
package store
