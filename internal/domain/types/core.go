package types

import "strings"

// Address is a hex-encoded account address ("0x" + 40 hex chars).
type Address string

// String returns the string form of the address.
func (a Address) String() string { return string(a) }

// IsZero reports whether the address is empty.
func (a Address) IsZero() bool { return a == "" }

// Equal compares two addresses ignoring checksum casing.
func (a Address) Equal(b Address) bool {
	return a != "" && strings.EqualFold(string(a), string(b))
}

// EntityID identifies a DAC, campaign, milestone or donation on the remote service.
type EntityID string

// String returns the string form of the identifier.
func (id EntityID) String() string { return string(id) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }
