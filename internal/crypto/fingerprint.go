package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"dapp/internal/domain"
)

const (
	fingerprintGroups    = 5
	fingerprintGroupSize = 4
)

// Fingerprint renders the wallet public key as five space separated groups
// of four hex digits, e.g. "3f2a 91c0 5be4 07d1 aa6e", for comparing keys
// by eye in `dapp account show`.
func Fingerprint(pub domain.Ed25519Public) domain.Fingerprint {
	sum := sha256.Sum256(pub[:])
	digits := hex.EncodeToString(sum[:fingerprintGroups*fingerprintGroupSize/2])

	var b strings.Builder
	for i := 0; i < len(digits); i += fingerprintGroupSize {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(digits[i : i+fingerprintGroupSize])
	}
	return domain.Fingerprint(b.String())
}
