package crypto

import (
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/sha3"

	"dapp/internal/domain"
)

// ErrInvalidAddress is returned by ParseAddress for malformed input.
var ErrInvalidAddress = errors.New("invalid address")

const addressHexLen = 40

// AddressFromPublicKey derives the account address for pub: the last 20
// bytes of its Keccak-256 digest, checksummed.
func AddressFromPublicKey(pub domain.Ed25519Public) domain.Address {
	sum := keccak256(pub[:])
	return checksum(hex.EncodeToString(sum[12:]))
}

// ParseAddress validates s ("0x" followed by 40 hex characters, any case)
// and returns its checksummed form.
func ParseAddress(s string) (domain.Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return "", ErrInvalidAddress
	}
	body := s[2:]
	if len(body) != addressHexLen {
		return "", ErrInvalidAddress
	}
	if _, err := hex.DecodeString(body); err != nil {
		return "", ErrInvalidAddress
	}
	return checksum(strings.ToLower(body)), nil
}

// checksum upper-cases each hex letter whose matching nibble of the
// Keccak-256 digest of the lowercase address is >= 8.
func checksum(lowerHex string) domain.Address {
	digest := hex.EncodeToString(keccak256([]byte(lowerHex)))
	out := make([]byte, 0, 2+addressHexLen)
	out = append(out, '0', 'x')
	for i := 0; i < len(lowerHex); i++ {
		c := lowerHex[i]
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	return domain.Address(out)
}

func keccak256(b []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(b)
	return h.Sum(nil)
}
