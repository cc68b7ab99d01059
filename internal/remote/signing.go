package remote

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"dapp/internal/crypto"
	"dapp/internal/domain"
)

const (
	headerAddress   = "X-Dapp-Address"
	headerPublicKey = "X-Dapp-PubKey"
	headerSignature = "X-Dapp-Signature"
	headerTimestamp = "X-Dapp-Timestamp"

	// signatureWindow is how far a request timestamp may drift from the
	// server clock in either direction.
	signatureWindow = 5 * time.Minute
)

// Signer signs state-changing requests with the unlocked wallet key.
type Signer struct {
	address domain.Address
	key     domain.WalletKey
}

// NewSigner returns a Signer for key. The address is derived from the key.
func NewSigner(key domain.WalletKey) *Signer {
	return &Signer{address: crypto.AddressFromPublicKey(key.Pub), key: key}
}

// Address returns the account the signer speaks for.
func (s *Signer) Address() domain.Address { return s.address }

func (s *Signer) sign(req *http.Request, body []byte, now time.Time) {
	ts := strconv.FormatInt(now.Unix(), 10)
	sig := crypto.SignEd25519(s.key.Priv, signingPayload(req.Method, req.URL.Path, ts, body))
	req.Header.Set(headerAddress, s.address.String())
	req.Header.Set(headerTimestamp, ts)
	req.Header.Set(headerPublicKey, base64.StdEncoding.EncodeToString(s.key.Pub.Slice()))
	req.Header.Set(headerSignature, base64.StdEncoding.EncodeToString(sig))
}

func signingPayload(method, path, timestamp string, body []byte) []byte {
	sum := sha256.Sum256(body)
	return []byte(method + " " + path + "\n" + timestamp + "\n" + hex.EncodeToString(sum[:]))
}

// verifyRequest checks the signature headers of r against body and returns
// the signing address. The signed timestamp must be within signatureWindow
// of now, and each signature is accepted once.
func verifyRequest(r *http.Request, body []byte, now time.Time, seen *replayGuard) (domain.Address, error) {
	addr := domain.Address(r.Header.Get(headerAddress))
	if addr.IsZero() {
		return "", fmt.Errorf("%w: missing %s", ErrUnauthorized, headerAddress)
	}
	rawPub, err := base64.StdEncoding.DecodeString(r.Header.Get(headerPublicKey))
	if err != nil || len(rawPub) != len(domain.Ed25519Public{}) {
		return "", fmt.Errorf("%w: bad public key", ErrUnauthorized)
	}
	var pub domain.Ed25519Public
	copy(pub[:], rawPub)
	if !crypto.AddressFromPublicKey(pub).Equal(addr) {
		return "", fmt.Errorf("%w: key does not match address", ErrUnauthorized)
	}
	ts := r.Header.Get(headerTimestamp)
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: missing or bad %s", ErrUnauthorized, headerTimestamp)
	}
	signedAt := time.Unix(unix, 0)
	if d := now.Sub(signedAt); d > signatureWindow || d < -signatureWindow {
		return "", fmt.Errorf("%w: timestamp outside the accepted window", ErrUnauthorized)
	}
	sig, err := base64.StdEncoding.DecodeString(r.Header.Get(headerSignature))
	if err != nil {
		return "", fmt.Errorf("%w: bad signature encoding", ErrUnauthorized)
	}
	if !crypto.VerifyEd25519(pub, signingPayload(r.Method, r.URL.Path, ts, body), sig) {
		return "", fmt.Errorf("%w: bad signature", ErrUnauthorized)
	}
	if !seen.accept(string(sig), signedAt, now) {
		return "", fmt.Errorf("%w: replayed request", ErrUnauthorized)
	}
	return addr, nil
}

// replayGuard remembers signatures until their timestamp leaves the window.
type replayGuard struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func newReplayGuard() *replayGuard {
	return &replayGuard{seen: make(map[string]time.Time)}
}

// accept records sig and reports whether it was new.
func (g *replayGuard) accept(sig string, signedAt, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for k, at := range g.seen {
		if now.Sub(at) > signatureWindow {
			delete(g.seen, k)
		}
	}
	if _, ok := g.seen[sig]; ok {
		return false
	}
	g.seen[sig] = signedAt
	return true
}
