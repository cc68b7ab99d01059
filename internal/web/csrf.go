package web

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"

	"dapp/internal/toast"
	"dapp/internal/upload"
)

const (
	// csrfField is the form field carrying the token.
	csrfField = "csrf_token"
	// csrfHeader carries the token on script requests such as uploads.
	csrfHeader = "X-CSRF-Token"

	maxRequestBody = upload.DefaultMaxSize + 1<<20
)

var (
	errCrossSite   = errors.New("cross-site request")
	errMissingCSRF = errors.New("missing csrf token")
	errBadCSRF     = errors.New("csrf token does not match client")
)

func newCSRFKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// csrfToken derives the token pages embed for clientID. Tokens are bound to
// the client cookie and to the process key, so they do not survive a
// restart.
func (s *Site) csrfToken(clientID string) string {
	if clientID == "" {
		return ""
	}
	m := hmac.New(sha256.New, s.csrfKey)
	m.Write([]byte(clientID))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}

// verifyCSRF refuses state-changing requests that the browser marks as
// cross-site or that lack the token derived from the client cookie they
// were sent with. Every write is signed with the wallet key, so a forged
// form post would act as the wallet owner.
func (s *Site) verifyCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		if err := s.checkCSRF(r); err != nil {
			s.logger.Warn("request refused",
				"method", r.Method,
				"path", r.URL.Path,
				"origin", r.Header.Get("Origin"),
				"err", err,
			)
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Site) checkCSRF(r *http.Request) error {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "", "same-origin", "none":
	default:
		return errCrossSite
	}
	if origin := r.Header.Get("Origin"); origin != "" {
		u, err := url.Parse(origin)
		if err != nil || u.Host != r.Host {
			return errCrossSite
		}
	}

	id := toast.ClientID(r)
	if id == "" {
		return errMissingCSRF
	}
	token := r.Header.Get(csrfHeader)
	if token == "" {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return err
		}
		token = r.PostFormValue(csrfField)
	}
	if token == "" {
		return errMissingCSRF
	}
	if !hmac.Equal([]byte(token), []byte(s.csrfToken(id))) {
		return errBadCSRF
	}
	return nil
}
