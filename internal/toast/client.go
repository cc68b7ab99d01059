package toast

import (
	"net/http"

	"github.com/google/uuid"
)

// CookieName is the cookie carrying the client id.
const CookieName = "dapp_client"

// ClientID returns the client id carried by r, or "" when it has none.
func ClientID(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}

// EnsureClient returns the client id of r, assigning a fresh one with a
// cookie on w when r has none.
func EnsureClient(w http.ResponseWriter, r *http.Request) string {
	if id := ClientID(r); id != "" {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
