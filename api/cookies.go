package api

import (
	"net/http"
	"net/url"
	"time"
)

// writeSessionCookie sets a session cookie with the attribute set both
// codecs share: HttpOnly, Path=/, SameSite=Lax, Max-Age matching the
// credential's own expiry, and Secure outside development. The value
// is url-encoded so the base64 payload survives every cookie parser
// the WordPress side has.
func (a *API) writeSessionCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     "/",
		HttpOnly: true,
		Secure:   a.production,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl / time.Second),
	})
}
