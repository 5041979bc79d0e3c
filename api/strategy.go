package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/trusthive/trusthive/auth"
)

// Identity is the tenant identity established by a credential.
type Identity struct {
	ShopID    string
	Mechanism string
}

// Credential mechanisms, in verification precedence order.
const (
	mechOpaqueToken = "opaque_token"
	mechHMACTriple  = "hmac_triple"
	mechSSOCookie   = "sso_cookie"
	mechJWTCookie   = "jwt_cookie"
)

// identityFromRequest runs the ordered credential strategies: opaque
// token, then HMAC triple, then the tenant-keyed cookie, then the
// global-keyed JWT. The first strategy whose credential is present
// decides the outcome; later strategies are tried only when a
// credential is absent, never to paper over a failed one.
//
// The opaque-token check here never consumes: a protected action must
// be repeatable within the token's lifetime, so only the session
// establishers burn one-time tokens.
func (a *API) identityFromRequest(r *http.Request) (Identity, error) {
	params := r.URL.Query()

	for _, strategy := range []func(*http.Request, url.Values) (Identity, error){
		a.opaqueTokenIdentity,
		a.hmacTripleIdentity,
		a.ssoCookieIdentity,
		a.jwtCookieIdentity,
	} {
		id, err := strategy(r, params)
		if errors.Is(err, auth.ErrMissingCredential) {
			continue
		}
		recordAuthAttempt(id.Mechanism, err == nil)
		if err != nil {
			return Identity{}, err
		}
		return id, nil
	}
	return Identity{}, auth.ErrMissingCredential
}

func (a *API) opaqueTokenIdentity(r *http.Request, params url.Values) (Identity, error) {
	token := params.Get("token")
	// With shop and ts alongside it, "token" is an HMAC signature,
	// not an opaque token; let the triple strategy handle it.
	if token == "" || (params.Get("shop") != "" && params.Get("ts") != "") {
		return Identity{Mechanism: mechOpaqueToken}, auth.ErrMissingCredential
	}
	shopID, err := a.tokens.Verify(r.Context(), token, false)
	if err != nil {
		return Identity{Mechanism: mechOpaqueToken}, err
	}
	return Identity{ShopID: shopID, Mechanism: mechOpaqueToken}, nil
}

func (a *API) hmacTripleIdentity(r *http.Request, params url.Values) (Identity, error) {
	shop, ts, sig := params.Get("shop"), params.Get("ts"), params.Get("token")
	if shop == "" || ts == "" || sig == "" {
		return Identity{Mechanism: mechHMACTriple}, auth.ErrMissingCredential
	}
	shopID, err := a.hmac.Verify(r.Context(), shop, ts, sig)
	if err != nil {
		return Identity{Mechanism: mechHMACTriple}, err
	}
	return Identity{ShopID: shopID, Mechanism: mechHMACTriple}, nil
}

func (a *API) ssoCookieIdentity(r *http.Request, _ url.Values) (Identity, error) {
	cookie, err := r.Cookie(auth.SSOCookieName)
	if err != nil || cookie.Value == "" {
		return Identity{Mechanism: mechSSOCookie}, auth.ErrMissingCredential
	}
	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return Identity{Mechanism: mechSSOCookie}, auth.ErrInvalidCredential
	}
	shopID, err := a.sso.Read(r.Context(), value)
	if err != nil {
		return Identity{Mechanism: mechSSOCookie}, err
	}
	return Identity{ShopID: shopID, Mechanism: mechSSOCookie}, nil
}

func (a *API) jwtCookieIdentity(r *http.Request, _ url.Values) (Identity, error) {
	cookie, err := r.Cookie(auth.JWTCookieName)
	if err != nil || cookie.Value == "" {
		return Identity{Mechanism: mechJWTCookie}, auth.ErrMissingCredential
	}
	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return Identity{Mechanism: mechJWTCookie}, auth.ErrInvalidCredential
	}
	claims, err := a.jwt.Read(value)
	if err != nil {
		return Identity{Mechanism: mechJWTCookie}, err
	}
	return Identity{ShopID: claims.TenantID(), Mechanism: mechJWTCookie}, nil
}
