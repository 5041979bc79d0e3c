package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/trusthive/trusthive/auth"
	"github.com/trusthive/trusthive/storage"
)

// SessionBootstrap handles POST /auth/session: exchange an explicit
// credential for a session cookie without a redirect. Accepts either
// an opaque token (consumed) or an HMAC triple.
func (a *API) SessionBootstrap(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "missing")
		return
	}

	switch {
	case req.Token != "" && req.Shop == "" && req.TS == "":
		a.bootstrapFromOpaqueToken(w, r, req.Token)
	case req.Shop != "" && req.TS != "" && req.Token != "":
		a.bootstrapFromTriple(w, r, req)
	default:
		writeError(w, http.StatusBadRequest, "missing")
	}
}

func (a *API) bootstrapFromOpaqueToken(w http.ResponseWriter, r *http.Request, token string) {
	shopID, err := a.tokens.Verify(r.Context(), token, true)
	recordAuthAttempt(mechOpaqueToken, err == nil)
	if err != nil {
		a.audit.logFailure(AuditSessionFailure, r, failureReason(err))
		writeError(w, http.StatusUnauthorized, "invalid")
		return
	}
	a.establishSession(w, r, shopID, AuditSessionBootstrap)
}

func (a *API) bootstrapFromTriple(w http.ResponseWriter, r *http.Request, req SessionRequest) {
	// The triple path is already tenant-scoped: the caller names the
	// shop, so an unknown-shop response leaks nothing it did not know.
	if _, err := a.repo.GetShop(r.Context(), req.Shop); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown shop")
			return
		}
		a.audit.logError(AuditSessionFailure, r, err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	shopID, err := a.hmac.Verify(r.Context(), req.Shop, req.TS, req.Token)
	recordAuthAttempt(mechHMACTriple, err == nil)
	if err != nil {
		a.audit.logFailure(AuditSessionFailure, r, failureReason(err), slog.String("shop_id", req.Shop))
		if errors.Is(err, auth.ErrExpiredCredential) {
			writeError(w, http.StatusUnauthorized, "stale")
			return
		}
		writeError(w, http.StatusUnauthorized, "invalid")
		return
	}
	a.establishSession(w, r, shopID, AuditSessionBootstrap)
}

func (a *API) establishSession(w http.ResponseWriter, r *http.Request, shopID string, event AuditEvent) {
	value, err := a.sso.Mint(r.Context(), shopID, auth.BootstrapSessionTTL)
	if err != nil {
		a.audit.logError(AuditSessionFailure, r, err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	a.writeSessionCookie(w, auth.SSOCookieName, value, auth.BootstrapSessionTTL)
	a.audit.logEvent(event, r, shopID)
	writeJSON(w, http.StatusOK, OKResponse{OK: true})
}

// SessionRedirect handles GET /auth/session-redirect: the browser-facing
// completion of the SSO hand-off. The one-time token is consumed here,
// and the browser is redirected to a URL that no longer carries it, so
// it cannot leak via referrer or history.
func (a *API) SessionRedirect(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	redirectTo := r.URL.Query().Get("redirect")
	if !safeRedirectTarget(redirectTo) {
		redirectTo = "/dashboard"
	}

	if token == "" {
		a.audit.logFailure(AuditSessionFailure, r, "missing credential")
		http.Redirect(w, r, "/unauthorized", http.StatusFound)
		return
	}

	shopID, err := a.tokens.Verify(r.Context(), token, true)
	recordAuthAttempt(mechOpaqueToken, err == nil)
	if err != nil {
		a.audit.logFailure(AuditSessionFailure, r, failureReason(err))
		http.Redirect(w, r, "/unauthorized", http.StatusFound)
		return
	}

	value, err := a.sso.Mint(r.Context(), shopID, auth.RedirectSessionTTL)
	if err != nil {
		a.audit.logError(AuditSessionFailure, r, err)
		http.Redirect(w, r, "/unauthorized", http.StatusFound)
		return
	}

	a.writeSessionCookie(w, auth.SSOCookieName, value, auth.RedirectSessionTTL)
	a.audit.logEvent(AuditSessionRedirect, r, shopID)
	http.Redirect(w, r, redirectTo, http.StatusFound)
}

// WPLogin handles GET /auth/wp-login: the WordPress-verified login. A
// token minted by the WordPress site is redeemed once against that
// site's verification endpoint; success yields a global-keyed session
// token and, if the origin is new, an auto-provisioned shop record.
func (a *API) WPLogin(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	site := r.URL.Query().Get("site")
	if token == "" || site == "" {
		a.loginError(w, r, "missing-params")
		return
	}

	siteURL, err := auth.ParseSiteURL(site)
	if err != nil {
		if errors.Is(err, auth.ErrInsecureSite) {
			a.loginError(w, r, "insecure-site")
			return
		}
		a.loginError(w, r, "invalid-site")
		return
	}
	origin := siteURL.Scheme + "://" + siteURL.Host

	identity, err := a.sites.Verify(r.Context(), origin, token)
	if err != nil {
		a.audit.logFailure(AuditWPLoginFailure, r, err.Error(), slog.String("site", origin))
		switch {
		case errors.Is(err, auth.ErrSiteVerificationFailed):
			a.loginError(w, r, "invalid-token")
		case errors.Is(err, auth.ErrSiteRejectedToken):
			a.loginError(w, r, "verification-failed")
		default:
			a.loginError(w, r, "verification-error")
		}
		return
	}

	shop, err := a.provisionShop(r, origin, "", identity.Email)
	if err != nil {
		a.audit.logError(AuditWPLoginFailure, r, err)
		a.loginError(w, r, "verification-error")
		return
	}

	signed, err := a.jwt.Mint(auth.SessionClaims{
		Site:   origin,
		UserID: identity.UserID,
		Email:  identity.Email,
		ShopID: shop.ShopID,
	}, auth.JWTSessionTTL)
	if err != nil {
		a.audit.logError(AuditWPLoginFailure, r, err)
		a.loginError(w, r, "verification-error")
		return
	}

	a.writeSessionCookie(w, auth.JWTCookieName, signed, auth.JWTSessionTTL)
	a.audit.logEvent(AuditWPLoginSuccess, r, shop.ShopID, slog.String("site", origin))
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func (a *API) loginError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, "/login?error="+code, http.StatusFound)
}

// safeRedirectTarget accepts only local absolute paths. Absolute URLs,
// scheme-relative "//host" references, and the "/\host" variant some
// browsers normalize to "//host" all land on a foreign origin.
func safeRedirectTarget(p string) bool {
	if p == "" || p[0] != '/' {
		return false
	}
	if len(p) > 1 && (p[1] == '/' || p[1] == '\\') {
		return false
	}
	return true
}
