package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/trusthive/trusthive/auth"
	"github.com/trusthive/trusthive/internal/util"
	"github.com/trusthive/trusthive/storage"
)

// GenerateToken handles POST /auth/generate-token. Server-to-server:
// the WordPress plugin authenticates with the shop's api key as a
// bearer credential and receives a short-lived one-time token to hand
// to the admin's browser.
func (a *API) GenerateToken(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := bearerToken(r)
	if !ok {
		a.audit.logFailure(AuditTokenIssueDenied, r, "missing bearer credential")
		writeError(w, http.StatusUnauthorized, "missing auth")
		return
	}

	var req GenerateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Shop == "" {
		writeError(w, http.StatusBadRequest, "missing shop")
		return
	}

	shop, err := a.repo.GetShop(r.Context(), req.Shop)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.audit.logError(AuditTokenIssueDenied, r, err)
		}
		// Unknown shop and wrong key get the same response.
		a.audit.logFailure(AuditTokenIssueDenied, r, "unknown shop", slog.String("shop_id", req.Shop))
		writeUnauthorized(w)
		return
	}
	if subtle.ConstantTimeCompare([]byte(shop.APIKey), []byte(apiKey)) != 1 {
		a.audit.logFailure(AuditTokenIssueDenied, r, "api key mismatch", slog.String("shop_id", req.Shop))
		writeUnauthorized(w)
		return
	}

	token, err := a.tokens.Issue(r.Context(), req.Shop, auth.DefaultTokenTTL, true)
	if err != nil {
		a.audit.logError(AuditTokenIssueDenied, r, err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	tokensIssued.Inc()
	a.audit.logEvent(AuditTokenIssued, r, req.Shop)
	writeJSON(w, http.StatusOK, GenerateTokenResponse{OK: true, Token: token})
}

// CleanupTokens handles POST and GET /auth/cleanup-tokens. Idempotent;
// a second call with nothing new to sweep returns a zero count. An
// unreachable token store is a configuration error: logged with detail
// server-side, returned to the caller as a generic failure.
func (a *API) CleanupTokens(w http.ResponseWriter, r *http.Request) {
	count, err := a.sweeper.SweepAll(r.Context())
	if err != nil {
		a.audit.logError(AuditCleanupFailure, r, err)
		writeError(w, http.StatusInternalServerError, "cleanup_failed")
		return
	}
	tokensSwept.Add(float64(count))
	a.audit.log(AuditCleanupRun, r, slog.Int("cleaned_count", count))
	writeJSON(w, http.StatusOK, CleanupResponse{
		OK:           true,
		Message:      fmt.Sprintf("Cleaned up %d old tokens", count),
		CleanedCount: count,
	})
}

// RegisterShop handles POST /register: provision a new tenant and
// return its shop id and api key. The key leaves the server only here.
func (a *API) RegisterShop(w http.ResponseWriter, r *http.Request) {
	var req RegisterShopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SiteURL == "" {
		writeError(w, http.StatusBadRequest, "missing site_url")
		return
	}

	shop, err := a.provisionShop(r, req.SiteURL, req.SiteName, req.AdminEmail)
	if err != nil {
		a.audit.logError(AuditShopProvisioned, r, err)
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	writeJSON(w, http.StatusOK, RegisterShopResponse{
		OK:     true,
		ShopID: shop.ShopID,
		APIKey: shop.APIKey,
	})
}

// provisionShop creates a shop record with a fresh id and api key. If
// a record for the site origin already exists the existing record is
// returned, making provisioning idempotent per origin even under
// concurrent calls.
func (a *API) provisionShop(r *http.Request, siteURL, siteName, adminEmail string) (*storage.Shop, error) {
	if existing, err := a.repo.GetShopBySiteURL(r.Context(), siteURL); err == nil {
		return existing, nil
	}

	suffix, err := util.RandomHex(6)
	if err != nil {
		return nil, err
	}
	apiKey, err := util.RandomHex(32)
	if err != nil {
		return nil, err
	}
	shop := &storage.Shop{
		ShopID:     "shop-" + suffix,
		SiteURL:    siteURL,
		SiteName:   siteName,
		AdminEmail: adminEmail,
		APIKey:     apiKey,
		CreatedAt:  a.now().UTC(),
	}
	if err := a.repo.CreateShop(r.Context(), shop); err != nil {
		if errors.Is(err, storage.ErrShopExists) {
			// Lost a provisioning race for the same origin.
			return a.repo.GetShopBySiteURL(r.Context(), siteURL)
		}
		return nil, err
	}
	a.audit.logEvent(AuditShopProvisioned, r, shop.ShopID, slog.String("site_url", siteURL))
	return shop, nil
}

// bearerToken extracts the credential from an Authorization: Bearer
// header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(header[len(prefix):]), true
}
