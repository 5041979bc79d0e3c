package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/trusthive/trusthive/storage"
)

// DefaultHMACMaxAge bounds the replay window of an HMAC triple.
const DefaultHMACMaxAge = 300 * time.Second

// HMACAuthenticator validates (shop, timestamp, signature) triples
// against the shop's shared secret. This mechanism has no single-use
// protection beyond the timestamp window; the same triple stays valid
// for the whole window. Callers needing one-shot semantics must use
// opaque tokens instead.
type HMACAuthenticator struct {
	repo   storage.Repository
	maxAge time.Duration
	now    func() time.Time
}

// NewHMACAuthenticator creates an authenticator with the given replay
// window. A maxAge of 0 selects DefaultHMACMaxAge.
func NewHMACAuthenticator(repo storage.Repository, maxAge time.Duration) *HMACAuthenticator {
	if maxAge <= 0 {
		maxAge = DefaultHMACMaxAge
	}
	return &HMACAuthenticator{repo: repo, maxAge: maxAge, now: time.Now}
}

// WithClock overrides the authenticator clock. Test hook.
func (a *HMACAuthenticator) WithClock(now func() time.Time) *HMACAuthenticator {
	a.now = now
	return a
}

// SignTriple computes the hex HMAC-SHA256 signature of "shop|ts" under
// apiKey. The plugin side and tests use this to build triples.
func SignTriple(apiKey, shop string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(apiKey))
	mac.Write([]byte(shop + "|" + strconv.FormatInt(ts, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the triple and returns the shop id on success.
// Malformed hex in the signature is an immediate invalid result; there
// is no variable-time fallback comparison.
func (a *HMACAuthenticator) Verify(ctx context.Context, shop, ts, signatureHex string) (string, error) {
	if shop == "" || ts == "" || signatureHex == "" {
		return "", ErrMissingCredential
	}
	rec, err := a.repo.GetShop(ctx, shop)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrInvalidCredential
		}
		return "", err
	}

	tnum, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return "", ErrInvalidCredential
	}
	now := a.now().Unix()
	skew := now - tnum
	if skew < 0 {
		skew = -skew
	}
	// Compare in whole seconds; converting skew to a Duration would
	// overflow for extreme timestamps.
	if skew > int64(a.maxAge/time.Second) {
		return "", ErrExpiredCredential
	}

	supplied, err := hex.DecodeString(signatureHex)
	if err != nil {
		return "", ErrInvalidCredential
	}
	mac := hmac.New(sha256.New, []byte(rec.APIKey))
	mac.Write([]byte(shop + "|" + ts))
	if !hmac.Equal(mac.Sum(nil), supplied) {
		return "", ErrInvalidCredential
	}
	return shop, nil
}
