package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/trusthive/trusthive/internal/util"
	"github.com/trusthive/trusthive/storage"
)

// DefaultTokenTTL is the default lifetime of an opaque hand-off token.
const DefaultTokenTTL = 300 * time.Second

// rawTokenBytes is the entropy of a raw token before hex encoding.
const rawTokenBytes = 32

// TokenService issues and verifies opaque tokens. The raw token value
// is returned to the caller exactly once; only its SHA-256 hash is
// ever stored.
type TokenService struct {
	repo storage.Repository
	now  func() time.Time
}

// NewTokenService creates a token service over the given repository.
func NewTokenService(repo storage.Repository) *TokenService {
	return &TokenService{repo: repo, now: time.Now}
}

// WithClock overrides the service clock. Test hook.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// HashToken returns the hex SHA-256 hash of a raw token, the only form
// in which tokens exist at rest.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Issue creates a new opaque token bound to shopID and returns the raw
// value. Expired and used tokens for the same shop are deleted
// opportunistically first; a cleanup failure does not fail issuance.
func (s *TokenService) Issue(ctx context.Context, shopID string, ttl time.Duration, oneTime bool) (string, error) {
	if shopID == "" {
		return "", errors.New("missing shop")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	_, _ = s.repo.DeleteStaleTokens(ctx, shopID, s.now())

	raw, err := util.RandomHex(rawTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	token := &storage.AuthToken{
		TokenHash: HashToken(raw),
		ShopID:    shopID,
		ExpiresAt: s.now().Add(ttl),
		OneTime:   oneTime,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateToken(ctx, token); err != nil {
		return "", fmt.Errorf("storing token: %w", err)
	}
	return raw, nil
}

// Verify validates a raw token and returns the bound shop id.
//
// With markUsed=false the token state is never mutated, so a one-time
// token can be previewed without being burnt. With markUsed=true a
// one-time token is consumed via a conditional mark-used update; of
// two racing consumers exactly one succeeds.
func (s *TokenService) Verify(ctx context.Context, raw string, markUsed bool) (string, error) {
	if raw == "" {
		return "", ErrMissingCredential
	}
	hash := HashToken(raw)
	rec, err := s.repo.GetToken(ctx, hash)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrInvalidCredential
		}
		return "", err
	}
	if rec.Used {
		return "", ErrConsumedCredential
	}
	if !s.now().Before(rec.ExpiresAt) {
		return "", ErrExpiredCredential
	}
	if rec.OneTime && markUsed {
		won, err := s.repo.ConsumeToken(ctx, hash)
		if err != nil {
			return "", err
		}
		if !won {
			// Lost the race to another consumer.
			return "", ErrConsumedCredential
		}
	}
	return rec.ShopID, nil
}
