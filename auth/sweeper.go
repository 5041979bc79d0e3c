package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/trusthive/trusthive/storage"
)

// Sweeper purges expired and already-consumed tokens. Safe to run
// concurrently with issuance and verification; absence of rows is not
// an error, but an unreachable store is surfaced distinctly so a
// misconfigured deployment is never mistaken for "nothing to sweep".
type Sweeper struct {
	repo storage.Repository
	now  func() time.Time
}

// NewSweeper creates a sweeper over the given repository.
func NewSweeper(repo storage.Repository) *Sweeper {
	return &Sweeper{repo: repo, now: time.Now}
}

// WithClock overrides the sweeper clock. Test hook.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// SweepAll deletes every token that is expired or used, across all
// shops, and returns the number deleted.
func (s *Sweeper) SweepAll(ctx context.Context) (int, error) {
	count, err := s.repo.DeleteStaleTokens(ctx, "", s.now())
	if err != nil {
		return 0, fmt.Errorf("sweeping tokens: %w", err)
	}
	return count, nil
}

// SweepForShop deletes a single shop's expired and used tokens.
func (s *Sweeper) SweepForShop(ctx context.Context, shopID string) error {
	if _, err := s.repo.DeleteStaleTokens(ctx, shopID, s.now()); err != nil {
		return fmt.Errorf("sweeping tokens for %s: %w", shopID, err)
	}
	return nil
}
