package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/trusthive/trusthive/storage"
	"github.com/trusthive/trusthive/storage/memory"
)

func seedShop(t *testing.T, repo storage.Repository, shopID, apiKey string) {
	t.Helper()
	err := repo.CreateShop(context.Background(), &storage.Shop{
		ShopID:    shopID,
		SiteURL:   "https://" + shopID + ".example",
		APIKey:    apiKey,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seeding shop %s: %v", shopID, err)
	}
}

func TestTokenIssueVerify(t *testing.T) {
	repo := memory.NewRepository()
	seedShop(t, repo, "shop-1", "key-1")
	svc := NewTokenService(repo)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, "shop-1", 0, true)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if len(raw) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(raw))
	}

	// The raw value must never be stored; only its hash is.
	if _, err := repo.GetToken(ctx, raw); err == nil {
		t.Error("raw token found in storage")
	}
	if _, err := repo.GetToken(ctx, HashToken(raw)); err != nil {
		t.Errorf("hashed token not found in storage: %v", err)
	}

	shopID, err := svc.Verify(ctx, raw, true)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if shopID != "shop-1" {
		t.Errorf("expected shop-1, got %s", shopID)
	}
}

func TestTokenSingleUse(t *testing.T) {
	repo := memory.NewRepository()
	seedShop(t, repo, "shop-1", "key-1")
	svc := NewTokenService(repo)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, "shop-1", 0, true)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := svc.Verify(ctx, raw, true); err != nil {
		t.Fatalf("first Verify failed: %v", err)
	}
	if _, err := svc.Verify(ctx, raw, true); !errors.Is(err, ErrConsumedCredential) {
		t.Errorf("expected ErrConsumedCredential, got %v", err)
	}
}

func TestTokenPreviewDoesNotConsume(t *testing.T) {
	repo := memory.NewRepository()
	seedShop(t, repo, "shop-1", "key-1")
	svc := NewTokenService(repo)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, "shop-1", 0, true)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.Verify(ctx, raw, false); err != nil {
			t.Fatalf("preview %d failed: %v", i+1, err)
		}
	}
	// A consuming verify must still succeed after previews.
	if _, err := svc.Verify(ctx, raw, true); err != nil {
		t.Fatalf("consuming Verify after previews failed: %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	repo := memory.NewRepository()
	seedShop(t, repo, "shop-1", "key-1")

	now := time.Now().UTC()
	clock := now
	svc := NewTokenService(repo).WithClock(func() time.Time { return clock })
	ctx := context.Background()

	raw, err := svc.Issue(ctx, "shop-1", 300*time.Second, true)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	clock = now.Add(299 * time.Second)
	if _, err := svc.Verify(ctx, raw, false); err != nil {
		t.Fatalf("Verify within TTL failed: %v", err)
	}

	clock = now.Add(300 * time.Second)
	if _, err := svc.Verify(ctx, raw, true); !errors.Is(err, ErrExpiredCredential) {
		t.Errorf("expected ErrExpiredCredential at boundary, got %v", err)
	}
}

func TestTokenUnknownAndMissing(t *testing.T) {
	repo := memory.NewRepository()
	svc := NewTokenService(repo)
	ctx := context.Background()

	if _, err := svc.Verify(ctx, "", true); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("expected ErrMissingCredential, got %v", err)
	}
	if _, err := svc.Verify(ctx, "deadbeef", true); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestTokenConcurrentRedemption(t *testing.T) {
	repo := memory.NewRepository()
	seedShop(t, repo, "shop-1", "key-1")
	svc := NewTokenService(repo)
	ctx := context.Background()

	raw, err := svc.Issue(ctx, "shop-1", 0, true)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	const workers = 20
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Verify(ctx, raw, true)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		switch {
		case err == nil:
			winners++
		case errors.Is(err, ErrConsumedCredential):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Errorf("expected exactly 1 successful redemption, got %d", winners)
	}
}

func TestIssueSweepsOwnShop(t *testing.T) {
	repo := memory.NewRepository()
	seedShop(t, repo, "shop-1", "key-1")

	now := time.Now().UTC()
	clock := now
	svc := NewTokenService(repo).WithClock(func() time.Time { return clock })
	ctx := context.Background()

	old, err := svc.Issue(ctx, "shop-1", 300*time.Second, true)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	clock = now.Add(time.Hour)
	if _, err := svc.Issue(ctx, "shop-1", 300*time.Second, true); err != nil {
		t.Fatalf("second Issue failed: %v", err)
	}

	// The expired token should have been swept by the second issuance.
	if _, err := repo.GetToken(ctx, HashToken(old)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected expired token to be swept, got %v", err)
	}
}
