package auth

import (
	"context"
	"testing"
	"time"

	"github.com/trusthive/trusthive/storage/memory"
)

func TestSweeper(t *testing.T) {
	repo := memory.NewRepository()
	seedShop(t, repo, "shop-1", "key-1")
	seedShop(t, repo, "shop-2", "key-2")

	now := time.Now().UTC()
	clock := now
	tick := func() time.Time { return clock }
	svc := NewTokenService(repo).WithClock(tick)
	sweeper := NewSweeper(repo).WithClock(tick)
	ctx := context.Background()

	live1, err := svc.Issue(ctx, "shop-1", time.Hour, true)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	short, err := svc.Issue(ctx, "shop-1", time.Minute, true)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	consumed, err := svc.Issue(ctx, "shop-2", time.Hour, true)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := svc.Verify(ctx, consumed, true); err != nil {
		t.Fatalf("consuming Verify failed: %v", err)
	}

	clock = now.Add(10 * time.Minute)

	count, err := sweeper.SweepAll(ctx)
	if err != nil {
		t.Fatalf("SweepAll failed: %v", err)
	}
	// One expired for shop-1, one consumed for shop-2.
	if count != 2 {
		t.Errorf("expected 2 swept, got %d", count)
	}

	// Live tokens survive; the swept ones verify as unknown, not consumed.
	if _, err := svc.Verify(ctx, live1, false); err != nil {
		t.Errorf("live token rejected after sweep: %v", err)
	}
	if _, err := svc.Verify(ctx, short, false); err == nil {
		t.Error("expired token accepted after sweep")
	}

	count, err = sweeper.SweepAll(ctx)
	if err != nil {
		t.Fatalf("second SweepAll failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 swept on repeat, got %d", count)
	}
}

func TestSweepForShop(t *testing.T) {
	repo := memory.NewRepository()
	seedShop(t, repo, "shop-1", "key-1")
	seedShop(t, repo, "shop-2", "key-2")

	now := time.Now().UTC()
	clock := now
	tick := func() time.Time { return clock }
	svc := NewTokenService(repo).WithClock(tick)
	sweeper := NewSweeper(repo).WithClock(tick)
	ctx := context.Background()

	a, _ := svc.Issue(ctx, "shop-1", time.Minute, true)
	b, _ := svc.Issue(ctx, "shop-2", time.Minute, true)

	clock = now.Add(time.Hour)

	if err := sweeper.SweepForShop(ctx, "shop-1"); err != nil {
		t.Fatalf("SweepForShop failed: %v", err)
	}

	if _, err := repo.GetToken(ctx, HashToken(a)); err == nil {
		t.Error("shop-1 token should have been swept")
	}
	if _, err := repo.GetToken(ctx, HashToken(b)); err != nil {
		t.Errorf("shop-2 token should have survived: %v", err)
	}
}
