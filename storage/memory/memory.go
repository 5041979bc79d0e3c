// Package memory provides a thread-safe in-memory implementation of storage.Repository.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/trusthive/trusthive/storage"
)

// Repository is a thread-safe in-memory implementation of storage.Repository.
// Suitable for testing, demos, and single-process use cases.
type Repository struct {
	mu          sync.RWMutex
	shops       map[string]*storage.Shop
	shopsBySite map[string]string
	tokens      map[string]*storage.AuthToken
	reviews     map[string]*storage.Review
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository creates a new empty in-memory Repository.
func NewRepository() *Repository {
	return &Repository{
		shops:       make(map[string]*storage.Shop),
		shopsBySite: make(map[string]string),
		tokens:      make(map[string]*storage.AuthToken),
		reviews:     make(map[string]*storage.Review),
	}
}

func cloneShop(s *storage.Shop) *storage.Shop {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func cloneToken(t *storage.AuthToken) *storage.AuthToken {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneReview(r *storage.Review) *storage.Review {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

func (r *Repository) CreateShop(ctx context.Context, shop *storage.Shop) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shops[shop.ShopID]; ok {
		return fmt.Errorf("%s: %w", shop.ShopID, storage.ErrShopExists)
	}
	if _, ok := r.shopsBySite[shop.SiteURL]; ok {
		return fmt.Errorf("%s: %w", shop.SiteURL, storage.ErrShopExists)
	}
	r.shops[shop.ShopID] = cloneShop(shop)
	r.shopsBySite[shop.SiteURL] = shop.ShopID
	return nil
}

func (r *Repository) GetShop(ctx context.Context, shopID string) (*storage.Shop, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	shop, ok := r.shops[shopID]
	if !ok {
		return nil, fmt.Errorf("shop %s: %w", shopID, storage.ErrNotFound)
	}
	return cloneShop(shop), nil
}

func (r *Repository) GetShopBySiteURL(ctx context.Context, siteURL string) (*storage.Shop, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	shopID, ok := r.shopsBySite[siteURL]
	if !ok {
		return nil, fmt.Errorf("site %s: %w", siteURL, storage.ErrNotFound)
	}
	return cloneShop(r.shops[shopID]), nil
}

func (r *Repository) CreateToken(ctx context.Context, token *storage.AuthToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[token.TokenHash] = cloneToken(token)
	return nil
}

func (r *Repository) GetToken(ctx context.Context, tokenHash string) (*storage.AuthToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	token, ok := r.tokens[tokenHash]
	if !ok {
		return nil, fmt.Errorf("token: %w", storage.ErrNotFound)
	}
	return cloneToken(token), nil
}

func (r *Repository) ConsumeToken(ctx context.Context, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenHash]
	if !ok || token.Used {
		return false, nil
	}
	token.Used = true
	return true, nil
}

func (r *Repository) DeleteStaleTokens(ctx context.Context, shopID string, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for hash, token := range r.tokens {
		if shopID != "" && token.ShopID != shopID {
			continue
		}
		if token.Used || token.ExpiresAt.Before(now) {
			delete(r.tokens, hash)
			count++
		}
	}
	return count, nil
}

func (r *Repository) CreateReview(ctx context.Context, review *storage.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reviews[review.ID] = cloneReview(review)
	return nil
}

func (r *Repository) GetReview(ctx context.Context, id string) (*storage.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	review, ok := r.reviews[id]
	if !ok {
		return nil, fmt.Errorf("review %s: %w", id, storage.ErrNotFound)
	}
	return cloneReview(review), nil
}

func (r *Repository) ListReviews(ctx context.Context, shopID string) ([]*storage.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var reviews []*storage.Review
	for _, review := range r.reviews {
		if review.ShopID == shopID {
			reviews = append(reviews, cloneReview(review))
		}
	}
	return reviews, nil
}

func (r *Repository) SetReviewApproved(ctx context.Context, id string, approved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	review, ok := r.reviews[id]
	if !ok {
		return fmt.Errorf("review %s: %w", id, storage.ErrNotFound)
	}
	review.Approved = approved
	return nil
}

func (r *Repository) DeleteReview(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.reviews[id]; !ok {
		return fmt.Errorf("review %s: %w", id, storage.ErrNotFound)
	}
	delete(r.reviews, id)
	return nil
}
