// Package storage provides the persistence layer for tenant and
// credential records.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrShopExists is returned when a shop with the same id or site URL
// already exists.
var ErrShopExists = errors.New("shop already exists")

// ErrStoreUnavailable is returned when the underlying credential store
// cannot be reached at all. It signals a configuration problem, not a
// transient condition, and must never be collapsed into "zero rows".
var ErrStoreUnavailable = errors.New("credential store unavailable")

// Shop is a tenant record: one merchant storefront registered with the
// dashboard. APIKey is the shop's long-lived shared secret; it is
// generated once at provisioning, never logged, and compared only in
// constant time.
type Shop struct {
	ShopID     string    `json:"shop_id"`
	SiteURL    string    `json:"site_url"`
	SiteName   string    `json:"site_name,omitempty"`
	AdminEmail string    `json:"admin_email,omitempty"`
	APIKey     string    `json:"api_key"`
	CreatedAt  time.Time `json:"created_at"`
}

// AuthToken is the at-rest record of an opaque token. Only the SHA-256
// hash of the raw token is stored; the raw value is never persisted.
type AuthToken struct {
	TokenHash string    `json:"token_hash"`
	ShopID    string    `json:"shop_id"`
	ExpiresAt time.Time `json:"expires_at"`
	OneTime   bool      `json:"one_time"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// Review is a product review row. The auth core only needs enough of
// this model to enforce tenant ownership on moderation actions.
type Review struct {
	ID          string    `json:"id"`
	ShopID      string    `json:"shop_id"`
	ProductID   string    `json:"product_id"`
	AuthorName  string    `json:"author_name"`
	AuthorEmail string    `json:"author_email"`
	Rating      int       `json:"rating"`
	Title       string    `json:"title,omitempty"`
	Content     string    `json:"content"`
	Approved    bool      `json:"approved"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository defines the interface for shop, token, and review
// persistence.
type Repository interface {
	// CreateShop inserts a shop. Returns ErrShopExists if a shop with
	// the same ShopID or SiteURL already exists.
	CreateShop(ctx context.Context, shop *Shop) error
	// GetShop retrieves a shop by id. Returns ErrNotFound if absent.
	GetShop(ctx context.Context, shopID string) (*Shop, error)
	// GetShopBySiteURL retrieves a shop by its site origin.
	GetShopBySiteURL(ctx context.Context, siteURL string) (*Shop, error)

	// CreateToken inserts a token record keyed by its hash.
	CreateToken(ctx context.Context, token *AuthToken) error
	// GetToken retrieves a token record by hash. Returns ErrNotFound
	// if absent.
	GetToken(ctx context.Context, tokenHash string) (*AuthToken, error)
	// ConsumeToken marks the token used if and only if it is not
	// already used (compare-and-set). Returns true when this call won
	// the update, false when the token was missing or already used.
	ConsumeToken(ctx context.Context, tokenHash string) (bool, error)
	// DeleteStaleTokens deletes every token that is expired at `now`
	// or already used, returning the number deleted. An empty shopID
	// sweeps all shops; otherwise only that shop's tokens.
	DeleteStaleTokens(ctx context.Context, shopID string, now time.Time) (int, error)

	// CreateReview inserts a review.
	CreateReview(ctx context.Context, review *Review) error
	// GetReview retrieves a review by id. Returns ErrNotFound if absent.
	GetReview(ctx context.Context, id string) (*Review, error)
	// ListReviews returns all reviews belonging to a shop.
	ListReviews(ctx context.Context, shopID string) ([]*Review, error)
	// SetReviewApproved flips the moderation state of a review.
	SetReviewApproved(ctx context.Context, id string, approved bool) error
	// DeleteReview removes a review. Returns ErrNotFound if absent.
	DeleteReview(ctx context.Context, id string) error
}
