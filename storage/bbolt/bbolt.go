// Package bbolt provides a BBolt-backed storage repository.
package bbolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/trusthive/trusthive/storage"
	"go.etcd.io/bbolt"
)

var (
	bucketShops       = []byte("shops")
	bucketShopsBySite = []byte("shops_by_site")
	bucketTokens      = []byte("tokens")
	bucketReviews     = []byte("reviews")
)

// Store implements storage.Repository backed by a BBolt database.
type Store struct {
	db *bbolt.DB
}

var _ storage.Repository = (*Store)(nil)

// NewRepository returns a Repository backed by the given BBolt database,
// creating the required buckets if they do not exist.
func NewRepository(db *bbolt.DB) (*Store, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketShops, bucketShopsBySite, bucketTokens, bucketReviews} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("initializing buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// NewRepositoryFromFile opens a BBolt database at the given path and
// returns a new Repository.
func NewRepositoryFromFile(path string, options *bbolt.Options) (*Store, error) {
	db, err := bbolt.Open(path, 0600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	return NewRepository(db)
}

// Close closes the underlying BBolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateShop(ctx context.Context, shop *storage.Shop) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		shops := tx.Bucket(bucketShops)
		bySite := tx.Bucket(bucketShopsBySite)
		if shops == nil || bySite == nil {
			return storage.ErrStoreUnavailable
		}
		if shops.Get([]byte(shop.ShopID)) != nil {
			return fmt.Errorf("%s: %w", shop.ShopID, storage.ErrShopExists)
		}
		if bySite.Get([]byte(shop.SiteURL)) != nil {
			return fmt.Errorf("%s: %w", shop.SiteURL, storage.ErrShopExists)
		}
		data, err := json.Marshal(shop)
		if err != nil {
			return err
		}
		if err := shops.Put([]byte(shop.ShopID), data); err != nil {
			return err
		}
		return bySite.Put([]byte(shop.SiteURL), []byte(shop.ShopID))
	})
}

func (s *Store) GetShop(ctx context.Context, shopID string) (*storage.Shop, error) {
	var shop storage.Shop
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketShops)
		if b == nil {
			return storage.ErrStoreUnavailable
		}
		data := b.Get([]byte(shopID))
		if data == nil {
			return fmt.Errorf("shop %s: %w", shopID, storage.ErrNotFound)
		}
		return json.Unmarshal(data, &shop)
	})
	if err != nil {
		return nil, err
	}
	return &shop, nil
}

func (s *Store) GetShopBySiteURL(ctx context.Context, siteURL string) (*storage.Shop, error) {
	var shopID string
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketShopsBySite)
		if b == nil {
			return storage.ErrStoreUnavailable
		}
		id := b.Get([]byte(siteURL))
		if id == nil {
			return fmt.Errorf("site %s: %w", siteURL, storage.ErrNotFound)
		}
		shopID = string(id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetShop(ctx, shopID)
}

func (s *Store) CreateToken(ctx context.Context, token *storage.AuthToken) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		if b == nil {
			return storage.ErrStoreUnavailable
		}
		data, err := json.Marshal(token)
		if err != nil {
			return err
		}
		return b.Put([]byte(token.TokenHash), data)
	})
}

func (s *Store) GetToken(ctx context.Context, tokenHash string) (*storage.AuthToken, error) {
	var token storage.AuthToken
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		if b == nil {
			return storage.ErrStoreUnavailable
		}
		data := b.Get([]byte(tokenHash))
		if data == nil {
			return fmt.Errorf("token: %w", storage.ErrNotFound)
		}
		return json.Unmarshal(data, &token)
	})
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// ConsumeToken performs the mark-used update inside a single Update
// transaction so two racing consumers cannot both observe used=false.
func (s *Store) ConsumeToken(ctx context.Context, tokenHash string) (bool, error) {
	won := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		if b == nil {
			return storage.ErrStoreUnavailable
		}
		data := b.Get([]byte(tokenHash))
		if data == nil {
			return nil
		}
		var token storage.AuthToken
		if err := json.Unmarshal(data, &token); err != nil {
			return err
		}
		if token.Used {
			return nil
		}
		token.Used = true
		updated, err := json.Marshal(&token)
		if err != nil {
			return err
		}
		if err := b.Put([]byte(tokenHash), updated); err != nil {
			return err
		}
		won = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

func (s *Store) DeleteStaleTokens(ctx context.Context, shopID string, now time.Time) (int, error) {
	count := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTokens)
		if b == nil {
			return storage.ErrStoreUnavailable
		}
		var stale [][]byte
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var token storage.AuthToken
			if err := json.Unmarshal(v, &token); err != nil {
				// Corrupt entry, remove it.
				stale = append(stale, append([]byte(nil), k...))
				continue
			}
			if shopID != "" && token.ShopID != shopID {
				continue
			}
			if token.Used || token.ExpiresAt.Before(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) CreateReview(ctx context.Context, review *storage.Review) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketReviews)
		if b == nil {
			return storage.ErrStoreUnavailable
		}
		data, err := json.Marshal(review)
		if err != nil {
			return err
		}
		return b.Put([]byte(review.ID), data)
	})
}

func (s *Store) GetReview(ctx context.Context, id string) (*storage.Review, error) {
	var review storage.Review
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketReviews)
		if b == nil {
			return storage.ErrStoreUnavailable
		}
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("review %s: %w", id, storage.ErrNotFound)
		}
		return json.Unmarshal(data, &review)
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (s *Store) ListReviews(ctx context.Context, shopID string) ([]*storage.Review, error) {
	var reviews []*storage.Review
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketReviews)
		if b == nil {
			return storage.ErrStoreUnavailable
		}
		return b.ForEach(func(k, v []byte) error {
			var review storage.Review
			if err := json.Unmarshal(v, &review); err != nil {
				return err
			}
			if review.ShopID == shopID {
				reviews = append(reviews, &review)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

func (s *Store) SetReviewApproved(ctx context.Context, id string, approved bool) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketReviews)
		if b == nil {
			return storage.ErrStoreUnavailable
		}
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("review %s: %w", id, storage.ErrNotFound)
		}
		var review storage.Review
		if err := json.Unmarshal(data, &review); err != nil {
			return err
		}
		review.Approved = approved
		updated, err := json.Marshal(&review)
		if err != nil {
			return err
		}
		return b.Put([]byte(id), updated)
	})
}

func (s *Store) DeleteReview(ctx context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketReviews)
		if b == nil {
			return storage.ErrStoreUnavailable
		}
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("review %s: %w", id, storage.ErrNotFound)
		}
		return b.Delete([]byte(id))
	})
}
