// Package session stores cart sessions in Redis.
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/storelane/coupon-gate/internal/checkout"
)

const cartKeyPrefix = "cart:"

// Connect creates a Redis client from a URL and verifies the connection.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis URL")
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrap(err, "redis ping")
	}
	return client, nil
}

var _ checkout.CartStore = (*Store)(nil)

// Store implements checkout.CartStore on Redis. Carts are serialized as JSON
// and expire after the configured TTL; an expired cart is indistinguishable
// from one that never existed.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a Store with the given client and cart TTL.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Get returns the cart stored under id, or checkout.ErrCartNotFound.
func (s *Store) Get(ctx context.Context, id string) (*checkout.Cart, error) {
	raw, err := s.client.Get(ctx, cartKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, checkout.ErrCartNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get cart %q", id)
	}

	var cart checkout.Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		return nil, errors.Wrapf(err, "decode cart %q", id)
	}
	return &cart, nil
}

// Save writes the cart and refreshes its TTL.
func (s *Store) Save(ctx context.Context, cart *checkout.Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return errors.Wrapf(err, "encode cart %q", cart.ID)
	}
	if err := s.client.Set(ctx, cartKeyPrefix+cart.ID, raw, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "save cart %q", cart.ID)
	}
	return nil
}
