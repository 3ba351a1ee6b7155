package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists carts.
type Store interface {
	Load(ctx context.Context, id string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps each cart as one JSON document. Saves replace the whole
// document, so concurrent writers resolve last-write-wins.
type RedisStore struct {
	R   *redis.Client
	TTL time.Duration
}

func cartKey(id string) string { return "cart:" + id }

// Load returns ErrNotFound when the cart expired or never existed.
func (s *RedisStore) Load(ctx context.Context, id string) (*Cart, error) {
	data, err := s.R.Get(ctx, cartKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var c Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	return &c, nil
}

// Save writes c and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, c *Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	if err := s.R.Set(ctx, cartKey(c.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// Delete removes the cart.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.R.Del(ctx, cartKey(id)).Err()
}
