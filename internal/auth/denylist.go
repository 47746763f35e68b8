package auth

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Denylist remembers revoked token ids until the token would have expired anyway.
type Denylist interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	Revoked(ctx context.Context, jti string) (bool, error)
}

// RedisDenylist stores revoked ids as keys expiring with the token.
type RedisDenylist struct {
	R      redis.UniversalClient
	Prefix string
}

// Revoke marks jti revoked until the given time.
func (d RedisDenylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return d.R.Set(ctx, d.Prefix+jti, 1, ttl).Err()
}

// Revoked reports whether jti was revoked.
func (d RedisDenylist) Revoked(ctx context.Context, jti string) (bool, error) {
	n, err := d.R.Exists(ctx, d.Prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MemoryDenylist keeps revoked ids in process memory.
type MemoryDenylist struct {
	c *cache.Cache
}

// NewMemoryDenylist returns an empty in-process denylist.
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{c: cache.New(cache.NoExpiration, 5*time.Minute)}
}

// Revoke marks jti revoked until the given time.
func (d *MemoryDenylist) Revoke(_ context.Context, jti string, until time.Time) error {
	if ttl := time.Until(until); ttl > 0 {
		d.c.Set(jti, struct{}{}, ttl)
	}
	return nil
}

// Revoked reports whether jti was revoked.
func (d *MemoryDenylist) Revoked(_ context.Context, jti string) (bool, error) {
	_, ok := d.c.Get(jti)
	return ok, nil
}
