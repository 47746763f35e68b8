package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a session does not exist or has expired.
var ErrNotFound = errors.New("session: not found")

// Store persists form sessions for a bounded time. Save refreshes the TTL.
type Store interface {
	Load(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps each session as a JSON blob under Prefix+id.
type RedisStore struct {
	Client redis.UniversalClient
	Prefix string
}

// NewRedisStore constructs a RedisStore with the default key prefix.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{Client: client, Prefix: "form:session:"}
}

// Load fetches and decodes a session.
func (r *RedisStore) Load(ctx context.Context, id string) (Session, error) {
	data, err := r.Client.Get(ctx, r.Prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

// Save encodes the session and stores it with ttl.
func (r *RedisStore) Save(ctx context.Context, s Session, ttl time.Duration) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.Client.Set(ctx, r.Prefix+s.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the session. Deleting a missing session reports ErrNotFound.
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.Client.Del(ctx, r.Prefix+id).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MemoryStore keeps sessions in process memory. Values are copied in and out
// so callers never share the maps held by the cache.
type MemoryStore struct {
	c *cache.Cache
}

// NewMemoryStore returns a MemoryStore that sweeps expired sessions every cleanup.
func NewMemoryStore(cleanup time.Duration) *MemoryStore {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &MemoryStore{c: cache.New(cache.NoExpiration, cleanup)}
}

// Load returns a copy of the stored session.
func (m *MemoryStore) Load(_ context.Context, id string) (Session, error) {
	v, ok := m.c.Get(id)
	if !ok {
		return Session{}, ErrNotFound
	}
	return v.(Session).clone(), nil
}

// Save stores a copy of the session with ttl.
func (m *MemoryStore) Save(_ context.Context, s Session, ttl time.Duration) error {
	m.c.Set(s.ID, s.clone(), ttl)
	return nil
}

// Delete removes the session.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	if _, ok := m.c.Get(id); !ok {
		return ErrNotFound
	}
	m.c.Delete(id)
	return nil
}
