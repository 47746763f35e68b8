// Package lock serialises work on a key, either across replicas through Redis
// or inside one process when no Redis is configured.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-liquido/internal/resilience"
)

// ErrNoCallback is returned when WithLock is invoked without work to run.
var ErrNoCallback = errors.New("lock: callback not provided")

// Locker runs fn while holding the lock for key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// Redis is a Locker backed by SET NX with an owner token, so a holder whose
// TTL expired can never release a lock taken over by someone else.
type Redis struct {
	R            redis.UniversalClient
	Prefix       string
	// RetryBackoff is the first wait between acquisition attempts; later
	// waits double up to maxRetryBackoff.
	RetryBackoff time.Duration
}

const maxRetryBackoff = 200 * time.Millisecond

// WithLock blocks until the lock is acquired or ctx is done. The lock is
// released when fn returns, whatever its result.
func (l Redis) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return ErrNoCallback
	}
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	key = l.Prefix + key
	token := uuid.NewString()

	for attempt := 1; ; attempt++ {
		ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			defer func() {
				_ = releaseScript.Run(context.Background(), l.R, []string{key}, token).Err()
			}()
			return fn(ctx)
		}
		timer := time.NewTimer(resilience.Backoff(l.RetryBackoff, maxRetryBackoff, attempt, 0.2))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Local is an in-process Locker keyed by string. The ttl argument is ignored:
// a local holder cannot disappear without releasing.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal returns an empty in-process locker.
func NewLocal() *Local {
	return &Local{slots: map[string]*slot{}}
}

// WithLock runs fn while holding the local lock for key.
func (l *Local) WithLock(ctx context.Context, key string, _ time.Duration, fn func(context.Context) error) error {
	if fn == nil {
		return ErrNoCallback
	}
	s := l.acquire(key)
	defer l.drop(key, s)

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.ch }()
	return fn(ctx)
}

func (l *Local) acquire(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *Local) drop(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
