package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/noah-isme/backend-liquido/internal/common"
	"github.com/noah-isme/backend-liquido/internal/resilience"
)

// ErrStoreUnavailable is returned while the breaker around the store is open.
var ErrStoreUnavailable = common.NewAppError("FORM_STORE_UNAVAILABLE", "form storage is temporarily unavailable", http.StatusServiceUnavailable, resilience.ErrOpenCircuit)

// GuardedStore wraps a Store with a circuit breaker. Missing sessions are not
// failures.
type GuardedStore struct {
	Store   Store
	Breaker *resilience.Breaker
}

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func (g GuardedStore) do(ctx context.Context, fn func(context.Context) error) error {
	err := g.Breaker.Do(ctx, fn, isNotFound)
	if errors.Is(err, resilience.ErrOpenCircuit) {
		return ErrStoreUnavailable
	}
	return err
}

// Load implements Store.
func (g GuardedStore) Load(ctx context.Context, id string) (Session, error) {
	var s Session
	err := g.do(ctx, func(ctx context.Context) error {
		var err error
		s, err = g.Store.Load(ctx, id)
		return err
	})
	return s, err
}

// Save implements Store.
func (g GuardedStore) Save(ctx context.Context, s Session, ttl time.Duration) error {
	return g.do(ctx, func(ctx context.Context) error { return g.Store.Save(ctx, s, ttl) })
}

// Delete implements Store.
func (g GuardedStore) Delete(ctx context.Context, id string) error {
	return g.do(ctx, func(ctx context.Context) error { return g.Store.Delete(ctx, id) })
}
