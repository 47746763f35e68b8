package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-liquido/internal/common"
	"github.com/noah-isme/backend-liquido/internal/resilience"
)

type flakyStore struct {
	Store
	err error
}

func (f *flakyStore) Load(ctx context.Context, id string) (Session, error) {
	if f.err != nil {
		return Session{}, f.err
	}
	return f.Store.Load(ctx, id)
}

func TestGuardedStoreOpensOnFailures(t *testing.T) {
	flaky := &flakyStore{Store: NewMemoryStore(time.Minute), err: errors.New("connection refused")}
	store := GuardedStore{
		Store:   flaky,
		Breaker: resilience.NewBreaker(resilience.Options{Target: "session-test", MinRequests: 2, OpenFor: time.Hour}),
	}
	ctx := context.Background()

	_, err := store.Load(ctx, "a")
	require.EqualError(t, err, "connection refused")
	_, err = store.Load(ctx, "a")
	require.EqualError(t, err, "connection refused")

	flaky.err = nil
	_, err = store.Load(ctx, "a")
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 503, appErr.HTTPStatus)
}

func TestGuardedStoreNotFoundIsNotAFailure(t *testing.T) {
	store := GuardedStore{
		Store:   NewMemoryStore(time.Minute),
		Breaker: resilience.NewBreaker(resilience.Options{Target: "session-notfound", MinRequests: 1, OpenFor: time.Hour}),
	}
	ctx := context.Background()
	for range 3 {
		_, err := store.Load(ctx, "missing")
		require.ErrorIs(t, err, ErrNotFound)
	}

	require.NoError(t, store.Save(ctx, Session{ID: "s1", Owner: "admin"}, time.Minute))
	got, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "admin", got.Owner)
	require.NoError(t, store.Delete(ctx, "s1"))
	require.Equal(t, resilience.Closed, store.Breaker.State())
}
