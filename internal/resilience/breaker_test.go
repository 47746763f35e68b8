package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func fail(context.Context) error    { return errBoom }
func succeed(context.Context) error { return nil }

func newTestBreaker(target string) (*Breaker, *time.Time) {
	clock := time.Unix(1_700_000_000, 0)
	b := NewBreaker(Options{Target: target, MinRequests: 2, FailureRatio: 0.5, OpenFor: time.Second})
	b.now = func() time.Time { return clock }
	return b, &clock
}

func TestBreakerTransitions(t *testing.T) {
	b, clock := newTestBreaker("transitions")
	ctx := context.Background()

	require.ErrorIs(t, b.Do(ctx, fail, nil), errBoom)
	require.Equal(t, Closed, b.State())
	require.ErrorIs(t, b.Do(ctx, fail, nil), errBoom)
	require.Equal(t, Open, b.State())

	require.ErrorIs(t, b.Do(ctx, succeed, nil), ErrOpenCircuit)

	*clock = clock.Add(time.Second)
	require.NoError(t, b.Do(ctx, succeed, nil))
	require.Equal(t, Closed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker("reopen")
	ctx := context.Background()
	_ = b.Do(ctx, fail, nil)
	_ = b.Do(ctx, fail, nil)

	*clock = clock.Add(2 * time.Second)
	require.ErrorIs(t, b.Do(ctx, fail, nil), errBoom)
	require.Equal(t, Open, b.State())
	require.ErrorIs(t, b.Do(ctx, succeed, nil), ErrOpenCircuit)
}

func TestBreakerIgnoredErrorsDoNotTrip(t *testing.T) {
	b, _ := newTestBreaker("ignored")
	notFound := errors.New("not found")
	ignore := func(err error) bool { return errors.Is(err, notFound) }

	for range 5 {
		err := b.Do(context.Background(), func(context.Context) error { return notFound }, ignore)
		require.ErrorIs(t, err, notFound)
	}
	require.Equal(t, Closed, b.State())
}

func TestBreakerMetrics(t *testing.T) {
	MustRegisterMetrics("test", prometheus.NewRegistry())
	b, _ := newTestBreaker("metrics")
	ctx := context.Background()
	_ = b.Do(ctx, fail, nil)
	_ = b.Do(ctx, fail, nil)

	require.Equal(t, 1.0, testutil.ToFloat64(BreakerState.WithLabelValues("metrics")))
	require.Equal(t, 1.0, testutil.ToFloat64(BreakerTransitions.WithLabelValues("metrics", "closed", "open")))
}

func TestBackoff(t *testing.T) {
	base := 10 * time.Millisecond
	require.Equal(t, base, Backoff(base, time.Second, 1, 0))
	require.Equal(t, base*4, Backoff(base, time.Second, 3, 0))
	require.Equal(t, 50*time.Millisecond, Backoff(base, 50*time.Millisecond, 10, 0))
	require.Equal(t, time.Second, Backoff(base, 0, 1000, 0))

	d := Backoff(base, time.Second, 2, 0.2)
	require.GreaterOrEqual(t, d, 16*time.Millisecond)
	require.LessOrEqual(t, d, 24*time.Millisecond)
}
