// Package app assembles the stores shared by the HTTP server. With a Redis URL
// every store is Redis backed; without one they fall back to process memory.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/backend-liquido/internal/auth"
	"github.com/noah-isme/backend-liquido/internal/common"
	"github.com/noah-isme/backend-liquido/internal/config"
	"github.com/noah-isme/backend-liquido/internal/health"
	"github.com/noah-isme/backend-liquido/internal/lock"
	"github.com/noah-isme/backend-liquido/internal/ratelimit"
	"github.com/noah-isme/backend-liquido/internal/resilience"
	"github.com/noah-isme/backend-liquido/internal/session"
)

const (
	loginLimiterPrefix = "ratelimit:login"
	inputLimiterPrefix = "ratelimit:"
)

// Dependencies enumerates the stores shared across handlers.
type Dependencies struct {
	Redis        *redis.Client
	LoginStore   limiter.Store
	InputLimiter ratelimit.Allower
	Locker       lock.Locker
	Sessions     session.Store
	Denylist     auth.Denylist
	Idem         common.Idem
	Probes       map[string]health.Probe
}

// Options tweak Build for callers that manage their own clients.
type Options struct {
	Logger         zerolog.Logger
	MetricsEnabled bool
	PingTimeout    time.Duration
}

// Build connects to Redis when configured and constructs every store.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Dependencies, error) {
	if !cfg.UsesRedis() {
		return buildMemory(cfg), nil
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		opts.Logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if opts.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			opts.Logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	deps, err := buildRedis(client, cfg, opts.Logger)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return deps, nil
}

func buildRedis(client *redis.Client, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	store, err := limiterredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: loginLimiterPrefix})
	if err != nil {
		return nil, fmt.Errorf("limiter store: %w", err)
	}
	sessions := session.GuardedStore{
		Store: session.NewRedisStore(client),
		Breaker: resilience.NewBreaker(resilience.Options{
			Target:       "redis_sessions",
			MinRequests:  10,
			FailureRatio: 0.5,
			OpenFor:      10 * time.Second,
			Logger:       &logger,
		}),
	}
	return &Dependencies{
		Redis:        client,
		LoginStore:   store,
		InputLimiter: ratelimit.Sliding{Client: client, Prefix: inputLimiterPrefix},
		Locker:       lock.Redis{R: client, Prefix: "lock:"},
		Sessions:     sessions,
		Denylist:     auth.RedisDenylist{R: client, Prefix: "auth:revoked:"},
		Idem:         common.Idem{R: client, TTL: cfg.IdempotencyTTL},
		Probes:       map[string]health.Probe{"redis": health.RedisProbe(client)},
	}, nil
}

func buildMemory(cfg *config.Config) *Dependencies {
	return &Dependencies{
		LoginStore:   ratelimit.NewMemoryFixed(loginLimiterPrefix).Store,
		InputLimiter: ratelimit.NewMemoryFixed(inputLimiterPrefix),
		Locker:       lock.NewLocal(),
		Sessions:     session.NewMemoryStore(time.Minute),
		Denylist:     auth.NewMemoryDenylist(),
		Idem:         common.Idem{Local: cache.New(cfg.IdempotencyTTL, time.Minute), TTL: cfg.IdempotencyTTL},
		Probes:       map[string]health.Probe{},
	}
}

// Close releases the Redis client, if any.
func (d *Dependencies) Close() error {
	if d == nil || d.Redis == nil {
		return nil
	}
	return d.Redis.Close()
}
