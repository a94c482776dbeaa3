package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/teamspace/internal/observability/metrics"
	"github.com/aryan0dhankhar/teamspace/internal/reliability/circuitbreaker"
)

// WindowCounter increments a counter that expires after window.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisLimiter is a fixed window limiter shared by every replica.
type RedisLimiter struct {
	counter WindowCounter
	maxReqs int
	window  time.Duration
	prefix  string
	now     func() time.Time
}

// NewRedisLimiter allows maxRequests per window for every key.
func NewRedisLimiter(counter WindowCounter, maxRequests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		counter: counter,
		maxReqs: maxRequests,
		window:  window,
		prefix:  "ratelimit:",
		now:     time.Now,
	}
}

// Check records a request under key.
func (l *RedisLimiter) Check(ctx context.Context, key string) (bool, error) {
	slot := l.now().UnixNano() / int64(l.window)
	n, err := l.counter.IncrWindow(ctx, fmt.Sprintf("%s%s:%d", l.prefix, key, slot), l.window)
	if err != nil {
		return false, err
	}
	return n <= int64(l.maxReqs), nil
}

// Guarded prefers the shared Redis budget and falls back to the local one
// while Redis is failing.
type Guarded struct {
	remote  *RedisLimiter
	local   *MemoryLimiter
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewGuarded builds a limiter. remote may be nil, in which case only the
// local limiter is used.
func NewGuarded(remote *RedisLimiter, local *MemoryLimiter, breaker *circuitbreaker.CircuitBreaker, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	if breaker == nil {
		breaker = circuitbreaker.New("ratelimit_redis", circuitbreaker.DefaultConfig(), logger)
	}
	return &Guarded{remote: remote, local: local, breaker: breaker, logger: logger}
}

// Allow implements Allower.
func (g *Guarded) Allow(ctx context.Context, key string) bool {
	if key == "" {
		return true
	}
	if g.remote == nil {
		return g.allowLocal(ctx, key)
	}

	var allowed bool
	err := g.breaker.Execute(func() error {
		ok, err := g.remote.Check(ctx, key)
		allowed = ok
		return err
	})
	if err != nil {
		if !errors.Is(err, circuitbreaker.ErrOpen) {
			g.logger.Warn("redis rate limit check failed, using local limiter",
				slog.String("error", err.Error()),
			)
		}
		return g.allowLocal(ctx, key)
	}
	if !allowed {
		metrics.ObserveRateLimited("redis")
	}
	return allowed
}

func (g *Guarded) allowLocal(ctx context.Context, key string) bool {
	ok := g.local.Allow(ctx, key)
	if !ok {
		metrics.ObserveRateLimited("memory")
	}
	return ok
}
