// Package ratelimit limits callers of the mutating API routes. Limits are
// shared across instances through redis and fall back to a per-instance limiter
// while redis is unreachable.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ff-name-registry/internal/adapter"
	"github.com/feral-file/ff-name-registry/internal/config"
	"github.com/feral-file/ff-name-registry/internal/logger"
)

// ErrClosed is returned by Allow after Close
var ErrClosed = errors.New("rate limiter is closed")

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter defines the interface for per-caller rate limiting
//
//go:generate mockgen -source=limiter.go -destination=../mocks/ratelimit.go -package=mocks -mock_names=Limiter=MockRateLimiter
type Limiter interface {
	// Allow consumes one request of the caller identified by key
	Allow(ctx context.Context, key string) (Decision, error)

	// Close stops the health monitor and closes the redis connection
	Close() error
}

type limiter struct {
	config         config.RateLimitConfig
	redis          adapter.RedisClient
	distributed    adapter.RedisRateLimiter
	clock          adapter.Clock
	limit          redis_rate.Limit
	mu             sync.Mutex
	local          map[string]*rate.Limiter
	redisAvailable atomic.Bool
	closed         atomic.Bool
	closeOnce      sync.Once
	done           chan struct{}
}

// NewLimiter creates a limiter backed by rc
func NewLimiter(cfg config.RateLimitConfig, rc adapter.RedisClient, clock adapter.Clock) (Limiter, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Test Redis connectivity
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisAvailable := true
	if err := rc.Ping(ctx); err != nil {
		redisAvailable = false
		if !cfg.EnableLocalFallback {
			return nil, fmt.Errorf("redis unavailable and fallback disabled: %w", err)
		}
		logger.Warn("Redis unavailable, will use local fallback", zap.Error(err))
	}

	l := &limiter{
		config:      cfg,
		redis:       rc,
		distributed: rc.NewRateLimiter(),
		clock:       clock,
		limit: redis_rate.Limit{
			Rate:   cfg.RequestsPerMinute,
			Burst:  cfg.Burst,
			Period: time.Minute,
		},
		local: make(map[string]*rate.Limiter),
		done:  make(chan struct{}),
	}
	l.redisAvailable.Store(redisAvailable)

	go l.monitorRedisHealth()

	logger.Info("Rate limiter initialized",
		zap.Int("requests_per_minute", cfg.RequestsPerMinute),
		zap.Int("burst", cfg.Burst),
		zap.Bool("redis_available", redisAvailable),
		zap.Bool("local_fallback", cfg.EnableLocalFallback),
	)

	return l, nil
}

// Allow implements Limiter
func (l *limiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.closed.Load() {
		return Decision{}, ErrClosed
	}

	if l.redisAvailable.Load() {
		res, err := l.distributed.Allow(ctx, l.config.RedisKeyPrefix+key, l.limit)
		if err == nil {
			return Decision{Allowed: res.Allowed > 0, Remaining: res.Remaining, RetryAfter: res.RetryAfter}, nil
		}
		if ctx.Err() != nil {
			return Decision{}, ctx.Err()
		}

		// Redis error - mark as unavailable until the health monitor sees it back
		l.redisAvailable.Store(false)
		if !l.config.EnableLocalFallback {
			return Decision{}, fmt.Errorf("redis rate limiter unavailable: %w", err)
		}
		logger.WarnCtx(ctx, "Redis rate limiter error, falling back to local", zap.Error(err))
	}

	if !l.config.EnableLocalFallback {
		return Decision{}, errors.New("redis rate limiter unavailable")
	}
	return l.allowLocal(key), nil
}

func (l *limiter) allowLocal(key string) Decision {
	now := l.clock.Now()
	lim := l.localLimiter(key)

	r := lim.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{Allowed: false, RetryAfter: delay}
	}
	return Decision{Allowed: true, Remaining: int(lim.TokensAt(now))}
}

func (l *limiter) localLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.local[key]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.config.RequestsPerMinute)), l.config.Burst)
		l.local[key] = lim
	}
	return lim
}

// monitorRedisHealth periodically checks Redis health and updates availability status
func (l *limiter) monitorRedisHealth() {
	for {
		select {
		case <-l.done:
			return
		case <-l.clock.After(l.config.HealthCheckInterval):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := l.redis.Ping(ctx)
		cancel()

		available := err == nil
		if was := l.redisAvailable.Swap(available); !was && available {
			logger.Info("Redis connection restored")
		}
	}
}

// Close implements Limiter
func (l *limiter) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)

		if closeErr := l.redis.Close(); closeErr != nil {
			logger.Warn("Error closing Redis connection", zap.Error(closeErr))
			err = closeErr
		}
	})
	return err
}

// validateConfig validates and sets defaults for the configuration
func validateConfig(cfg *config.RateLimitConfig) error {
	if cfg.RequestsPerMinute <= 0 {
		return fmt.Errorf("requests_per_minute must be positive")
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerMinute
	}
	if cfg.RedisKeyPrefix == "" {
		cfg.RedisKeyPrefix = "ff:registry:limiter:"
	}
	if cfg.HealthCheckInterval <= 0 {
		cfg.HealthCheckInterval = 10 * time.Second
	}
	return nil
}
