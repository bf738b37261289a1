package adapter

import (
	"context"
	"fmt"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// RedisClient defines the interface for Redis operations to enable mocking
//
//go:generate mockgen -source=redis.go -destination=../mocks/redis.go -package=mocks -mock_names=RedisClient=MockRedisClient,RedisRateLimiter=MockRedisRateLimiter
type RedisClient interface {
	// Ping checks if Redis is reachable
	Ping(ctx context.Context) error

	// NewRateLimiter creates a new rate limiter using this Redis client
	NewRateLimiter() RedisRateLimiter

	// Close closes the Redis connection
	Close() error
}

// RealRedisClient wraps the actual Redis client
type RealRedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a Redis client from a redis:// URL
func NewRedisClient(url string) (RedisClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return &RealRedisClient{client: redis.NewClient(opts)}, nil
}

func (r *RealRedisClient) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RealRedisClient) NewRateLimiter() RedisRateLimiter {
	return &RealRateLimiter{limiter: redis_rate.NewLimiter(r.client)}
}

func (r *RealRedisClient) Close() error {
	return r.client.Close()
}

// RedisRateLimiter defines the interface for distributed rate limiting operations
type RedisRateLimiter interface {
	// Allow checks if a request is allowed based on the rate limit
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

// RealRateLimiter wraps the redis_rate.Limiter
type RealRateLimiter struct {
	limiter *redis_rate.Limiter
}

func (r *RealRateLimiter) Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	return r.limiter.Allow(ctx, key, limit)
}
