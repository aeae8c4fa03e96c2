package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"medicare-server/internal/apperror"
	"medicare-server/internal/utils"
)

// Counter is a fixed-window hit counter shared by all server instances.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Decr(ctx context.Context, key string) error
}

// RedisCounter keeps counters in Redis with INCR and EXPIRE.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter connects to url, e.g. redis://localhost:6379/0.
func NewRedisCounter(ctx context.Context, url string) (*RedisCounter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisCounter{client: client}, nil
}

func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (r *RedisCounter) Decr(ctx context.Context, key string) error {
	return r.client.Decr(ctx, key).Err()
}

func (r *RedisCounter) Close() error {
	return r.client.Close()
}

// RateLimitOptions configures one limiter.
type RateLimitOptions struct {
	Scope   string
	Max     int
	Window  time.Duration
	Message string
	// SkipSuccessful stops counting requests that end with a status below 400.
	SkipSuccessful bool
}

// RateLimit limits requests per client IP. A nil counter disables limiting,
// and counter failures let the request through.
func RateLimit(counter Counter, opts RateLimitOptions, logger zerolog.Logger) gin.HandlerFunc {
	if counter == nil || opts.Max <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if opts.Message == "" {
		opts.Message = "Too many requests from this IP, please try again later."
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := "ratelimit:" + opts.Scope + ":" + c.ClientIP()

		n, err := counter.Incr(ctx, key, opts.Window)
		if err != nil {
			logger.Warn().Err(err).Str("scope", opts.Scope).Msg("rate limiter unavailable")
			c.Next()
			return
		}

		remaining := int64(opts.Max) - n
		if remaining < 0 {
			remaining = 0
		}
		c.Header("RateLimit-Limit", strconv.Itoa(opts.Max))
		c.Header("RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if n > int64(opts.Max) {
			c.Header("Retry-After", strconv.Itoa(int(opts.Window.Seconds())))
			utils.Abort(c, apperror.New(http.StatusTooManyRequests, opts.Message))
			return
		}

		c.Next()

		// Errors are rendered by ErrorHandler after this returns, so the
		// recorded error is the failure signal, not the written status.
		if opts.SkipSuccessful && len(c.Errors) == 0 && c.Writer.Status() < http.StatusBadRequest {
			if err := counter.Decr(ctx, key); err != nil {
				logger.Warn().Err(err).Str("scope", opts.Scope).Msg("rate limiter decrement failed")
			}
		}
	}
}
