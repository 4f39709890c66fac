package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sundayezeilo/shortlinks/internal/httpx"
)

// tokenBucket refills and spends one token atomically. Returns 1 when allowed.
var tokenBucket = redis.NewScript(`
	local key = KEYS[1]
	local capacity = tonumber(ARGV[1])
	local refill_rate = tonumber(ARGV[2])
	local refill_period = tonumber(ARGV[3])
	local now = tonumber(ARGV[4])

	local bucket = redis.call('HMGET', key, 'tokens', 'last_refill')
	local tokens = tonumber(bucket[1]) or capacity
	local last_refill = tonumber(bucket[2]) or now

	local elapsed = now - last_refill
	local periods = math.floor(elapsed / refill_period)
	if periods > 0 then
		tokens = math.min(capacity, tokens + (periods * refill_rate))
		last_refill = last_refill + (periods * refill_period)
	end

	local allowed = tokens > 0
	if allowed then
		tokens = tokens - 1
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill', last_refill)
	redis.call('EXPIRE', key, refill_period * 2)

	return allowed and 1 or 0
`)

// RateLimiterConfig holds the rate limiter configuration
type RateLimiterConfig struct {
	KeyPrefix    string        // Redis key prefix
	Capacity     int           // Maximum tokens in bucket
	RefillRate   int           // Tokens added per period
	RefillPeriod time.Duration // How often to refill tokens

	// TrustedProxies decides whose forwarding headers name the client.
	// Nil keys every request by its peer address.
	TrustedProxies *httpx.TrustedProxies
}

// RateLimiter is a Redis token bucket keyed by caller.
type RateLimiter struct {
	rdb     redis.Scripter
	config  RateLimiterConfig
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewRateLimiter(rdb redis.Scripter, config RateLimiterConfig, metrics *Metrics, logger *slog.Logger) *RateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "rate_limit:"
	}
	if config.RefillPeriod < time.Second {
		config.RefillPeriod = time.Second
	}

	return &RateLimiter{
		rdb:     rdb,
		config:  config,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Allow spends one token from key's bucket and reports whether one was available.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	result, err := tokenBucket.Run(ctx, rl.rdb, []string{rl.config.KeyPrefix + key},
		rl.config.Capacity,
		rl.config.RefillRate,
		int(rl.config.RefillPeriod.Seconds()),
		rl.now().Unix(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limiter: %w", err)
	}

	allowed := result == 1
	rl.metrics.limited(allowed)
	return allowed, nil
}

// Middleware limits requests per client IP with 429. When Redis fails the
// request is let through and the failure logged.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	retryAfter := strconv.Itoa(int(rl.config.RefillPeriod.Seconds()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, err := rl.Allow(r.Context(), rl.config.TrustedProxies.ClientIP(r))
		if err != nil {
			rl.logger.ErrorContext(r.Context(), "rate limiter unavailable",
				"request_id", httpx.GetRequestID(r.Context()),
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			w.Header().Set("Retry-After", retryAfter)
			httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited",
				"Too many requests, please try again later.", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
