package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	limiter "github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

const (
	rateLimitMessage = "Too many requests from this IP, please try again in an hour!"
	rateLimitPrefix  = "ratelimit"
)

// NewMemoryLimiter allows max requests per key and window in this process.
func NewMemoryLimiter(max int, window time.Duration) *limiter.Limiter {
	store := memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		CleanUpInterval: window,
	})
	return limiter.New(store, limiter.Rate{Period: window, Limit: int64(max)})
}

// NewRedisLimiter shares the window counters of every API instance through
// Redis.
func NewRedisLimiter(client *redis.Client, max int, window time.Duration) (*limiter.Limiter, error) {
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   rateLimitPrefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit store: %w", err)
	}
	return limiter.New(store, limiter.Rate{Period: window, Limit: int64(max)}), nil
}

// RateLimit counts requests per client IP. Store failures let the request
// through.
func RateLimit(l *limiter.Limiter, log *zap.Logger) gin.HandlerFunc {
	return mgin.NewMiddleware(l,
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			c.JSON(http.StatusTooManyRequests, gin.H{"status": "fail", "message": rateLimitMessage})
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
		}),
	)
}
