package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// compare-and-delete so a holder never frees a lock that expired and was
// taken by someone else.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// RedisLocker is a Locker shared by every process pointed at the same Redis.
type RedisLocker struct {
	client *redis.Client
	log    *zap.Logger
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

func NewRedisLocker(client *redis.Client, log *zap.Logger) *RedisLocker {
	return &RedisLocker{
		client: client,
		log:    log,
		prefix: "lock:",
		ttl:    10 * time.Second,
		retry:  25 * time.Millisecond,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() {
				// Release must not depend on a request context that may be done.
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				err := unlockScript.Run(ctx, l.client, []string{k}, token).Err()
				if err != nil && !errors.Is(err, redis.Nil) {
					l.log.Warn("release lock", zap.String("key", k), zap.Error(err))
				}
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
