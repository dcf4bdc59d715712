package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisKeyPrefix    = "lock:"
	defaultRetryDelay = 25 * time.Millisecond
	unlockTimeout     = 2 * time.Second
)

// удаляем ключ, только если значение всё ещё наше
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis блокировка между несколькими экземплярами сервиса (SET NX PX + токен)
type Redis struct {
	client     redis.UniversalClient
	ttl        time.Duration
	retryDelay time.Duration
	logger     *zap.Logger
}

func NewRedis(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *Redis {
	return &Redis{
		client:     client,
		ttl:        ttl,
		retryDelay: defaultRetryDelay,
		logger:     logger,
	}
}

// Lock ждёт освобождения ключа до истечения ctx
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	for {
		acquired, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis setnx %s: %w", redisKey, err)
		}
		if acquired {
			r.logger.Debug("Redis lock acquired",
				zap.String("key", redisKey),
				zap.Duration("ttl", r.ttl))
			return r.unlockFunc(redisKey, token), nil
		}

		timer := time.NewTimer(r.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (r *Redis) unlockFunc(redisKey, token string) func() {
	return func() {
		// освобождаем даже если контекст запроса уже отменён
		ctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancel()

		deleted, err := unlockScript.Run(ctx, r.client, []string{redisKey}, token).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			r.logger.Error("Failed to release redis lock",
				zap.String("key", redisKey),
				zap.Error(err))
			return
		}
		if deleted == 0 {
			r.logger.Warn("Redis lock expired before release",
				zap.String("key", redisKey))
		}
	}
}
