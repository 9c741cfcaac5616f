package redisstate

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// incrWindowScript 原子地递增计数，并在窗口的第一次请求时设置过期时间
var incrWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisRateLimiter 基于固定窗口计数器的限流器
type RedisRateLimiter struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRateLimiter 创建 RedisRateLimiter 实例
func NewRedisRateLimiter(client *redis.Client, keyPrefix string) *RedisRateLimiter {
	if client == nil {
		panic("redis client cannot be nil for RedisRateLimiter")
	}
	if keyPrefix == "" {
		keyPrefix = "blvck:"
	}
	return &RedisRateLimiter{client: client, keyPrefix: keyPrefix}
}

// CheckRateLimit 递增 key 的计数，返回是否超过 limit。
// 窗口从第一次请求开始计算，窗口内的后续请求不会延长过期时间。
func (r *RedisRateLimiter) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	fullKey := r.keyPrefix + "ratelimit:" + key

	count, err := incrWindowScript.Run(ctx, r.client, []string{fullKey}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit check failed on key %s: %w", fullKey, err)
	}
	return count > int64(limit), nil
}
