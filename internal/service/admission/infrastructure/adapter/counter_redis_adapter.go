package adapter

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"seckill/internal/pkg/redis"
)

const consumeTokenScriptName = "consume_token"

// CounterRedisAdapter 用 redis 实现 CounterStore / MarkerStore / TokenStore。
// 计数器只用 INCRBY / DECRBY 这类原子命令，单 key 上天然线性一致。
type CounterRedisAdapter struct {
	redisClient *redis.Client
}

// NewCounterRedisAdapter 创建适配器并注册令牌消费脚本。
func NewCounterRedisAdapter(redisClient *redis.Client) (*CounterRedisAdapter, error) {
	if err := redisClient.LoadScriptFromContent(consumeTokenScriptName, consumeTokenScript); err != nil {
		return nil, fmt.Errorf("failed to load consume_token script: %w", err)
	}
	return &CounterRedisAdapter{redisClient: redisClient}, nil
}

func (a *CounterRedisAdapter) Seed(ctx context.Context, key string, value int64) error {
	return a.redisClient.GetClient().Set(ctx, key, value, 0).Err()
}

func (a *CounterRedisAdapter) GetAndAdd(ctx context.Context, key string, delta int64) (int64, error) {
	return a.redisClient.GetClient().IncrBy(ctx, key, delta).Result()
}

func (a *CounterRedisAdapter) Exists(ctx context.Context, key string) (bool, error) {
	n, err := a.redisClient.GetClient().Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (a *CounterRedisAdapter) SetMarker(ctx context.Context, key string) error {
	return a.redisClient.GetClient().Set(ctx, key, 1, 0).Err()
}

func (a *CounterRedisAdapter) ClearMarker(ctx context.Context, key string) error {
	return a.redisClient.GetClient().Del(ctx, key).Err()
}

func (a *CounterRedisAdapter) HasMarker(ctx context.Context, key string) (bool, error) {
	n, err := a.redisClient.GetClient().Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (a *CounterRedisAdapter) SaveToken(ctx context.Context, key, token string, ttl time.Duration) error {
	return a.redisClient.GetClient().Set(ctx, key, token, ttl).Err()
}

// ConsumeToken 比较并删除，整个动作在 Lua 脚本里原子完成。
func (a *CounterRedisAdapter) ConsumeToken(ctx context.Context, key, token string) (bool, error) {
	result, err := a.redisClient.RunScript(ctx, consumeTokenScriptName, []string{key}, token)
	if err != nil {
		if err == goredis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to run consume_token script: %w", err)
	}
	code, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected result type from Lua script: %T", result)
	}
	return code == 1, nil
}

var consumeTokenScript = `
-- KEYS[1]: 令牌 key, 例如 seckill:token:{1001}:2:3
-- ARGV[1]: 买家出示的令牌

local stored = redis.call('get', KEYS[1])
if stored and stored == ARGV[1] then
    -- 令牌是一次性的，校验通过立即删除
    redis.call('del', KEYS[1])
    return 1
end
return 0
`
