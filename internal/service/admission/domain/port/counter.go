package port

import (
	"context"
	"time"
)

// CounterStore 是快速存储中原子计数器的出站端口。
// 正确性完全依赖 GetAndAdd 在单 key 上的线性一致语义，
// 绝不允许用读-改-写模拟。
type CounterStore interface {
	// Seed 把计数器设置为一个固定值（活动发布时播种）。
	Seed(ctx context.Context, key string, value int64) error

	// GetAndAdd 原子地加 delta 并返回新值。delta 可以为负。
	GetAndAdd(ctx context.Context, key string, delta int64) (int64, error)

	// Exists 判断计数器是否存在。调用方不得把负值当作不存在：
	// 补偿窗口内计数器可能短暂为负。
	Exists(ctx context.Context, key string) (bool, error)
}

// MarkerStore 维护售罄这类布尔标识。
type MarkerStore interface {
	SetMarker(ctx context.Context, key string) error
	ClearMarker(ctx context.Context, key string) error
	HasMarker(ctx context.Context, key string) (bool, error)
}

// TokenStore 存取一次性购买令牌。
type TokenStore interface {
	// SaveToken 覆盖写入令牌并设置过期时间。
	SaveToken(ctx context.Context, key, token string, ttl time.Duration) error

	// ConsumeToken 原子地比较并删除令牌。令牌是一次性凭证，
	// 校验通过即消费，重放同一令牌必须失败。
	ConsumeToken(ctx context.Context, key, token string) (bool, error)
}
