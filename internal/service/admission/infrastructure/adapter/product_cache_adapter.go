package adapter

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"seckill/internal/pkg/logger"
	"seckill/internal/pkg/redis"
	"seckill/internal/service/admission/domain"
	"seckill/internal/service/admission/domain/port"
)

// CachedProductReader 给 ProductReader 套一层有界 TTL 的 redis 缓存。
// 令牌发放路径上的商品校验全部走这里，数据库只承担缓存未命中的流量。
type CachedProductReader struct {
	inner       port.ProductReader
	redisClient *redis.Client
	ttl         time.Duration
}

func NewCachedProductReader(inner port.ProductReader, redisClient *redis.Client, ttl time.Duration) *CachedProductReader {
	return &CachedProductReader{
		inner:       inner,
		redisClient: redisClient,
		ttl:         ttl,
	}
}

func (r *CachedProductReader) GetDetail(ctx context.Context, productID int64) (*domain.Product, error) {
	key := domain.ProductCacheKey(productID)

	data, err := r.redisClient.GetClient().Get(ctx, key).Bytes()
	if err == nil {
		var product domain.Product
		if uerr := json.Unmarshal(data, &product); uerr == nil {
			return &product, nil
		}
		// 缓存内容解不开就当未命中，回源刷新
	} else if err != goredis.Nil {
		logger.Ctx(ctx).Warn().Err(err).Int64("product_id", productID).Msg("product cache read failed")
	}

	product, err := r.inner.GetDetail(ctx, productID)
	if err != nil {
		return nil, err
	}

	if data, merr := json.Marshal(product); merr == nil {
		if serr := r.redisClient.GetClient().Set(ctx, key, data, r.ttl).Err(); serr != nil {
			logger.Ctx(ctx).Warn().Err(serr).Int64("product_id", productID).Msg("product cache write failed")
		}
	}
	return product, nil
}
