package domain

import "fmt"

// 快速存储的 key 布局。花括号 hash-tag 保证同一商品的 key
// 在 redis cluster 中落在同一个 slot 上。

// StockKey 是预占计数器的 key，活动发布时以台账库存播种。
func StockKey(productID int64) string {
	return fmt.Sprintf("seckill:stock:{%d}", productID)
}

// LatchKey 是令牌大闸计数器的 key，播种值为 库存 * 倍数。
func LatchKey(productID, promoID int64) string {
	return fmt.Sprintf("seckill:latch:{%d}:%d", productID, promoID)
}

// TokenKey 存放某个买家在某场活动中持有的购买令牌，带 TTL。
func TokenKey(productID, promoID, buyerID int64) string {
	return fmt.Sprintf("seckill:token:{%d}:%d:%d", productID, promoID, buyerID)
}

// SoldOutKey 是售罄标识，存在即表示不必再去碰大闸。
func SoldOutKey(productID int64) string {
	return fmt.Sprintf("seckill:soldout:{%d}", productID)
}

// ProductCacheKey 是商品详情的缓存 key，带 TTL。
func ProductCacheKey(productID int64) string {
	return fmt.Sprintf("product:detail:{%d}", productID)
}
