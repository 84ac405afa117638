package port

import (
	"context"

	"seckill/internal/service/admission/domain"
)

// PromotionRepository 读取活动记录。
type PromotionRepository interface {
	// FindByID 找不到时返回 domain.ErrPromoNotFound。
	FindByID(ctx context.Context, promoID int64) (*domain.Promotion, error)
}

// ProductReader 读取商品详情（含台账库存），实现方可以带缓存。
type ProductReader interface {
	// GetDetail 找不到时返回 domain.ErrProductNotFound。
	GetDetail(ctx context.Context, productID int64) (*domain.Product, error)
}

// BuyerReader 读取买家信息。
type BuyerReader interface {
	// GetByID 找不到时返回 domain.ErrBuyerNotFound。
	GetByID(ctx context.Context, buyerID int64) (*domain.Buyer, error)
}

// StockLogRepository 维护库存流水的状态机。
type StockLogRepository interface {
	Create(ctx context.Context, log *domain.StockLog) error

	// FindByID 找不到时返回 domain.ErrStockLogNotFound。
	FindByID(ctx context.Context, stockLogID string) (*domain.StockLog, error)

	// TransitionStatus 只允许从 from 状态迁出；COMMIT / ROLLBACK 是终态，
	// 已终态的流水迁移返回 domain.ErrStockLogFinalized。
	TransitionStatus(ctx context.Context, stockLogID string, from, to domain.StockLogStatus) error
}

// StockLedgerRepository 访问持久库存台账。台账只在显式事务内变更。
type StockLedgerRepository interface {
	GetStock(ctx context.Context, productID int64) (int, error)

	// ApplyDecrement 在一个事务里先认领流水（applied_at 置位），再扣台账。
	// 流水已被认领时返回 applied=false 且无副作用——这是消费端重投递的幂等护栏。
	// 认领只以 applied_at 为准，不依赖流水状态：消息可见即代表已提交，
	// 即使生产方的状态迁移丢失也必须把扣减落下去。
	// 流水不存在返回 domain.ErrStockLogNotFound（按可重试错误处理），
	// 台账余额不足返回 domain.ErrLedgerInsufficient。
	ApplyDecrement(ctx context.Context, stockLogID string, productID int64, quantity int) (applied bool, err error)
}

// OrderCreator 是订单服务的出站端口，在事务消息的本地事务步骤中调用。
type OrderCreator interface {
	CreateOrder(ctx context.Context, draft domain.OrderDraft, promoID int64, stockLogID string) error
}

// RuleEngine 评估活动的资格规则表达式。
type RuleEngine interface {
	Evaluate(ctx context.Context, rule string, fact map[string]interface{}) (bool, error)
}

// Locker 把一段操作放在分布式锁内执行，resourceID 粒度互斥。
type Locker interface {
	WithLock(resourceID string, fn func() error) error
}
