package infrastructure

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"seckill/internal/service/admission/domain"
)

// GormStockLedgerRepository 访问库存台账。
// 扣减和流水认领放在同一个数据库事务里，保证重投递下恰好应用一次。
type GormStockLedgerRepository struct {
	db *gorm.DB
}

func NewGormStockLedgerRepository(db *gorm.DB) *GormStockLedgerRepository {
	return &GormStockLedgerRepository{db: db}
}

func (r *GormStockLedgerRepository) GetStock(ctx context.Context, productID int64) (int, error) {
	var model ProductStockModel
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.ErrProductNotFound
		}
		return 0, err
	}
	return model.Stock, nil
}

// ApplyDecrement 先认领流水（applied_at 从 NULL 置为当前时间），
// 认领不到且流水存在说明是重投递，直接跳过；认领到了再扣台账，
// 扣减带 stock >= ? 谓词，台账永远不会为负。扣减失败整个事务回滚，
// 认领也一并撤销，消息可以安全重投。
//
// 认领只看 applied_at，不看状态：消息对消费者可见本身就意味着生产方
// 已提交。生产方的 INIT→COMMIT 迁移可能因为瞬时故障丢失，这时流水
// 停在 INIT 但消息照常投出，按状态过滤会把这笔扣减当成重投递吞掉。
func (r *GormStockLedgerRepository) ApplyDecrement(ctx context.Context, stockLogID string, productID int64, quantity int) (bool, error) {
	var applied bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&StockLogModel{}).
			Where("stock_log_id = ? AND applied_at IS NULL", stockLogID).
			Update("applied_at", time.Now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&StockLogModel{}).
				Where("stock_log_id = ?", stockLogID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				// 流水不存在是异常而不是重投递，报错让消息重投
				return domain.ErrStockLogNotFound
			}
			applied = false
			return nil
		}

		res = tx.Model(&ProductStockModel{}).
			Where("product_id = ? AND stock >= ?", productID, quantity).
			Update("stock", gorm.Expr("stock - ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrLedgerInsufficient
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}
