package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"seckill/internal/service/admission/domain"
)

const mysqlErrDuplicateEntry = 1062

// GormStockLogRepository 维护库存流水的状态机。
// 状态迁移全部走带状态谓词的 UPDATE，行级隔离由数据库保证。
type GormStockLogRepository struct {
	db *gorm.DB
}

func NewGormStockLogRepository(db *gorm.DB) *GormStockLogRepository {
	return &GormStockLogRepository{db: db}
}

func (r *GormStockLogRepository) Create(ctx context.Context, log *domain.StockLog) error {
	model := StockLogModel{
		StockLogID: log.StockLogID,
		ProductID:  log.ProductID,
		Quantity:   log.Quantity,
		Status:     int8(log.Status),
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return fmt.Errorf("stock log %s already exists: %w", log.StockLogID, err)
		}
		return err
	}
	return nil
}

func (r *GormStockLogRepository) FindByID(ctx context.Context, stockLogID string) (*domain.StockLog, error) {
	var model StockLogModel
	err := r.db.WithContext(ctx).Where("stock_log_id = ?", stockLogID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrStockLogNotFound
		}
		return nil, err
	}
	return &domain.StockLog{
		StockLogID: model.StockLogID,
		ProductID:  model.ProductID,
		Quantity:   model.Quantity,
		Status:     domain.StockLogStatus(model.Status),
		AppliedAt:  model.AppliedAt,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}, nil
}

// TransitionStatus 带状态谓词更新：UPDATE ... WHERE status = from。
// 没更新到行时区分三种情况：流水不存在、已经到了终态、状态不匹配。
func (r *GormStockLogRepository) TransitionStatus(ctx context.Context, stockLogID string, from, to domain.StockLogStatus) error {
	res := r.db.WithContext(ctx).Model(&StockLogModel{}).
		Where("stock_log_id = ? AND status = ?", stockLogID, int8(from)).
		Update("status", int8(to))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	current, err := r.FindByID(ctx, stockLogID)
	if err != nil {
		return err
	}
	if current.Status.Terminal() {
		return domain.ErrStockLogFinalized
	}
	return fmt.Errorf("stock log %s in status %d, expected %d", stockLogID, current.Status, from)
}
