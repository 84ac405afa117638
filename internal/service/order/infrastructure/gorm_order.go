package infrastructure

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"seckill/internal/service/order/domain"
)

const mysqlErrDuplicateEntry = 1062

// OrderInfoModel 对应 order_info 表。stock_log_id 上有唯一索引，
// 同一条库存流水重复落单会撞 1062。
type OrderInfoModel struct {
	OrderID    string `gorm:"column:order_id;primaryKey;size:64"`
	BuyerID    int64  `gorm:"column:buyer_id;index"`
	ProductID  int64  `gorm:"column:product_id;index"`
	Quantity   int    `gorm:"column:quantity"`
	PromoID    int64  `gorm:"column:promo_id"`
	StockLogID string `gorm:"column:stock_log_id;uniqueIndex;size:64"`
	CreatedAt  time.Time
}

func (OrderInfoModel) TableName() string { return "order_info" }

type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	model := OrderInfoModel{
		OrderID:    order.OrderID,
		BuyerID:    order.BuyerID,
		ProductID:  order.ProductID,
		Quantity:   order.Quantity,
		PromoID:    order.PromoID,
		StockLogID: order.StockLogID,
	}
	err := r.db.WithContext(ctx).Create(&model).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return domain.ErrDuplicateOrder
		}
		return err
	}
	return nil
}
