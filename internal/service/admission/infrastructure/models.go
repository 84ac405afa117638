package infrastructure

import "time"

// ProductInfoModel 是商品信息在数据库中的表示。
type ProductInfoModel struct {
	ProductID    int64 `gorm:"primaryKey;column:product_id"`
	ProductName  string
	ProductPrice float64
	ProductSales int
	Status       int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ProductInfoModel) TableName() string {
	return "product_info"
}

// ProductStockModel 是库存台账，只有对账消费者会扣它。
type ProductStockModel struct {
	ProductID int64 `gorm:"primaryKey;column:product_id"`
	Stock     int
	UpdatedAt time.Time
}

func (ProductStockModel) TableName() string {
	return "product_stock"
}

// PromoInfoModel 是活动记录在数据库中的表示。
type PromoInfoModel struct {
	PromoID         int64 `gorm:"primaryKey;column:promo_id"`
	ProductID       int64
	PromoName       string
	EligibilityRule string `gorm:"type:text"`
	StartTime       time.Time
	EndTime         time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (PromoInfoModel) TableName() string {
	return "promo_info"
}

// BuyerInfoModel 是买家信息在数据库中的表示。
type BuyerInfoModel struct {
	BuyerID   int64 `gorm:"primaryKey;column:buyer_id"`
	BuyerName string
	Status    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (BuyerInfoModel) TableName() string {
	return "buyer_info"
}

// StockLogModel 是库存流水。status: 1=INIT 2=COMMIT 3=ROLLBACK。
// applied_at 非空表示扣减已作用到台账。
type StockLogModel struct {
	StockLogID string `gorm:"primaryKey;column:stock_log_id;type:varchar(64)"`
	ProductID  int64  `gorm:"index"`
	Quantity   int
	Status     int8
	AppliedAt  *time.Time `gorm:"default:null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (StockLogModel) TableName() string {
	return "stock_log"
}
