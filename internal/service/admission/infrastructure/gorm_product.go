package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"seckill/internal/service/admission/domain"
)

// GormProductRepository 读取商品详情，库存字段取自台账表。
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) GetDetail(ctx context.Context, productID int64) (*domain.Product, error) {
	var info ProductInfoModel
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&info).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}

	var stock ProductStockModel
	err = r.db.WithContext(ctx).Where("product_id = ?", productID).First(&stock).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}

	return &domain.Product{
		ProductID:    info.ProductID,
		ProductName:  info.ProductName,
		ProductPrice: info.ProductPrice,
		ProductSales: info.ProductSales,
		Stock:        stock.Stock,
		Status:       info.Status,
	}, nil
}

// GormBuyerRepository 是 BuyerReader 的 GORM 实现。
type GormBuyerRepository struct {
	db *gorm.DB
}

func NewGormBuyerRepository(db *gorm.DB) *GormBuyerRepository {
	return &GormBuyerRepository{db: db}
}

func (r *GormBuyerRepository) GetByID(ctx context.Context, buyerID int64) (*domain.Buyer, error) {
	var model BuyerInfoModel
	err := r.db.WithContext(ctx).Where("buyer_id = ?", buyerID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrBuyerNotFound
		}
		return nil, err
	}
	return &domain.Buyer{
		BuyerID:   model.BuyerID,
		BuyerName: model.BuyerName,
		Status:    model.Status,
	}, nil
}
