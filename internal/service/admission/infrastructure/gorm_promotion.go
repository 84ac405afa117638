package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"seckill/internal/service/admission/domain"
)

// GormPromotionRepository 是 PromotionRepository 的 GORM 实现。
type GormPromotionRepository struct {
	db *gorm.DB
}

func NewGormPromotionRepository(db *gorm.DB) *GormPromotionRepository {
	return &GormPromotionRepository{db: db}
}

func (r *GormPromotionRepository) FindByID(ctx context.Context, promoID int64) (*domain.Promotion, error) {
	var model PromoInfoModel
	err := r.db.WithContext(ctx).Where("promo_id = ?", promoID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPromoNotFound
		}
		return nil, err
	}
	return &domain.Promotion{
		PromoID:         model.PromoID,
		ProductID:       model.ProductID,
		PromoName:       model.PromoName,
		EligibilityRule: model.EligibilityRule,
		StartTime:       model.StartTime,
		EndTime:         model.EndTime,
	}, nil
}
