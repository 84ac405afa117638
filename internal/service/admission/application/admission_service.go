package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"seckill/internal/pkg/logger"
	"seckill/internal/service/admission/domain"
	"seckill/internal/service/admission/domain/port"
	"seckill/internal/service/admission/metrics"
)

// AdmissionConfig 收拢准入闸门的可调参数。
type AdmissionConfig struct {
	// AdmissionMultiplier 决定大闸容量：库存 * 倍数。默认 5。
	AdmissionMultiplier int
	TokenTTL            time.Duration
}

// AdmissionDeps 是 AdmissionService 的全部出站依赖。
type AdmissionDeps struct {
	Promos   port.PromotionRepository
	Products port.ProductReader
	Buyers   port.BuyerReader
	Counters port.CounterStore
	Markers  port.MarkerStore
	Tokens   port.TokenStore
	Ledger   port.StockLedgerRepository
	Rules    port.RuleEngine
	Locks    port.Locker
	Config   AdmissionConfig
}

// AdmissionService 实现准入闸门：发布活动、发放与校验购买令牌。
type AdmissionService struct {
	deps AdmissionDeps

	// now 可替换，测试里用来拨时钟。
	now func() time.Time
}

func NewAdmissionService(deps AdmissionDeps) *AdmissionService {
	if deps.Config.AdmissionMultiplier <= 0 {
		deps.Config.AdmissionMultiplier = 5
	}
	if deps.Config.TokenTTL <= 0 {
		deps.Config.TokenTTL = 5 * time.Minute
	}
	return &AdmissionService{deps: deps, now: time.Now}
}

// PublishPromo 发布活动：把台账库存快照进预占计数器，
// 并把大闸播种为 库存 * 倍数。活动期间不再与台账对账。
// 整个播种过程放在 per-promo 的分布式锁里，避免两个实例交错写入两个计数器。
func (s *AdmissionService) PublishPromo(ctx context.Context, promoID int64) error {
	ctx, span := otel.Tracer("admission").Start(ctx, "admission.PublishPromo")
	defer span.End()
	span.SetAttributes(attribute.Int64("promo.id", promoID))

	promo, err := s.deps.Promos.FindByID(ctx, promoID)
	if err != nil {
		return err
	}

	return s.deps.Locks.WithLock(fmt.Sprintf("promo-%d", promoID), func() error {
		stock, err := s.deps.Ledger.GetStock(ctx, promo.ProductID)
		if err != nil {
			return fmt.Errorf("failed to load ledger stock for product %d: %w", promo.ProductID, err)
		}

		// 假设活动期间台账库存不会变化
		if err := s.deps.Counters.Seed(ctx, domain.StockKey(promo.ProductID), int64(stock)); err != nil {
			return fmt.Errorf("failed to seed reservation counter: %w", err)
		}

		latch := int64(stock * s.deps.Config.AdmissionMultiplier)
		if err := s.deps.Counters.Seed(ctx, domain.LatchKey(promo.ProductID, promoID), latch); err != nil {
			return fmt.Errorf("failed to seed ticket latch: %w", err)
		}

		logger.Ctx(ctx).Info().
			Int64("promo_id", promoID).
			Int64("product_id", promo.ProductID).
			Int("stock", stock).
			Int64("latch", latch).
			Msg("promo published, counters seeded")
		return nil
	})
}

// IssueToken 发放购买令牌。令牌是稀缺资源：大闸扣到负数不做补偿，
// 负值本身就是发完了的信号。
// 活动未开始/已结束、商品或买家查不到、不满足资格规则时返回空令牌。
func (s *AdmissionService) IssueToken(ctx context.Context, promoID, productID, buyerID int64) (string, error) {
	ctx, span := otel.Tracer("admission").Start(ctx, "admission.IssueToken")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("promo.id", promoID),
		attribute.Int64("product.id", productID),
		attribute.Int64("buyer.id", buyerID),
	)

	// 售罄标识短路，避免必败的请求去冲击大闸
	soldOut, err := s.deps.Markers.HasMarker(ctx, domain.SoldOutKey(productID))
	if err != nil {
		return "", fmt.Errorf("failed to check sold-out marker: %w", err)
	}
	if soldOut {
		metrics.TokensRejected.WithLabelValues("sold_out").Inc()
		return "", domain.ErrStockExhausted
	}

	promo, err := s.deps.Promos.FindByID(ctx, promoID)
	if err != nil {
		metrics.TokensRejected.WithLabelValues("promo_not_found").Inc()
		return "", err
	}

	if status := promo.Status(s.now()); status != domain.PromoRunning {
		// 活动不在进行中是正常的业务拒绝，不是错误
		metrics.TokensRejected.WithLabelValues("not_running").Inc()
		logger.Ctx(ctx).Debug().
			Int64("promo_id", promoID).
			Stringer("status", status).
			Msg("token refused: promo not running")
		return "", nil
	}

	if _, err := s.deps.Products.GetDetail(ctx, productID); err != nil {
		metrics.TokensRejected.WithLabelValues("product_not_found").Inc()
		return "", err
	}
	if _, err := s.deps.Buyers.GetByID(ctx, buyerID); err != nil {
		metrics.TokensRejected.WithLabelValues("buyer_not_found").Inc()
		return "", err
	}

	if promo.EligibilityRule != "" && s.deps.Rules != nil {
		ok, err := s.deps.Rules.Evaluate(ctx, promo.EligibilityRule, map[string]interface{}{
			"buyer_id":   buyerID,
			"product_id": productID,
		})
		if err != nil {
			return "", fmt.Errorf("failed to evaluate eligibility rule: %w", err)
		}
		if !ok {
			metrics.TokensRejected.WithLabelValues("ineligible").Inc()
			return "", nil
		}
	}

	// 大闸：原子扣 1，扣穿不补
	remaining, err := s.deps.Counters.GetAndAdd(ctx, domain.LatchKey(productID, promoID), -1)
	if err != nil {
		return "", fmt.Errorf("failed to decrement ticket latch: %w", err)
	}
	if remaining < 0 {
		metrics.TokensRejected.WithLabelValues("latch_exhausted").Inc()
		return "", nil
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	key := domain.TokenKey(productID, promoID, buyerID)
	if err := s.deps.Tokens.SaveToken(ctx, key, token, s.deps.Config.TokenTTL); err != nil {
		return "", fmt.Errorf("failed to store purchase token: %w", err)
	}

	metrics.TokensIssued.Inc()
	return token, nil
}

// ValidateToken 校验并消费令牌。令牌是一次性的：校验通过即删除，
// 同一令牌的重放必然失败。
func (s *AdmissionService) ValidateToken(ctx context.Context, promoID, productID, buyerID int64, token string) error {
	if token == "" {
		return domain.ErrTokenInvalid
	}
	ok, err := s.deps.Tokens.ConsumeToken(ctx, domain.TokenKey(productID, promoID, buyerID), token)
	if err != nil {
		return fmt.Errorf("failed to consume purchase token: %w", err)
	}
	if !ok {
		return domain.ErrTokenInvalid
	}
	return nil
}
