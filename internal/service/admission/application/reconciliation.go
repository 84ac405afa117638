package application

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"seckill/internal/pkg/logger"
	"seckill/internal/service/admission/domain"
	"seckill/internal/service/admission/domain/port"
	"seckill/internal/service/admission/metrics"
)

// ReconciliationService 把已提交的扣减消息落到库存台账。
// 消费是 at-least-once 的，幂等由台账仓储按流水号保证。
type ReconciliationService struct {
	ledger port.StockLedgerRepository
}

func NewReconciliationService(ledger port.StockLedgerRepository) *ReconciliationService {
	return &ReconciliationService{ledger: ledger}
}

// ApplyDecrement 处理一条扣减消息。
// 结构不合法 → domain.ErrMalformedMessage（数据错误，调用方跳过消息）。
// 重投递 → 幂等护栏命中，静默成功。
func (s *ReconciliationService) ApplyDecrement(ctx context.Context, msg domain.StockDecrementMessage) error {
	ctx, span := otel.Tracer("reconciler").Start(ctx, "reconciler.ApplyDecrement")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("product.id", msg.ProductID),
		attribute.String("stock_log.id", msg.StockLogID),
	)

	if err := msg.Validate(); err != nil {
		return err
	}

	applied, err := s.ledger.ApplyDecrement(ctx, msg.StockLogID, msg.ProductID, msg.Quantity)
	if err != nil {
		if errors.Is(err, domain.ErrLedgerInsufficient) {
			// 台账扣穿说明预占层出了问题，必须告警而不是吞掉
			logger.Ctx(ctx).Error().
				Int64("product_id", msg.ProductID).
				Int("quantity", msg.Quantity).
				Str("stock_log_id", msg.StockLogID).
				Msg("ledger decrement would go negative")
		}
		return fmt.Errorf("failed to apply ledger decrement: %w", err)
	}

	if !applied {
		metrics.ReconcileDuplicates.Inc()
		logger.Ctx(ctx).Debug().
			Str("stock_log_id", msg.StockLogID).
			Msg("decrement already applied, skipping redelivery")
		return nil
	}

	metrics.ReconcileApplied.Inc()
	return nil
}
