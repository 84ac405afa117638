package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"seckill/internal/pkg/logger"
	"seckill/internal/service/admission/domain"
	"seckill/internal/service/admission/domain/port"
	"seckill/internal/service/admission/metrics"
)

// TransactionalDispatcher 用半提交协议发送台账扣减消息：
// 先发半消息（消费者不可见），再执行本地事务（创建订单），
// 根据结果 commit 或 rollback。生产方在确认前崩溃时，
// broker 会带着流水号回查 RecoveryCheck。
type TransactionalDispatcher struct {
	broker    port.HalfMessageBroker
	stockLogs port.StockLogRepository
	orders    port.OrderCreator
}

func NewTransactionalDispatcher(
	broker port.HalfMessageBroker,
	stockLogs port.StockLogRepository,
	orders port.OrderCreator,
) *TransactionalDispatcher {
	return &TransactionalDispatcher{
		broker:    broker,
		stockLogs: stockLogs,
		orders:    orders,
	}
}

// Dispatch 执行一次完整的事务消息流程。返回 nil 意味着订单已创建
// 且扣减消息终将对消费者可见；返回错误意味着消息已（或终将）被丢弃，
// 调用方应当释放预占。
func (d *TransactionalDispatcher) Dispatch(ctx context.Context, draft domain.OrderDraft, promoID int64) error {
	ctx, span := otel.Tracer("admission").Start(ctx, "dispatcher.Dispatch")
	defer span.End()

	// 流水先于一切落库：它是崩溃后唯一的恢复锚点
	stockLogID := strings.ReplaceAll(uuid.NewString(), "-", "")
	span.SetAttributes(attribute.String("stock_log.id", stockLogID))

	if err := d.stockLogs.Create(ctx, &domain.StockLog{
		StockLogID: stockLogID,
		ProductID:  draft.ProductID,
		Quantity:   draft.Quantity,
		Status:     domain.StockLogInit,
	}); err != nil {
		return fmt.Errorf("failed to create stock log: %w", err)
	}

	msg := domain.StockDecrementMessage{
		ProductID:  draft.ProductID,
		Quantity:   draft.Quantity,
		StockLogID: stockLogID,
	}
	handle, err := d.broker.SendHalfMessage(ctx, msg)
	if err != nil {
		// 半消息都没发出去，直接把流水置为回滚
		d.finalize(ctx, stockLogID, domain.StockLogRollback)
		return fmt.Errorf("failed to send half message: %w", err)
	}

	// 本地事务：创建订单
	if err := d.orders.CreateOrder(ctx, draft, promoID, stockLogID); err != nil {
		// 流水必须先落成 ROLLBACK 再向上报错——它是回查的唯一依据
		d.finalize(ctx, stockLogID, domain.StockLogRollback)
		if cerr := d.broker.Confirm(ctx, handle, port.OutcomeRollback); cerr != nil {
			logger.Ctx(ctx).Warn().Err(cerr).
				Str("stock_log_id", stockLogID).
				Msg("rollback confirm failed, recovery check will resolve it")
		}
		metrics.HalfMessages.WithLabelValues("rollback").Inc()
		return fmt.Errorf("order creation failed: %w", err)
	}

	d.finalize(ctx, stockLogID, domain.StockLogCommit)
	if cerr := d.broker.Confirm(ctx, handle, port.OutcomeCommit); cerr != nil {
		// 确认丢了也没关系：流水已是 COMMIT，回查会把消息放出去
		logger.Ctx(ctx).Warn().Err(cerr).
			Str("stock_log_id", stockLogID).
			Msg("commit confirm failed, recovery check will resolve it")
	}
	metrics.HalfMessages.WithLabelValues("commit").Inc()
	return nil
}

// RecoveryCheck 是注册给 broker 的回查回调。只看库存流水：
// 查不到或仍是 INIT → unknown（稍后再查）；COMMIT / ROLLBACK 照实返回。
func (d *TransactionalDispatcher) RecoveryCheck(ctx context.Context, stockLogID string) port.TxOutcome {
	log, err := d.stockLogs.FindByID(ctx, stockLogID)
	if err != nil {
		if !errors.Is(err, domain.ErrStockLogNotFound) {
			logger.Ctx(ctx).Error().Err(err).
				Str("stock_log_id", stockLogID).
				Msg("recovery check failed to load stock log")
		}
		return port.OutcomeUnknown
	}

	switch log.Status {
	case domain.StockLogCommit:
		return port.OutcomeCommit
	case domain.StockLogRollback:
		return port.OutcomeRollback
	default:
		// 本地事务还没出结果
		return port.OutcomeUnknown
	}
}

// finalize 把 INIT 流水迁到终态。迁移失败只记日志：
// 最坏情况是流水留在 INIT，回查会一直返回 unknown 直到重试上限。
func (d *TransactionalDispatcher) finalize(ctx context.Context, stockLogID string, to domain.StockLogStatus) {
	err := d.stockLogs.TransitionStatus(ctx, stockLogID, domain.StockLogInit, to)
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Str("stock_log_id", stockLogID).
			Int8("to", int8(to)).
			Msg("failed to finalize stock log")
	}
}
