package application

import (
	"context"
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

// ReservationService 负责买家侧的库存预占。
// 预占计数器上的原子加减是唯一的同步手段，不持任何进程内锁。
type ReservationService struct {
	counters   port.CounterStore
	markers    port.MarkerStore
	stockLogs  port.StockLogRepository
	dispatcher *TransactionalDispatcher
	producer   port.DecrementProducer
}

func NewReservationService(
	counters port.CounterStore,
	markers port.MarkerStore,
	stockLogs port.StockLogRepository,
	dispatcher *TransactionalDispatcher,
	producer port.DecrementProducer,
) *ReservationService {
	return &ReservationService{
		counters:   counters,
		markers:    markers,
		stockLogs:  stockLogs,
		dispatcher: dispatcher,
		producer:   producer,
	}
}

// Reserve 是下单主路径：原子扣减预占计数器，成功后交给事务消息
// 分发器创建订单并把台账扣减消息提交出去。
//
// 扣减-检查-补偿整体并非原子：计数器存在一个短暂为负的窗口，
// 其他读者必须容忍负值。分发失败时把计数器原样加回去。
func (s *ReservationService) Reserve(ctx context.Context, draft domain.OrderDraft, promoID int64) error {
	ctx, span := otel.Tracer("admission").Start(ctx, "reservation.Reserve")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("product.id", draft.ProductID),
		attribute.Int("quantity", draft.Quantity),
	)

	if err := s.decrementCounter(ctx, draft.ProductID, draft.Quantity); err != nil {
		return err
	}

	if err := s.dispatcher.Dispatch(ctx, draft, promoID); err != nil {
		// 订单没落下来，预占必须释放
		s.release(ctx, draft.ProductID, draft.Quantity)
		return err
	}
	return nil
}

// ReserveAsync 是纯异步路径：预占已被接受后，只需要把台账扣减消息
// 发出去，不需要事务语义。入队失败时补偿计数器。
func (s *ReservationService) ReserveAsync(ctx context.Context, productID int64, quantity int) error {
	ctx, span := otel.Tracer("admission").Start(ctx, "reservation.ReserveAsync")
	defer span.End()

	if err := s.decrementCounter(ctx, productID, quantity); err != nil {
		return err
	}

	// 异步路径没有本地事务，但消息仍然带流水号：消费端靠它做幂等。
	// 流水直接落成 COMMIT——预占在上一步已经被接受了。
	stockLogID := strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.stockLogs.Create(ctx, &domain.StockLog{
		StockLogID: stockLogID,
		ProductID:  productID,
		Quantity:   quantity,
		Status:     domain.StockLogCommit,
	}); err != nil {
		s.release(ctx, productID, quantity)
		return fmt.Errorf("failed to create stock log: %w", err)
	}

	msg := domain.StockDecrementMessage{
		ProductID:  productID,
		Quantity:   quantity,
		StockLogID: stockLogID,
	}
	if err := s.producer.Produce(ctx, msg); err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Int64("product_id", productID).
			Str("stock_log_id", stockLogID).
			Msg("failed to enqueue decrement message, releasing reservation")
		s.release(ctx, productID, quantity)
		return fmt.Errorf("failed to enqueue decrement message: %w", err)
	}
	return nil
}

func (s *ReservationService) decrementCounter(ctx context.Context, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("invalid reservation quantity: %d", quantity)
	}

	key := domain.StockKey(productID)
	exists, err := s.counters.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check reservation counter: %w", err)
	}
	if !exists {
		return domain.ErrStockInfoMissing
	}

	remaining, err := s.counters.GetAndAdd(ctx, key, int64(-quantity))
	if err != nil {
		return fmt.Errorf("failed to decrement reservation counter: %w", err)
	}
	if remaining < 0 {
		// 超卖边界：把扣掉的加回去，恢复到调用前的值
		if _, cerr := s.counters.GetAndAdd(ctx, key, int64(quantity)); cerr != nil {
			logger.Ctx(ctx).Error().Err(cerr).
				Int64("product_id", productID).
				Msg("failed to compensate reservation counter")
		}
		metrics.Compensations.Inc()
		metrics.ReservationsRejected.Inc()
		return domain.ErrStockNotEnough
	}

	metrics.ReservationsAccepted.Inc()
	if remaining == 0 {
		// 打上售罄标识，让后续令牌请求直接短路
		if merr := s.markers.SetMarker(ctx, domain.SoldOutKey(productID)); merr != nil {
			logger.Ctx(ctx).Warn().Err(merr).
				Int64("product_id", productID).
				Msg("failed to set sold-out marker")
		}
	}
	return nil
}

// release 把预占的数量补偿回计数器。补偿落地的先后顺序不保证与请求
// 顺序一致，也不需要一致。
func (s *ReservationService) release(ctx context.Context, productID int64, quantity int) {
	key := domain.StockKey(productID)
	remaining, err := s.counters.GetAndAdd(ctx, key, int64(quantity))
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).
			Int64("product_id", productID).
			Int("quantity", quantity).
			Msg("failed to release reservation")
		return
	}
	metrics.Compensations.Inc()
	if remaining > 0 {
		if merr := s.markers.ClearMarker(ctx, domain.SoldOutKey(productID)); merr != nil {
			logger.Ctx(ctx).Warn().Err(merr).
				Int64("product_id", productID).
				Msg("failed to clear sold-out marker after release")
		}
	}
}
