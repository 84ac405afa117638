package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"seckill/internal/pkg/logger"
	"seckill/internal/service/order/domain"
)

// CreateOrderRequest 是创建秒杀订单的入参。
type CreateOrderRequest struct {
	BuyerID    int64
	ProductID  int64
	Quantity   int
	PromoID    int64
	StockLogID string
}

// OrderApplicationService 负责订单落库。它是准入服务事务消息流程里
// 的"本地事务"一步：订单写成功与否决定扣减消息提交还是回滚。
type OrderApplicationService struct {
	orders domain.OrderRepository
}

func NewOrderApplicationService(orders domain.OrderRepository) *OrderApplicationService {
	return &OrderApplicationService{orders: orders}
}

// CreateSeckillOrder 创建订单。同一条库存流水重复提交时幂等返回成功：
// 调用方可能因为超时重试，订单已经在就不算失败。
func (s *OrderApplicationService) CreateSeckillOrder(ctx context.Context, req *CreateOrderRequest) (*domain.Order, error) {
	ctx, span := otel.Tracer("order").Start(ctx, "order.CreateSeckillOrder")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("buyer.id", req.BuyerID),
		attribute.Int64("product.id", req.ProductID),
		attribute.String("stock_log.id", req.StockLogID),
	)

	if req.Quantity <= 0 {
		return nil, fmt.Errorf("invalid order quantity: %d", req.Quantity)
	}
	if req.StockLogID == "" {
		return nil, fmt.Errorf("stockLogId is required")
	}

	order := &domain.Order{
		OrderID:    strings.ReplaceAll(uuid.NewString(), "-", ""),
		BuyerID:    req.BuyerID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
		PromoID:    req.PromoID,
		StockLogID: req.StockLogID,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		if err == domain.ErrDuplicateOrder {
			logger.Ctx(ctx).Info().
				Str("stock_log_id", req.StockLogID).
				Msg("order already created, treating retry as success")
			return order, nil
		}
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	logger.Ctx(ctx).Info().
		Str("order_id", order.OrderID).
		Int64("buyer_id", order.BuyerID).
		Int64("product_id", order.ProductID).
		Msg("seckill order created")
	return order, nil
}
