package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"seckill/internal/service/order/domain"
)

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.Order // keyed by stock log id
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*domain.Order)}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[order.StockLogID]; ok {
		return domain.ErrDuplicateOrder
	}
	cp := *order
	r.orders[order.StockLogID] = &cp
	return nil
}

func validRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		BuyerID:    7,
		ProductID:  1,
		Quantity:   2,
		PromoID:    100,
		StockLogID: "log-1",
	}
}

func TestCreateSeckillOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewOrderApplicationService(repo)

	order, err := svc.CreateSeckillOrder(context.Background(), validRequest())
	require.NoError(t, err)
	require.Len(t, order.OrderID, 32)
	require.Equal(t, int64(7), order.BuyerID)
	require.Equal(t, "log-1", order.StockLogID)
	require.Len(t, repo.orders, 1)
}

func TestCreateSeckillOrderRetryIsIdempotent(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewOrderApplicationService(repo)

	_, err := svc.CreateSeckillOrder(context.Background(), validRequest())
	require.NoError(t, err)

	// 调用方超时重试：同一条流水不报错，也不落第二笔订单
	_, err = svc.CreateSeckillOrder(context.Background(), validRequest())
	require.NoError(t, err)
	require.Len(t, repo.orders, 1)
}

func TestCreateSeckillOrderValidation(t *testing.T) {
	svc := NewOrderApplicationService(newFakeOrderRepo())

	req := validRequest()
	req.Quantity = 0
	_, err := svc.CreateSeckillOrder(context.Background(), req)
	require.Error(t, err)

	req = validRequest()
	req.StockLogID = ""
	_, err = svc.CreateSeckillOrder(context.Background(), req)
	require.Error(t, err)
}
