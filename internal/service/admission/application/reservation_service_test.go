package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"seckill/internal/service/admission/domain"
	"seckill/internal/service/admission/domain/port"
)

type reservationFixture struct {
	svc       *ReservationService
	store     *fakeFastStore
	stockLogs *fakeStockLogRepo
	orders    *fakeOrderCreator
	broker    *fakeBroker
	producer  *fakeProducer
}

func newReservationFixture(t *testing.T, stock int64) *reservationFixture {
	t.Helper()

	store := newFakeFastStore()
	require.NoError(t, store.Seed(context.Background(), domain.StockKey(testProductID), stock))

	stockLogs := newFakeStockLogRepo()
	orders := &fakeOrderCreator{}
	broker := newFakeBroker()
	producer := &fakeProducer{}
	dispatcher := NewTransactionalDispatcher(broker, stockLogs, orders)

	return &reservationFixture{
		svc:       NewReservationService(store, store, stockLogs, dispatcher, producer),
		store:     store,
		stockLogs: stockLogs,
		orders:    orders,
		broker:    broker,
		producer:  producer,
	}
}

func (f *reservationFixture) counter() int64 {
	return f.store.counter(domain.StockKey(testProductID))
}

func TestReserveHappyPath(t *testing.T) {
	f := newReservationFixture(t, 10)
	ctx := context.Background()

	draft := domain.OrderDraft{BuyerID: testBuyerID, ProductID: testProductID, Quantity: 2}
	require.NoError(t, f.svc.Reserve(ctx, draft, testPromoID))

	require.EqualValues(t, 8, f.counter())
	require.Len(t, f.orders.calls, 1)
	require.Equal(t, draft, f.orders.calls[0].draft)
	require.NotEmpty(t, f.orders.calls[0].stockLogID)

	// 流水已提交，扣减消息终将可见
	require.Equal(t, domain.StockLogCommit, f.stockLogs.status(f.orders.calls[0].stockLogID))
}

func TestReserveStockNotEnough(t *testing.T) {
	f := newReservationFixture(t, 5)

	draft := domain.OrderDraft{BuyerID: testBuyerID, ProductID: testProductID, Quantity: 6}
	err := f.svc.Reserve(context.Background(), draft, testPromoID)
	require.ErrorIs(t, err, domain.ErrStockNotEnough)

	// 补偿后计数器回到调用前的值
	require.EqualValues(t, 5, f.counter())
	require.Empty(t, f.orders.calls)
}

func TestReserveMissingCounter(t *testing.T) {
	f := newReservationFixture(t, 5)

	draft := domain.OrderDraft{BuyerID: testBuyerID, ProductID: 9999, Quantity: 1}
	err := f.svc.Reserve(context.Background(), draft, testPromoID)
	require.ErrorIs(t, err, domain.ErrStockInfoMissing)
}

func TestReserveInvalidQuantity(t *testing.T) {
	f := newReservationFixture(t, 5)

	draft := domain.OrderDraft{BuyerID: testBuyerID, ProductID: testProductID, Quantity: 0}
	require.Error(t, f.svc.Reserve(context.Background(), draft, testPromoID))
	require.EqualValues(t, 5, f.counter())
}

func TestReserveSetsSoldOutMarkerAtZero(t *testing.T) {
	f := newReservationFixture(t, 2)
	ctx := context.Background()

	draft := domain.OrderDraft{BuyerID: testBuyerID, ProductID: testProductID, Quantity: 2}
	require.NoError(t, f.svc.Reserve(ctx, draft, testPromoID))

	soldOut, err := f.store.HasMarker(ctx, domain.SoldOutKey(testProductID))
	require.NoError(t, err)
	require.True(t, soldOut)
}

func TestReserveDispatchFailureReleasesReservation(t *testing.T) {
	f := newReservationFixture(t, 10)
	f.orders.err = errors.New("order service down")
	ctx := context.Background()

	draft := domain.OrderDraft{BuyerID: testBuyerID, ProductID: testProductID, Quantity: 3}
	require.Error(t, f.svc.Reserve(ctx, draft, testPromoID))

	// 订单没落下来，预占必须原样放回
	require.EqualValues(t, 10, f.counter())
	require.Contains(t, f.broker.outcomes(), port.OutcomeRollback)
}

func TestConcurrentReserveNeverOversells(t *testing.T) {
	const stock = 50
	const attempts = 100
	f := newReservationFixture(t, stock)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			draft := domain.OrderDraft{BuyerID: testBuyerID, ProductID: testProductID, Quantity: 1}
			if err := f.svc.Reserve(ctx, draft, testPromoID); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, stock, accepted)
	require.EqualValues(t, 0, f.counter())
}

func TestConcurrentMultiQuantityReserve(t *testing.T) {
	// 库存 10，两个并发的 6 件请求：恰好一个成功，
	// 落败方补偿归位后计数器停在 4
	f := newReservationFixture(t, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			draft := domain.OrderDraft{BuyerID: testBuyerID, ProductID: testProductID, Quantity: 6}
			results[i] = f.svc.Reserve(ctx, draft, testPromoID)
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range results {
		if err == nil {
			accepted++
		} else {
			require.ErrorIs(t, err, domain.ErrStockNotEnough)
		}
	}
	require.Equal(t, 1, accepted)
	require.EqualValues(t, 4, f.counter())
	require.Len(t, f.orders.calls, 1)
}

func TestReserveAsyncHappyPath(t *testing.T) {
	f := newReservationFixture(t, 10)
	ctx := context.Background()

	require.NoError(t, f.svc.ReserveAsync(ctx, testProductID, 3))

	require.EqualValues(t, 7, f.counter())
	require.Len(t, f.producer.msgs, 1)

	msg := f.producer.msgs[0]
	require.Equal(t, testProductID, msg.ProductID)
	require.Equal(t, 3, msg.Quantity)
	require.NotEmpty(t, msg.StockLogID)

	// 异步路径的流水直接落成 COMMIT，消费端拿它做幂等
	require.Equal(t, domain.StockLogCommit, f.stockLogs.status(msg.StockLogID))
}

func TestReserveAsyncProducerFailureReleases(t *testing.T) {
	f := newReservationFixture(t, 10)
	f.producer.err = errors.New("broker unavailable")

	require.Error(t, f.svc.ReserveAsync(context.Background(), testProductID, 3))
	require.EqualValues(t, 10, f.counter())
}

func TestReserveAsyncStockLogFailureReleases(t *testing.T) {
	f := newReservationFixture(t, 10)
	f.stockLogs.failCreate = errors.New("db down")

	require.Error(t, f.svc.ReserveAsync(context.Background(), testProductID, 3))
	require.EqualValues(t, 10, f.counter())
	require.Empty(t, f.producer.msgs)
}
