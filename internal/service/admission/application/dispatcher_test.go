package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"seckill/internal/service/admission/domain"
	"seckill/internal/service/admission/domain/port"
)

type dispatcherFixture struct {
	d         *TransactionalDispatcher
	broker    *fakeBroker
	stockLogs *fakeStockLogRepo
	orders    *fakeOrderCreator
}

func newDispatcherFixture(t *testing.T) *dispatcherFixture {
	t.Helper()
	broker := newFakeBroker()
	stockLogs := newFakeStockLogRepo()
	orders := &fakeOrderCreator{}
	return &dispatcherFixture{
		d:         NewTransactionalDispatcher(broker, stockLogs, orders),
		broker:    broker,
		stockLogs: stockLogs,
		orders:    orders,
	}
}

func testDraft() domain.OrderDraft {
	return domain.OrderDraft{BuyerID: testBuyerID, ProductID: testProductID, Quantity: 2}
}

func TestDispatchCommitFlow(t *testing.T) {
	f := newDispatcherFixture(t)

	require.NoError(t, f.d.Dispatch(context.Background(), testDraft(), testPromoID))

	require.Len(t, f.orders.calls, 1)
	stockLogID := f.orders.calls[0].stockLogID
	require.Equal(t, domain.StockLogCommit, f.stockLogs.status(stockLogID))
	require.Equal(t, []port.TxOutcome{port.OutcomeCommit}, f.broker.outcomes())

	// 半消息携带的流水号必须与本地事务使用的一致
	for _, msg := range f.broker.sent {
		require.Equal(t, stockLogID, msg.StockLogID)
	}
}

func TestDispatchOrderFailureRollsBack(t *testing.T) {
	f := newDispatcherFixture(t)
	f.orders.err = errors.New("order rejected")

	err := f.d.Dispatch(context.Background(), testDraft(), testPromoID)
	require.Error(t, err)

	require.Equal(t, []port.TxOutcome{port.OutcomeRollback}, f.broker.outcomes())
	for _, msg := range f.broker.sent {
		require.Equal(t, domain.StockLogRollback, f.stockLogs.status(msg.StockLogID))
	}
}

func TestDispatchSendFailureRollsBackStockLog(t *testing.T) {
	f := newDispatcherFixture(t)
	f.broker.sendErr = errors.New("broker unavailable")

	err := f.d.Dispatch(context.Background(), testDraft(), testPromoID)
	require.Error(t, err)

	// 半消息没发出去，本地事务不该执行
	require.Empty(t, f.orders.calls)
	for id := range f.stockLogs.logs {
		require.Equal(t, domain.StockLogRollback, f.stockLogs.status(id))
	}
}

func TestDispatchStockLogCreateFailure(t *testing.T) {
	f := newDispatcherFixture(t)
	f.stockLogs.failCreate = errors.New("db down")

	err := f.d.Dispatch(context.Background(), testDraft(), testPromoID)
	require.Error(t, err)
	require.Empty(t, f.broker.sent)
	require.Empty(t, f.orders.calls)
}

func TestDispatchConfirmFailureStillSucceeds(t *testing.T) {
	f := newDispatcherFixture(t)
	f.broker.confirmErr = errors.New("confirm lost")

	// 确认丢失不算失败：流水已是 COMMIT，回查会补投消息
	require.NoError(t, f.d.Dispatch(context.Background(), testDraft(), testPromoID))

	require.Len(t, f.orders.calls, 1)
	require.Equal(t, domain.StockLogCommit, f.stockLogs.status(f.orders.calls[0].stockLogID))
}

func TestRecoveryCheckOutcomes(t *testing.T) {
	f := newDispatcherFixture(t)
	ctx := context.Background()

	seed := func(id string, status domain.StockLogStatus) {
		require.NoError(t, f.stockLogs.Create(ctx, &domain.StockLog{
			StockLogID: id,
			ProductID:  testProductID,
			Quantity:   1,
			Status:     status,
		}))
	}
	seed("log-init", domain.StockLogInit)
	seed("log-commit", domain.StockLogCommit)
	seed("log-rollback", domain.StockLogRollback)

	tests := []struct {
		name       string
		stockLogID string
		want       port.TxOutcome
	}{
		{"流水不存在", "log-missing", port.OutcomeUnknown},
		{"本地事务未决", "log-init", port.OutcomeUnknown},
		{"已提交", "log-commit", port.OutcomeCommit},
		{"已回滚", "log-rollback", port.OutcomeRollback},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, f.d.RecoveryCheck(ctx, tt.stockLogID))
		})
	}
}
