package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"seckill/internal/service/admission/domain"
)

func TestApplyDecrement(t *testing.T) {
	ledger := newFakeLedger()
	ledger.stock[testProductID] = 10
	ledger.addLog("log-1", domain.StockLogCommit)
	svc := NewReconciliationService(ledger)

	msg := domain.StockDecrementMessage{ProductID: testProductID, Quantity: 3, StockLogID: "log-1"}
	require.NoError(t, svc.ApplyDecrement(context.Background(), msg))

	stock, err := ledger.GetStock(context.Background(), testProductID)
	require.NoError(t, err)
	require.Equal(t, 7, stock)
}

func TestApplyDecrementIdempotentOnRedelivery(t *testing.T) {
	ledger := newFakeLedger()
	ledger.stock[testProductID] = 10
	ledger.addLog("log-1", domain.StockLogCommit)
	svc := NewReconciliationService(ledger)

	msg := domain.StockDecrementMessage{ProductID: testProductID, Quantity: 3, StockLogID: "log-1"}
	require.NoError(t, svc.ApplyDecrement(context.Background(), msg))

	// 重投递同一条消息：静默成功，台账不再变化
	require.NoError(t, svc.ApplyDecrement(context.Background(), msg))

	stock, err := ledger.GetStock(context.Background(), testProductID)
	require.NoError(t, err)
	require.Equal(t, 7, stock)
}

func TestApplyDecrementWhenLogStuckInInit(t *testing.T) {
	ledger := newFakeLedger()
	ledger.stock[testProductID] = 10
	// 生产方的 INIT→COMMIT 迁移丢了，但消息照常投出：
	// 消息可见即代表已提交，扣减必须照落，不能当成重投递吞掉
	ledger.addLog("log-1", domain.StockLogInit)
	svc := NewReconciliationService(ledger)

	msg := domain.StockDecrementMessage{ProductID: testProductID, Quantity: 3, StockLogID: "log-1"}
	require.NoError(t, svc.ApplyDecrement(context.Background(), msg))

	stock, err := ledger.GetStock(context.Background(), testProductID)
	require.NoError(t, err)
	require.Equal(t, 7, stock)
	require.True(t, ledger.applied["log-1"])
}

func TestApplyDecrementUnknownLogIsRetryable(t *testing.T) {
	ledger := newFakeLedger()
	ledger.stock[testProductID] = 10
	svc := NewReconciliationService(ledger)

	// 流水不存在必须报错（消息重投），不能按重投递静默吞掉
	msg := domain.StockDecrementMessage{ProductID: testProductID, Quantity: 3, StockLogID: "log-ghost"}
	err := svc.ApplyDecrement(context.Background(), msg)
	require.ErrorIs(t, err, domain.ErrStockLogNotFound)

	stock, gerr := ledger.GetStock(context.Background(), testProductID)
	require.NoError(t, gerr)
	require.Equal(t, 10, stock)
}

func TestApplyDecrementMalformed(t *testing.T) {
	svc := NewReconciliationService(newFakeLedger())

	tests := []struct {
		name string
		msg  domain.StockDecrementMessage
	}{
		{"商品号缺失", domain.StockDecrementMessage{Quantity: 1, StockLogID: "log-1"}},
		{"数量非正", domain.StockDecrementMessage{ProductID: 1, Quantity: 0, StockLogID: "log-1"}},
		{"流水号缺失", domain.StockDecrementMessage{ProductID: 1, Quantity: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ApplyDecrement(context.Background(), tt.msg)
			require.ErrorIs(t, err, domain.ErrMalformedMessage)
		})
	}
}

func TestApplyDecrementInsufficientLedger(t *testing.T) {
	ledger := newFakeLedger()
	ledger.stock[testProductID] = 1
	ledger.addLog("log-1", domain.StockLogCommit)
	svc := NewReconciliationService(ledger)

	msg := domain.StockDecrementMessage{ProductID: testProductID, Quantity: 5, StockLogID: "log-1"}
	err := svc.ApplyDecrement(context.Background(), msg)
	require.ErrorIs(t, err, domain.ErrLedgerInsufficient)

	// 没扣成也没认领流水，重投递时还有机会
	stock, gerr := ledger.GetStock(context.Background(), testProductID)
	require.NoError(t, gerr)
	require.Equal(t, 1, stock)
	require.False(t, ledger.applied["log-1"])
}
