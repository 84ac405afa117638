package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPromotionStatus(t *testing.T) {
	start := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	promo := &Promotion{PromoID: 1, ProductID: 1, StartTime: start, EndTime: end}

	tests := []struct {
		name string
		now  time.Time
		want PromoStatus
	}{
		{"开始前", start.Add(-time.Minute), PromoNotStarted},
		{"恰好开始", start, PromoRunning},
		{"进行中", start.Add(time.Hour), PromoRunning},
		{"恰好结束", end, PromoEnded},
		{"结束后", end.Add(time.Minute), PromoEnded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, promo.Status(tt.now))
		})
	}
}

func TestStockLogStatusTerminal(t *testing.T) {
	require.False(t, StockLogInit.Terminal())
	require.True(t, StockLogCommit.Terminal())
	require.True(t, StockLogRollback.Terminal())
}
