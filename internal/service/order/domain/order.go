package domain

import (
	"context"
	"errors"
	"time"
)

var ErrDuplicateOrder = errors.New("order already exists for stock log")

// Order 是一笔已被接受的秒杀订单。
// StockLogID 把订单和那次预占的库存流水绑在一起，
// 同一条流水只允许落一笔订单。
type Order struct {
	OrderID    string
	BuyerID    int64
	ProductID  int64
	Quantity   int
	PromoID    int64
	StockLogID string
	CreatedAt  time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
}
