package domain

import "fmt"

// StockDecrementMessage 是发往消息通道的台账扣减指令。
// 固定结构，消费端收到后必须先校验再处理。
type StockDecrementMessage struct {
	ProductID  int64  `json:"productId"`
	Quantity   int    `json:"quantity"`
	StockLogID string `json:"stockLogId"`
}

// Validate 校验消息结构是否完整。不合法的消息按数据错误处理，不进入台账。
func (m *StockDecrementMessage) Validate() error {
	if m.ProductID <= 0 {
		return fmt.Errorf("%w: productId=%d", ErrMalformedMessage, m.ProductID)
	}
	if m.Quantity <= 0 {
		return fmt.Errorf("%w: quantity=%d", ErrMalformedMessage, m.Quantity)
	}
	if m.StockLogID == "" {
		return fmt.Errorf("%w: empty stockLogId", ErrMalformedMessage)
	}
	return nil
}
