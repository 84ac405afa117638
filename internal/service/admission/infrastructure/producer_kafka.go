package infrastructure

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/segmentio/kafka-go"

	"seckill/internal/pkg/mq"
	"seckill/internal/service/admission/domain"
)

// DecrementProducerAdapter 是纯异步扣减路径的 kafka 生产者，
// 没有事务语义，失败直接报给调用方去补偿。
type DecrementProducerAdapter struct {
	writer *kafka.Writer
}

func NewDecrementProducerAdapter(writer *kafka.Writer) *DecrementProducerAdapter {
	return &DecrementProducerAdapter{writer: writer}
}

func (p *DecrementProducerAdapter) Produce(ctx context.Context, msg domain.StockDecrementMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	value, err := json.Marshal(&msg)
	if err != nil {
		return err
	}
	key := []byte(strconv.FormatInt(msg.ProductID, 10))
	return mq.ProduceMessage(ctx, p.writer, key, value)
}
