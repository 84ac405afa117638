package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"seckill/internal/pkg/logger"
	"seckill/internal/pkg/mq"
	"seckill/internal/service/admission/application"
	"seckill/internal/service/admission/domain"
)

// StockConsumerAdapter 是对账消费者：订阅已提交的扣减消息，
// 逐条交给 ReconciliationService 落台账。
// 消费组语义下是 at-least-once，幂等由下游保证。
type StockConsumerAdapter struct {
	reader  *kafka.Reader
	svc     *application.ReconciliationService
	workers int

	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewStockConsumerAdapter(reader *kafka.Reader, svc *application.ReconciliationService, workers int) *StockConsumerAdapter {
	if workers <= 0 {
		workers = 4
	}
	return &StockConsumerAdapter{
		reader:  reader,
		svc:     svc,
		workers: workers,
	}
}

// Start 启动消费工作组。
func (a *StockConsumerAdapter) Start(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	a.group, ctx = errgroup.WithContext(ctx)

	for i := 0; i < a.workers; i++ {
		a.group.Go(func() error {
			return a.consumeLoop(ctx)
		})
	}
	logger.Logger().Info().
		Str("topic", a.reader.Config().Topic).
		Int("workers", a.workers).
		Msg("stock consumer started")
}

// Stop 优雅地停止消费者。
func (a *StockConsumerAdapter) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.reader.Close()
	if a.group != nil {
		_ = a.group.Wait()
	}
	logger.Logger().Info().Msg("stock consumer stopped")
}

func (a *StockConsumerAdapter) consumeLoop(ctx context.Context) error {
	for {
		// 用 FetchMessage 而不是 ReadMessage，处理成功才提交 offset
		msg, err := a.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Msg("could not fetch message, retrying")
			time.Sleep(time.Second)
			continue
		}

		if err := a.handleMessage(ctx, msg); err != nil {
			// 基础设施错误不提交 offset，等重投递
			logger.Ctx(ctx).Error().Err(err).Msg("failed to handle decrement message")
			time.Sleep(time.Second)
			continue
		}

		if err := a.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("failed to commit offset")
		}
	}
}

func (a *StockConsumerAdapter) handleMessage(parentCtx context.Context, msg kafka.Message) error {
	// 接续生产方的追踪上下文
	carrier := mq.KafkaHeaderCarrier(msg.Headers)
	ctx := otel.GetTextMapPropagator().Extract(parentCtx, &carrier)

	var decrement domain.StockDecrementMessage
	if err := json.Unmarshal(msg.Value, &decrement); err != nil {
		// 坏消息按数据错误跳过，不能卡住分区
		logger.Ctx(ctx).Warn().Err(err).Msg("unparseable decrement message, skipping")
		return nil
	}

	if err := a.svc.ApplyDecrement(ctx, decrement); err != nil {
		if errors.Is(err, domain.ErrMalformedMessage) {
			logger.Ctx(ctx).Warn().Err(err).Msg("malformed decrement message, skipping")
			return nil
		}
		return err
	}
	return nil
}
