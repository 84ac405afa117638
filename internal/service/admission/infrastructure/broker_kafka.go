package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"seckill/internal/pkg/logger"
	"seckill/internal/pkg/mq"
	"seckill/internal/service/admission/domain"
	"seckill/internal/service/admission/domain/port"
	"seckill/internal/service/admission/metrics"
)

// messageWriter 抽掉 kafka.Writer，测试里可以换成假实现。
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type pendingMessage struct {
	msg    domain.StockDecrementMessage
	bornAt time.Time
	checks int
}

// KafkaHalfMessageBroker 在 kafka 之上实现半提交协议。
// 半消息先暂存在生产方本地，Confirm(commit) 才真正写入主题，
// 所以"对消费者不可见直到提交"天然成立。
// 未确认的半消息由后台回查循环兜底：按回查间隔反复询问
// RecoveryChecker，直到拿到终态或达到次数上限（上限后按回滚处理）。
type KafkaHalfMessageBroker struct {
	writer  messageWriter
	checker port.RecoveryChecker

	checkInterval time.Duration
	maxChecks     int

	mu      sync.Mutex
	pending map[string]*pendingMessage

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewKafkaHalfMessageBroker(writer messageWriter, checkInterval time.Duration, maxChecks int) *KafkaHalfMessageBroker {
	if checkInterval <= 0 {
		checkInterval = 10 * time.Second
	}
	if maxChecks <= 0 {
		maxChecks = 15
	}
	return &KafkaHalfMessageBroker{
		writer:        writer,
		checkInterval: checkInterval,
		maxChecks:     maxChecks,
		pending:       make(map[string]*pendingMessage),
		stopCh:        make(chan struct{}),
	}
}

// SetRecoveryChecker 注册回查回调，必须在 Start 之前调用。
func (b *KafkaHalfMessageBroker) SetRecoveryChecker(checker port.RecoveryChecker) {
	b.checker = checker
}

func (b *KafkaHalfMessageBroker) SendHalfMessage(ctx context.Context, msg domain.StockDecrementMessage) (string, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}
	handle := uuid.NewString()
	b.mu.Lock()
	b.pending[handle] = &pendingMessage{msg: msg, bornAt: time.Now()}
	b.mu.Unlock()
	return handle, nil
}

func (b *KafkaHalfMessageBroker) Confirm(ctx context.Context, handle string, outcome port.TxOutcome) error {
	if outcome == port.OutcomeUnknown {
		return fmt.Errorf("cannot confirm half message with unknown outcome")
	}

	b.mu.Lock()
	p, ok := b.pending[handle]
	if ok {
		delete(b.pending, handle)
	}
	b.mu.Unlock()
	if !ok {
		// 已被回查循环抢先裁决
		return fmt.Errorf("unknown half-message handle: %s", handle)
	}

	if outcome == port.OutcomeRollback {
		return nil
	}
	if err := b.publish(ctx, p.msg); err != nil {
		// 发布失败时放回待回查集合，流水已是 COMMIT，回查会重试发布
		b.mu.Lock()
		b.pending[handle] = p
		b.mu.Unlock()
		return fmt.Errorf("failed to publish committed message: %w", err)
	}
	return nil
}

// Start 启动回查循环。
func (b *KafkaHalfMessageBroker) Start(ctx context.Context) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.checkInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-b.stopCh:
				return
			case <-ticker.C:
				b.runRecoveryPass(ctx)
			}
		}
	}()
}

// Stop 停止回查循环并等待退出。
func (b *KafkaHalfMessageBroker) Stop() {
	close(b.stopCh)
	b.wg.Wait()
}

// runRecoveryPass 对所有悬挂超过一个回查间隔的半消息做一轮回查。
func (b *KafkaHalfMessageBroker) runRecoveryPass(ctx context.Context) {
	if b.checker == nil {
		return
	}

	type dueEntry struct {
		handle string
		p      *pendingMessage
	}
	b.mu.Lock()
	var due []dueEntry
	for handle, p := range b.pending {
		if time.Since(p.bornAt) >= b.checkInterval {
			due = append(due, dueEntry{handle: handle, p: p})
		}
	}
	b.mu.Unlock()

	for _, e := range due {
		outcome := b.checker(ctx, e.p.msg.StockLogID)
		switch outcome {
		case port.OutcomeCommit:
			// 先原子地摘下再发布：快照之后 Confirm 可能已经并发走完，
			// 摘不到就说明消息已被投递，跳过以免重复发布
			b.mu.Lock()
			_, still := b.pending[e.handle]
			if still {
				delete(b.pending, e.handle)
			}
			b.mu.Unlock()
			if !still {
				continue
			}
			if err := b.publish(ctx, e.p.msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).
					Str("stock_log_id", e.p.msg.StockLogID).
					Msg("recovery publish failed, will retry")
				b.mu.Lock()
				b.pending[e.handle] = e.p
				b.mu.Unlock()
				continue
			}
			metrics.HalfMessages.WithLabelValues("recovered_commit").Inc()
		case port.OutcomeRollback:
			b.remove(e.handle)
			metrics.HalfMessages.WithLabelValues("recovered_rollback").Inc()
		default:
			b.mu.Lock()
			if p, ok := b.pending[e.handle]; ok {
				p.checks++
				if p.checks >= b.maxChecks {
					// 回查次数耗尽，按回滚处理
					delete(b.pending, e.handle)
					logger.Ctx(ctx).Warn().
						Str("stock_log_id", p.msg.StockLogID).
						Int("checks", p.checks).
						Msg("recovery checks exhausted, discarding half message")
					metrics.HalfMessages.WithLabelValues("recovery_exhausted").Inc()
				}
			}
			b.mu.Unlock()
		}
	}
}

func (b *KafkaHalfMessageBroker) remove(handle string) {
	b.mu.Lock()
	delete(b.pending, handle)
	b.mu.Unlock()
}

func (b *KafkaHalfMessageBroker) publish(ctx context.Context, msg domain.StockDecrementMessage) error {
	value, err := json.Marshal(&msg)
	if err != nil {
		return err
	}

	carrier := mq.KafkaHeaderCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, &carrier)

	return b.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(strconv.FormatInt(msg.ProductID, 10)),
		Value:   value,
		Headers: carrier,
	})
}
