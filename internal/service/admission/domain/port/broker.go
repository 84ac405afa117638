package port

import (
	"context"

	"seckill/internal/service/admission/domain"
)

// TxOutcome 是事务消息回查的三态结果。
type TxOutcome int

const (
	OutcomeUnknown TxOutcome = iota
	OutcomeCommit
	OutcomeRollback
)

func (o TxOutcome) String() string {
	switch o {
	case OutcomeCommit:
		return "commit"
	case OutcomeRollback:
		return "rollback"
	default:
		return "unknown"
	}
}

// RecoveryChecker 由生产方注册，broker 在半消息悬而未决时回查。
// 以库存流水为唯一决策依据。
type RecoveryChecker func(ctx context.Context, stockLogID string) TxOutcome

// HalfMessageBroker 是半提交协议的出站端口：
// SendHalfMessage 发出的消息对消费者不可见，
// 直到 Confirm 给出 commit（投递）或 rollback（丢弃）。
// 生产方崩溃时由回查机制兜底。
type HalfMessageBroker interface {
	SendHalfMessage(ctx context.Context, msg domain.StockDecrementMessage) (handle string, err error)
	Confirm(ctx context.Context, handle string, outcome TxOutcome) error
}

// DecrementProducer 是纯异步路径的扣减消息生产端口，没有事务语义。
// 入队失败由调用方补偿预占计数器。
type DecrementProducer interface {
	Produce(ctx context.Context, msg domain.StockDecrementMessage) error
}
