package domain

import "time"

// StockLogStatus 是库存流水的状态机：INIT 是唯一的非终态。
type StockLogStatus int8

const (
	StockLogInit     StockLogStatus = 1
	StockLogCommit   StockLogStatus = 2
	StockLogRollback StockLogStatus = 3
)

func (s StockLogStatus) Terminal() bool {
	return s == StockLogCommit || s == StockLogRollback
}

// StockLog 记录一笔"预占 → 台账落库"写入的生命周期。
// 它是事务消息回查时唯一的决策依据。
type StockLog struct {
	StockLogID string
	ProductID  int64
	Quantity   int
	Status     StockLogStatus

	// AppliedAt 非空表示对应的扣减消息已经作用到台账，
	// 消费端靠它实现重投递下的幂等。
	AppliedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
