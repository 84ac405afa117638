package domain

import "time"

// PromoStatus 是根据当前时间推导出来的活动状态。
type PromoStatus int

const (
	PromoNotStarted PromoStatus = iota + 1
	PromoRunning
	PromoEnded
)

func (s PromoStatus) String() string {
	switch s {
	case PromoNotStarted:
		return "not_started"
	case PromoRunning:
		return "running"
	case PromoEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Promotion 是一次限量抢购活动。
type Promotion struct {
	PromoID   int64
	ProductID int64
	PromoName string

	// EligibilityRule 是一条可选的 CEL 表达式，对 buyer_id / product_id 求值。
	// 为空表示所有买家都有资格。
	EligibilityRule string

	StartTime time.Time
	EndTime   time.Time
}

// Status 推导活动在 now 时刻的状态。区间为 [StartTime, EndTime)。
func (p *Promotion) Status(now time.Time) PromoStatus {
	if now.Before(p.StartTime) {
		return PromoNotStarted
	}
	if now.Before(p.EndTime) {
		return PromoRunning
	}
	return PromoEnded
}
