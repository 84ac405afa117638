package domain

import "errors"

// 校验类 / 状态类错误，调用方据此映射成用户可见的拒绝原因。
var (
	ErrPromoNotFound   = errors.New("promotion does not exist")
	ErrProductNotFound = errors.New("product does not exist")
	ErrBuyerNotFound   = errors.New("buyer does not exist")

	ErrStockExhausted   = errors.New("product stock exhausted")
	ErrStockNotEnough   = errors.New("product stock not enough")
	ErrStockInfoMissing = errors.New("no reservation counter for product")

	ErrTokenInvalid = errors.New("purchase token invalid or expired")

	ErrStockLogNotFound  = errors.New("stock log does not exist")
	ErrStockLogFinalized = errors.New("stock log already in terminal state")

	ErrLedgerInsufficient = errors.New("ledger stock insufficient for decrement")

	ErrMalformedMessage = errors.New("malformed stock decrement message")
)
