package fill

import (
	"time"

	"github.com/google/uuid"
)

// Side 表示订单方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Status 表示订单终态。
type Status string

const (
	StatusFilled   Status = "FILLED"
	StatusRejected Status = "REJECTED"
)

// Order 在单次执行调用内创建并消费，成交后不再修改。
type Order struct {
	ID             string
	Symbol         string
	Side           Side
	RequestedQty   float64
	RequestedPrice float64
	FilledQty      float64
	FilledPrice    float64
	Fee            float64
	Status         Status
	CreatedAt      time.Time

	// PositionID 非空时，卖出只平指定持仓（出场触发使用）。
	PositionID string
	// 买入订单可携带止损/止盈，随持仓保存。
	StopLoss   float64
	TakeProfit float64
}

// NewOrder 创建一笔待成交的市价订单。
func NewOrder(symbol string, side Side, qty, price float64) Order {
	return Order{
		ID:             uuid.NewString()[:8],
		Symbol:         symbol,
		Side:           side,
		RequestedQty:   qty,
		RequestedPrice: price,
		CreatedAt:      time.Now().UTC(),
	}
}
