package ledger

import (
	"time"
)

// PositionStatus 表示持仓生命周期状态，CLOSED 为终态。
type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// Position 由一笔批准成交创建为 OPEN，出场触发或显式平仓后
// 一次性、不可逆地转为 CLOSED，此后不再接受任何变更。
type Position struct {
	ID         string
	Symbol     string
	EntryPrice float64
	Quantity   float64
	StopLoss   float64
	TakeProfit float64
	OpenedAt   time.Time
	Status     PositionStatus

	// EntryFee 为尚未结转的入场手续费，随减仓按比例转入已实现盈亏。
	EntryFee float64

	// RealizedPnL 已扣除入场与出场手续费，仅在平仓后有意义。
	RealizedPnL float64
	ExitPrice   float64
	ClosedAt    time.Time
}

// CostBasis 返回持仓成本（数量×入场价）。
func (p *Position) CostBasis() float64 {
	return p.Quantity * p.EntryPrice
}
