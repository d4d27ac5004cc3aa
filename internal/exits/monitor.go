// Package exits 负责按最新价格扫描未平仓持仓的出场条件。
package exits

import (
	"swing-ai/internal/ledger"
)

// TriggerType 表示出场触发类型。
type TriggerType string

const (
	TriggerStopLoss   TriggerType = "STOP_LOSS"
	TriggerTakeProfit TriggerType = "TAKE_PROFIT"
)

// Trigger 描述一次出场触发。
type Trigger struct {
	PositionID string
	Type       TriggerType
	Price      float64
}

// Monitor 本身无状态，持仓的 OPEN→CLOSED 转换由账本负责。
type Monitor struct{}

// NewMonitor 创建出场监控器。
func NewMonitor() *Monitor {
	return &Monitor{}
}

// Scan 对每个未平仓持仓判断出场条件，单次扫描每个持仓至多触发一次。
// 判定只看 tick 收盘价，不模拟K线内最高/最低价（约定并在此声明）。
// 多头规则：价格 ≤ 止损 → STOP_LOSS；价格 ≥ 止盈 → TAKE_PROFIT；
// 两者同时满足时止损优先。未设置的价位（0）不参与判断。
func (m *Monitor) Scan(positions []ledger.Position, currentPrice float64) []Trigger {
	if currentPrice <= 0 {
		return nil
	}

	var triggers []Trigger
	for _, pos := range positions {
		if pos.Status != ledger.PositionOpen {
			continue
		}

		switch {
		case pos.StopLoss > 0 && currentPrice <= pos.StopLoss:
			triggers = append(triggers, Trigger{
				PositionID: pos.ID,
				Type:       TriggerStopLoss,
				Price:      currentPrice,
			})
		case pos.TakeProfit > 0 && currentPrice >= pos.TakeProfit:
			triggers = append(triggers, Trigger{
				PositionID: pos.ID,
				Type:       TriggerTakeProfit,
				Price:      currentPrice,
			})
		}
	}

	return triggers
}
