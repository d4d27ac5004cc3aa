package fill

import (
	"errors"
	"fmt"
)

// Simulator 将请求订单确定性地转化为成交订单。
// 简化约定（显式声明，而非默认假设）：市价单总是全量成交，
// 不模拟盘口深度与流动性拒单；滑点恒对提交方不利，
// 买入按 (1+slippage) 抬价、卖出按 (1-slippage) 压价；
// 手续费独立于名义金额计提，入场与出场对称收取。
type Simulator struct {
	feeRate      float64
	slippageRate float64
}

// NewSimulator 创建成交模拟器。
func NewSimulator(feeRate, slippageRate float64) (*Simulator, error) {
	if feeRate < 0 {
		return nil, errors.New("fill: fee_rate 不能为负")
	}
	if slippageRate < 0 {
		return nil, errors.New("fill: slippage_rate 不能为负")
	}
	return &Simulator{
		feeRate:      feeRate,
		slippageRate: slippageRate,
	}, nil
}

// Fill 模拟一次市价成交，无副作用。
func (s *Simulator) Fill(order Order) (Order, error) {
	if order.RequestedQty <= 0 || order.RequestedPrice <= 0 {
		order.Status = StatusRejected
		return order, fmt.Errorf("fill: 订单参数无效 qty=%.8f price=%.8f", order.RequestedQty, order.RequestedPrice)
	}

	switch order.Side {
	case SideBuy:
		order.FilledPrice = order.RequestedPrice * (1 + s.slippageRate)
	case SideSell:
		order.FilledPrice = order.RequestedPrice * (1 - s.slippageRate)
	default:
		order.Status = StatusRejected
		return order, fmt.Errorf("fill: 不支持的订单方向 %q", order.Side)
	}

	order.FilledQty = order.RequestedQty
	order.Fee = order.FilledQty * order.FilledPrice * s.feeRate
	order.Status = StatusFilled

	return order, nil
}
