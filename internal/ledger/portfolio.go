// Package ledger 维护模拟账户的权威资金状态：现金、持仓与已实现盈亏。
// 所有资金变动都经由唯一的变更入口 ApplyFill，每次变更后校验守恒恒等式：
//
//	cash + Σ(未平仓成本) + Σ(未结转入场手续费) - 已实现盈亏 == 初始资金
//
// 其中已实现盈亏净扣双边手续费。恒等式被破坏说明存在程序缺陷，
// 账本立即停止后续变更并 panic，绝不带错继续。
package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"swing-ai/internal/fill"
)

var (
	// ErrInsufficientFunds 表示买入所需资金超过可用现金，属预期业务结果。
	ErrInsufficientFunds = errors.New("ledger: 可用资金不足")
	// ErrNoPosition 表示卖出时不存在对应持仓。
	ErrNoPosition = errors.New("ledger: 无可平仓位")
	// ErrUnfilledOrder 表示订单未处于成交状态。
	ErrUnfilledOrder = errors.New("ledger: 订单未成交，无法入账")
)

const conservationTolerance = 1e-6

// Portfolio 是账户资金状态的单一持有者。
// 自身不做并发保护：上层执行管理器以互斥锁串行化全部变更调用。
type Portfolio struct {
	initialBalance float64
	cash           float64
	feesPaid       float64
	realizedPnL    float64

	positions map[string]*Position
	openOrder []string
	closed    []*Position

	// equityCurve 记录每次平仓后的账面权益，用于推导最大回撤。
	equityCurve []float64

	halted bool
}

// Closure 描述一次平仓/减仓结果。
type Closure struct {
	PositionID  string
	Quantity    float64
	ExitPrice   float64
	RealizedPnL float64
	Full        bool
}

// ApplyResult 为 ApplyFill 的结果：买入返回新持仓ID，卖出返回平仓明细。
type ApplyResult struct {
	PositionID string
	Closure    *Closure
}

// NewPortfolio 以给定初始资金创建账本。
func NewPortfolio(initialBalance float64) (*Portfolio, error) {
	if initialBalance <= 0 {
		return nil, errors.New("ledger: 初始资金必须大于0")
	}
	p := &Portfolio{
		initialBalance: initialBalance,
		cash:           initialBalance,
		positions:      make(map[string]*Position),
		equityCurve:    []float64{initialBalance},
	}
	return p, nil
}

// ApplyFill 将一笔成交入账。买入创建持仓，卖出平掉 PositionID 指定的持仓
// （可部分减仓）。资金不足与无持仓属预期结果，以错误值返回；
// 对 CLOSED 持仓的成交与守恒破坏属程序缺陷，直接 panic。
func (p *Portfolio) ApplyFill(order fill.Order) (ApplyResult, error) {
	p.ensureMutable()

	if order.Status != fill.StatusFilled {
		return ApplyResult{}, ErrUnfilledOrder
	}
	if order.FilledQty <= 0 || order.FilledPrice <= 0 {
		return ApplyResult{}, fmt.Errorf("ledger: 成交数据无效 qty=%.8f price=%.8f", order.FilledQty, order.FilledPrice)
	}

	switch order.Side {
	case fill.SideBuy:
		return p.applyBuy(order)
	case fill.SideSell:
		return p.applySell(order)
	default:
		return ApplyResult{}, fmt.Errorf("ledger: 不支持的订单方向 %q", order.Side)
	}
}

func (p *Portfolio) applyBuy(order fill.Order) (ApplyResult, error) {
	cost := order.FilledQty * order.FilledPrice
	total := cost + order.Fee
	if total > p.cash+conservationTolerance {
		return ApplyResult{}, ErrInsufficientFunds
	}

	p.cash -= total
	p.feesPaid += order.Fee

	pos := &Position{
		ID:         uuid.NewString()[:8],
		Symbol:     order.Symbol,
		EntryPrice: order.FilledPrice,
		Quantity:   order.FilledQty,
		StopLoss:   order.StopLoss,
		TakeProfit: order.TakeProfit,
		OpenedAt:   order.CreatedAt,
		Status:     PositionOpen,
		EntryFee:   order.Fee,
	}
	if pos.OpenedAt.IsZero() {
		pos.OpenedAt = time.Now().UTC()
	}

	p.positions[pos.ID] = pos
	p.openOrder = append(p.openOrder, pos.ID)

	p.checkConservation()
	return ApplyResult{PositionID: pos.ID}, nil
}

func (p *Portfolio) applySell(order fill.Order) (ApplyResult, error) {
	if order.PositionID == "" {
		return ApplyResult{}, errors.New("ledger: 卖出订单缺少持仓ID")
	}

	pos, ok := p.positions[order.PositionID]
	if !ok {
		for _, closedPos := range p.closed {
			if closedPos.ID == order.PositionID {
				p.halted = true
				panic(fmt.Sprintf("ledger: 持仓 %s 已平仓，却收到新的成交", order.PositionID))
			}
		}
		return ApplyResult{}, ErrNoPosition
	}

	qty := order.FilledQty
	if qty > pos.Quantity+conservationTolerance {
		return ApplyResult{}, fmt.Errorf("ledger: 卖出数量 %.8f 超过持仓数量 %.8f", qty, pos.Quantity)
	}
	if qty > pos.Quantity {
		qty = pos.Quantity
	}

	proceeds := qty * order.FilledPrice
	p.cash += proceeds - order.Fee
	p.feesPaid += order.Fee

	entryFeeShare := pos.EntryFee * (qty / pos.Quantity)
	delta := (order.FilledPrice-pos.EntryPrice)*qty - order.Fee - entryFeeShare

	p.realizedPnL += delta
	pos.RealizedPnL += delta
	pos.Quantity -= qty
	pos.EntryFee -= entryFeeShare

	closure := &Closure{
		PositionID:  pos.ID,
		Quantity:    qty,
		ExitPrice:   order.FilledPrice,
		RealizedPnL: delta,
	}

	if pos.Quantity <= conservationTolerance {
		pos.Quantity = 0
		pos.EntryFee = 0
		pos.Status = PositionClosed
		pos.ExitPrice = order.FilledPrice
		pos.ClosedAt = time.Now().UTC()
		closure.Full = true

		delete(p.positions, pos.ID)
		p.removeFromOrder(pos.ID)
		p.closed = append(p.closed, pos)
		p.equityCurve = append(p.equityCurve, p.bookEquity())
	}

	p.checkConservation()
	return ApplyResult{Closure: closure}, nil
}

// Value 返回现金加未平仓持仓按当前价计算的市值，纯函数。
func (p *Portfolio) Value(currentPrice float64) float64 {
	total := p.cash
	for _, pos := range p.positions {
		total += pos.Quantity * currentPrice
	}
	return total
}

// OpenPositions 按开仓顺序返回未平仓持仓的快照。
func (p *Portfolio) OpenPositions() []Position {
	out := make([]Position, 0, len(p.openOrder))
	for _, id := range p.openOrder {
		if pos, ok := p.positions[id]; ok {
			out = append(out, *pos)
		}
	}
	return out
}

// ClosedPositions 按平仓顺序返回历史持仓的快照。
func (p *Portfolio) ClosedPositions() []Position {
	out := make([]Position, 0, len(p.closed))
	for _, pos := range p.closed {
		out = append(out, *pos)
	}
	return out
}

// OpenCount 返回未平仓数量。
func (p *Portfolio) OpenCount() int {
	return len(p.positions)
}

// CashBalance 返回当前现金余额。
func (p *Portfolio) CashBalance() float64 {
	return p.cash
}

// InitialBalance 返回初始资金。
func (p *Portfolio) InitialBalance() float64 {
	return p.initialBalance
}

// RealizedPnL 返回累计已实现盈亏（净扣手续费）。
func (p *Portfolio) RealizedPnL() float64 {
	return p.realizedPnL
}

// FeesPaid 返回累计已支付手续费。
func (p *Portfolio) FeesPaid() float64 {
	return p.feesPaid
}

// ConsecutiveLosses 返回最近连续亏损平仓笔数，用于风控熔断。
func (p *Portfolio) ConsecutiveLosses() int {
	streak := 0
	for i := len(p.closed) - 1; i >= 0; i-- {
		if p.closed[i].RealizedPnL < 0 {
			streak++
			continue
		}
		break
	}
	return streak
}

// Reset 将账本恢复到初始状态，仅供测试与开发使用。
func (p *Portfolio) Reset() {
	p.cash = p.initialBalance
	p.feesPaid = 0
	p.realizedPnL = 0
	p.positions = make(map[string]*Position)
	p.openOrder = nil
	p.closed = nil
	p.equityCurve = []float64{p.initialBalance}
	p.halted = false
}

func (p *Portfolio) removeFromOrder(id string) {
	for i, openID := range p.openOrder {
		if openID == id {
			p.openOrder = append(p.openOrder[:i], p.openOrder[i+1:]...)
			return
		}
	}
}

func (p *Portfolio) bookEquity() float64 {
	equity := p.cash
	for _, pos := range p.positions {
		equity += pos.CostBasis()
	}
	return equity
}

func (p *Portfolio) ensureMutable() {
	if p.halted {
		panic("ledger: 守恒校验已失败，账本拒绝继续变更")
	}
}

func (p *Portfolio) checkConservation() {
	lhs := p.cash - p.realizedPnL
	for _, pos := range p.positions {
		lhs += pos.CostBasis() + pos.EntryFee
	}

	tolerance := math.Max(conservationTolerance, p.initialBalance*1e-9)
	if math.Abs(lhs-p.initialBalance) > tolerance {
		p.halted = true
		panic(fmt.Sprintf("ledger: 资金守恒校验失败 lhs=%.10f initial=%.10f", lhs, p.initialBalance))
	}
}
