// Package engine 实现执行管理器：信号 → 风控 → 模拟成交 → 账本 → 审计记录。
// 它是外部调用方使用的唯一入口。
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"swing-ai/internal/exits"
	"swing-ai/internal/fill"
	"swing-ai/internal/ledger"
	"swing-ai/internal/risk"
	"swing-ai/internal/signal"
)

// Manager 持有账本的唯一变更权。调度器与手动触发可能并发调用，
// 互斥锁串行化全部变更以保证守恒恒等式；读操作在读锁下
// 基于一致快照进行。核心不在 I/O 上阻塞，持久化在状态更新后尽力而为。
type Manager struct {
	mu sync.RWMutex

	symbol    string
	portfolio *ledger.Portfolio
	simulator *fill.Simulator
	gate      *risk.Gate
	monitor   *exits.Monitor
	recorder  Recorder
	logger    *zap.Logger

	execSeq int
}

// NewManager 创建执行管理器，recorder 允许为 nil（不持久化）。
func NewManager(
	symbol string,
	portfolio *ledger.Portfolio,
	simulator *fill.Simulator,
	gate *risk.Gate,
	recorder Recorder,
	logger *zap.Logger,
) (*Manager, error) {
	if symbol == "" {
		return nil, errors.New("engine: symbol 不能为空")
	}
	if portfolio == nil {
		return nil, errors.New("engine: portfolio 不能为空")
	}
	if simulator == nil {
		return nil, errors.New("engine: simulator 不能为空")
	}
	if gate == nil {
		return nil, errors.New("engine: risk gate 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		symbol:    symbol,
		portfolio: portfolio,
		simulator: simulator,
		gate:      gate,
		monitor:   exits.NewMonitor(),
		recorder:  recorder,
		logger:    logger,
	}, nil
}

// Submit 执行一次信号：风控评估、模拟成交、入账并生成审计记录。
// 拒绝立即返回闸门给出的唯一原因，同样落一条未执行的审计记录。
func (m *Manager) Submit(ctx context.Context, sig signal.TradeSignal, support signal.Support, currentPrice float64) ExecutionResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	execID := m.nextExecutionID()

	input := risk.EvaluationInput{
		Signal:            sig,
		Support:           support,
		Balance:           m.portfolio.Value(currentPrice),
		AvailableCash:     m.portfolio.CashBalance(),
		OpenPositions:     m.portfolio.OpenCount(),
		ConsecutiveLosses: m.portfolio.ConsecutiveLosses(),
	}

	assessment := m.gate.Evaluate(input)
	if !assessment.Approved {
		result := ExecutionResult{
			ExecutionID: execID,
			Outcome:     OutcomeRejected,
			Code:        assessment.Code,
			Reason:      assessment.Reason,
			Assessment:  assessment,
		}
		m.record(ctx, ExecutionRecord{
			ExecutionID: execID,
			Timestamp:   time.Now().UTC(),
			Symbol:      m.symbol,
			Signal:      sig,
			Assessment:  assessment,
			Outcome:     OutcomeRejected,
			Reason:      assessment.Reason,
		})
		m.logger.Info("信号被风控拒绝",
			zap.String("execution_id", execID),
			zap.String("code", string(assessment.Code)),
			zap.String("reason", assessment.Reason),
		)
		return result
	}

	switch sig.Recommendation {
	case signal.RecommendationBuy:
		return m.executeBuy(ctx, execID, sig, assessment, currentPrice)
	case signal.RecommendationSell:
		return m.executeSell(ctx, execID, sig, assessment, currentPrice)
	default:
		// 闸门已放行，到这里只可能是编程缺陷。
		panic(fmt.Sprintf("engine: 批准的建议类型非法 %q", sig.Recommendation))
	}
}

func (m *Manager) executeBuy(ctx context.Context, execID string, sig signal.TradeSignal, assessment risk.Assessment, currentPrice float64) ExecutionResult {
	order := fill.NewOrder(m.symbol, fill.SideBuy, assessment.Quantity, currentPrice)
	order.StopLoss = sig.StopLoss
	order.TakeProfit = sig.TakeProfit

	filled, err := m.simulator.Fill(order)
	if err != nil {
		return m.failExecution(ctx, execID, sig, assessment, OutcomeRejected, err.Error())
	}

	applied, err := m.portfolio.ApplyFill(filled)
	if err != nil {
		outcome := OutcomeRejected
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			outcome = OutcomeInsufficientFunds
		}
		return m.failExecution(ctx, execID, sig, assessment, outcome, err.Error())
	}

	record := ExecutionRecord{
		ExecutionID: execID,
		Timestamp:   time.Now().UTC(),
		Symbol:      m.symbol,
		Signal:      sig,
		Assessment:  assessment,
		Order:       &filled,
		Outcome:     OutcomeExecuted,
	}
	m.record(ctx, record)

	m.logger.Info("买入执行完成",
		zap.String("execution_id", execID),
		zap.String("position_id", applied.PositionID),
		zap.Float64("filled_price", filled.FilledPrice),
		zap.Float64("quantity", filled.FilledQty),
		zap.Float64("fee", filled.Fee),
	)

	return ExecutionResult{
		Executed:    true,
		ExecutionID: execID,
		Outcome:     OutcomeExecuted,
		Order:       &filled,
		PositionIDs: []string{applied.PositionID},
		Assessment:  assessment,
	}
}

// executeSell 按开仓先后顺序平掉持仓，累计数量不超过风控给出的额度。
// 账户不支持保证金，卖出只做平仓/减仓，从不建立空头。
func (m *Manager) executeSell(ctx context.Context, execID string, sig signal.TradeSignal, assessment risk.Assessment, currentPrice float64) ExecutionResult {
	open := m.portfolio.OpenPositions()
	if len(open) == 0 {
		return m.failExecution(ctx, execID, sig, assessment, OutcomeNoPosition, "无可平仓位，卖出信号忽略")
	}

	var (
		lastOrder   fill.Order
		positionIDs []string
		realized    float64
		remaining   = assessment.Quantity
	)

	for _, pos := range open {
		if remaining <= 0 {
			break
		}
		qty := pos.Quantity
		if qty > remaining {
			qty = remaining
		}

		order := fill.NewOrder(m.symbol, fill.SideSell, qty, currentPrice)
		order.PositionID = pos.ID

		filled, err := m.simulator.Fill(order)
		if err != nil {
			return m.failExecution(ctx, execID, sig, assessment, OutcomeRejected, err.Error())
		}

		applied, err := m.portfolio.ApplyFill(filled)
		if err != nil {
			return m.failExecution(ctx, execID, sig, assessment, OutcomeRejected, err.Error())
		}

		lastOrder = filled
		positionIDs = append(positionIDs, pos.ID)
		realized += applied.Closure.RealizedPnL
		remaining -= qty
	}

	record := ExecutionRecord{
		ExecutionID: execID,
		Timestamp:   time.Now().UTC(),
		Symbol:      m.symbol,
		Signal:      sig,
		Assessment:  assessment,
		Order:       &lastOrder,
		Outcome:     OutcomeExecuted,
		RealizedPnL: &realized,
	}
	m.record(ctx, record)

	m.logger.Info("卖出执行完成",
		zap.String("execution_id", execID),
		zap.Strings("position_ids", positionIDs),
		zap.Float64("realized_pnl", realized),
	)

	return ExecutionResult{
		Executed:    true,
		ExecutionID: execID,
		Outcome:     OutcomeExecuted,
		Order:       &lastOrder,
		PositionIDs: positionIDs,
		Assessment:  assessment,
	}
}

// Tick 用最新价格扫描出场条件，触发的持仓按市价平仓并入账。
// 无状态变化且无触发时返回空列表，重复调用结果一致。
func (m *Manager) Tick(ctx context.Context, currentPrice float64) []TriggerEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	triggers := m.monitor.Scan(m.portfolio.OpenPositions(), currentPrice)
	if len(triggers) == 0 {
		return nil
	}

	positionsByID := make(map[string]ledger.Position)
	for _, pos := range m.portfolio.OpenPositions() {
		positionsByID[pos.ID] = pos
	}

	events := make([]TriggerEvent, 0, len(triggers))
	for _, trigger := range triggers {
		pos, ok := positionsByID[trigger.PositionID]
		if !ok {
			continue
		}

		order := fill.NewOrder(m.symbol, fill.SideSell, pos.Quantity, currentPrice)
		order.PositionID = pos.ID

		filled, err := m.simulator.Fill(order)
		if err != nil {
			m.logger.Error("出场订单成交失败", zap.String("position_id", pos.ID), zap.Error(err))
			continue
		}

		applied, err := m.portfolio.ApplyFill(filled)
		if err != nil {
			m.logger.Error("出场成交入账失败", zap.String("position_id", pos.ID), zap.Error(err))
			continue
		}

		event := TriggerEvent{
			PositionID:  pos.ID,
			Type:        trigger.Type,
			Price:       currentPrice,
			FilledPrice: filled.FilledPrice,
			Quantity:    filled.FilledQty,
			Fee:         filled.Fee,
			RealizedPnL: applied.Closure.RealizedPnL,
			Timestamp:   time.Now().UTC(),
		}
		events = append(events, event)

		if m.recorder != nil {
			if recErr := m.recorder.RecordTrigger(ctx, event); recErr != nil {
				m.logger.Warn("记录出场事件失败", zap.Error(recErr))
			}
		}

		m.logger.Info("出场触发",
			zap.String("position_id", pos.ID),
			zap.String("type", string(trigger.Type)),
			zap.Float64("price", currentPrice),
			zap.Float64("realized_pnl", event.RealizedPnL),
		)
	}

	return events
}

// Value 返回账户总市值。
func (m *Manager) Value(currentPrice float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.portfolio.Value(currentPrice)
}

// Stats 返回按需推导的账户统计。
func (m *Manager) Stats(currentPrice float64) ledger.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.portfolio.Stats(currentPrice)
}

// Reset 重置账本到初始资金，仅供测试与开发使用。
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portfolio.Reset()
	m.execSeq = 0
	m.logger.Warn("账本已重置")
}

func (m *Manager) failExecution(ctx context.Context, execID string, sig signal.TradeSignal, assessment risk.Assessment, outcome Outcome, reason string) ExecutionResult {
	m.record(ctx, ExecutionRecord{
		ExecutionID: execID,
		Timestamp:   time.Now().UTC(),
		Symbol:      m.symbol,
		Signal:      sig,
		Assessment:  assessment,
		Outcome:     outcome,
		Reason:      reason,
	})

	m.logger.Info("交易未能执行",
		zap.String("execution_id", execID),
		zap.String("outcome", string(outcome)),
		zap.String("reason", reason),
	)

	return ExecutionResult{
		ExecutionID: execID,
		Outcome:     outcome,
		Reason:      reason,
		Assessment:  assessment,
	}
}

func (m *Manager) record(ctx context.Context, record ExecutionRecord) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.RecordExecution(ctx, record); err != nil {
		m.logger.Warn("记录执行审计失败", zap.String("execution_id", record.ExecutionID), zap.Error(err))
	}
}

func (m *Manager) nextExecutionID() string {
	m.execSeq++
	return fmt.Sprintf("EXEC_%04d", m.execSeq)
}
