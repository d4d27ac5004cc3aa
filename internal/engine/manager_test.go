package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"swing-ai/internal/config"
	"swing-ai/internal/fill"
	"swing-ai/internal/ledger"
	"swing-ai/internal/risk"
	"swing-ai/internal/signal"
)

type fakeRecorder struct {
	executions []ExecutionRecord
	triggers   []TriggerEvent
	failWith   error
}

func (r *fakeRecorder) RecordExecution(ctx context.Context, record ExecutionRecord) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.executions = append(r.executions, record)
	return nil
}

func (r *fakeRecorder) RecordTrigger(ctx context.Context, event TriggerEvent) error {
	if r.failWith != nil {
		return r.failWith
	}
	r.triggers = append(r.triggers, event)
	return nil
}

func testManager(t *testing.T, recorder Recorder) *Manager {
	t.Helper()

	portfolio, err := ledger.NewPortfolio(10000)
	if err != nil {
		t.Fatalf("NewPortfolio returned error: %v", err)
	}
	simulator, err := fill.NewSimulator(0.001, 0)
	if err != nil {
		t.Fatalf("NewSimulator returned error: %v", err)
	}
	gate := risk.NewGate(config.RiskConfig{
		MaxRiskPerTrade:      0.02,
		MinConfidence:        0.60,
		MinRiskReward:        1.5,
		MinVolumeRatio:       0.7,
		MaxPositions:         3,
		MaxConsecutiveLosses: 3,
	}, nil)

	m, err := NewManager("SOL/USDT", portfolio, simulator, gate, recorder, nil)
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	return m
}

func buySignal(confidence, entry, stop, target float64) signal.TradeSignal {
	return signal.TradeSignal{
		Recommendation: signal.RecommendationBuy,
		Confidence:     confidence,
		Entry:          entry,
		StopLoss:       stop,
		TakeProfit:     target,
	}
}

func TestSubmit_ApprovedBuyOpensPosition(t *testing.T) {
	recorder := &fakeRecorder{}
	m := testManager(t, recorder)
	ctx := context.Background()

	result := m.Submit(ctx, buySignal(0.75, 150, 145, 160), signal.Support{VolumeRatio: 1.2}, 150)

	if !result.Executed {
		t.Fatalf("expected execution, got outcome %s (%s)", result.Outcome, result.Reason)
	}
	if result.ExecutionID != "EXEC_0001" {
		t.Errorf("expected execution id EXEC_0001, got %s", result.ExecutionID)
	}
	if len(result.PositionIDs) != 1 {
		t.Fatalf("expected one opened position, got %d", len(result.PositionIDs))
	}
	if result.Order == nil || result.Order.Status != fill.StatusFilled {
		t.Fatalf("expected filled order on result")
	}
	if math.Abs(result.Order.FilledQty-25.5) > 1e-9 {
		t.Errorf("expected sized quantity 25.5, got %f", result.Order.FilledQty)
	}

	if len(recorder.executions) != 1 {
		t.Fatalf("expected 1 execution record, got %d", len(recorder.executions))
	}
	if recorder.executions[0].Outcome != OutcomeExecuted {
		t.Errorf("expected outcome executed, got %s", recorder.executions[0].Outcome)
	}

	stats := m.Stats(150)
	if stats.OpenPositions != 1 {
		t.Errorf("expected 1 open position in stats, got %d", stats.OpenPositions)
	}
}

func TestSubmit_RejectionIsRecordedNotExecuted(t *testing.T) {
	recorder := &fakeRecorder{}
	m := testManager(t, recorder)
	ctx := context.Background()

	result := m.Submit(ctx, buySignal(0.9, 150, 145, 160), signal.Support{VolumeRatio: 0.5}, 150)

	if result.Executed {
		t.Fatalf("expected rejection")
	}
	if result.Outcome != OutcomeRejected {
		t.Errorf("expected outcome rejected, got %s", result.Outcome)
	}
	if result.Code != risk.RejectVolume {
		t.Errorf("expected volume rejection, got %q", result.Code)
	}

	if len(recorder.executions) != 1 {
		t.Fatalf("expected audit record for rejection, got %d", len(recorder.executions))
	}
	if recorder.executions[0].Outcome != OutcomeRejected {
		t.Errorf("expected recorded outcome rejected, got %s", recorder.executions[0].Outcome)
	}

	if m.Stats(150).OpenPositions != 0 {
		t.Errorf("rejected signal must not open a position")
	}
}

func TestSubmit_SellWithoutPosition(t *testing.T) {
	m := testManager(t, &fakeRecorder{})
	ctx := context.Background()

	sig := buySignal(0.8, 150, 145, 160)
	sig.Recommendation = signal.RecommendationSell
	result := m.Submit(ctx, sig, signal.Support{VolumeRatio: 1.2}, 150)

	if result.Executed {
		t.Fatalf("expected no execution without open positions")
	}
	if result.Outcome != OutcomeNoPosition {
		t.Errorf("expected outcome no_position, got %s", result.Outcome)
	}
}

func TestSubmit_SellClosesOldestPositionsFirst(t *testing.T) {
	m := testManager(t, &fakeRecorder{})
	ctx := context.Background()

	first := m.Submit(ctx, buySignal(0.75, 150, 145, 160), signal.Support{VolumeRatio: 1.2}, 150)
	if !first.Executed {
		t.Fatalf("setup buy failed: %s", first.Reason)
	}

	sig := buySignal(0.9, 155, 150, 170)
	sig.Recommendation = signal.RecommendationSell
	result := m.Submit(ctx, sig, signal.Support{VolumeRatio: 1.5}, 155)

	if !result.Executed {
		t.Fatalf("expected sell execution, got %s (%s)", result.Outcome, result.Reason)
	}
	if len(result.PositionIDs) != 1 || result.PositionIDs[0] != first.PositionIDs[0] {
		t.Errorf("expected oldest position %v closed, got %v", first.PositionIDs, result.PositionIDs)
	}
}

func TestSubmit_InsufficientFundsIsValueNotPanic(t *testing.T) {
	recorder := &fakeRecorder{}
	m := testManager(t, recorder)
	ctx := context.Background()

	// 名义金额被钳制到可用现金，但手续费叠加后超出现金。
	result := m.Submit(ctx, buySignal(1.0, 100, 99.9, 110), signal.Support{VolumeRatio: 1.5}, 100)

	if result.Executed {
		t.Fatalf("expected insufficient funds outcome")
	}
	if result.Outcome != OutcomeInsufficientFunds {
		t.Errorf("expected outcome insufficient_funds, got %s (%s)", result.Outcome, result.Reason)
	}
	if m.Stats(100).OpenPositions != 0 {
		t.Errorf("failed trade must not open a position")
	}
}

func TestTick_StopLossClosesPositionWithLoss(t *testing.T) {
	recorder := &fakeRecorder{}
	m := testManager(t, recorder)
	ctx := context.Background()

	buy := m.Submit(ctx, buySignal(0.75, 150, 145, 160), signal.Support{VolumeRatio: 1.2}, 150)
	if !buy.Executed {
		t.Fatalf("setup buy failed: %s", buy.Reason)
	}

	events := m.Tick(ctx, 145.0)
	if len(events) != 1 {
		t.Fatalf("expected 1 trigger event, got %d", len(events))
	}
	event := events[0]
	if event.Type != "STOP_LOSS" {
		t.Errorf("expected STOP_LOSS, got %s", event.Type)
	}
	if event.PositionID != buy.PositionIDs[0] {
		t.Errorf("expected position %s, got %s", buy.PositionIDs[0], event.PositionID)
	}
	if event.RealizedPnL >= 0 {
		t.Errorf("stop loss exit must realize a loss, got %f", event.RealizedPnL)
	}

	stats := m.Stats(145)
	if stats.OpenPositions != 0 || stats.ClosedPositions != 1 {
		t.Errorf("expected position closed, got open=%d closed=%d", stats.OpenPositions, stats.ClosedPositions)
	}

	if len(recorder.triggers) != 1 {
		t.Errorf("expected trigger event recorded, got %d", len(recorder.triggers))
	}
}

func TestTick_IdempotentWithoutStateChange(t *testing.T) {
	m := testManager(t, &fakeRecorder{})
	ctx := context.Background()

	buy := m.Submit(ctx, buySignal(0.75, 150, 145, 160), signal.Support{VolumeRatio: 1.2}, 150)
	if !buy.Executed {
		t.Fatalf("setup buy failed: %s", buy.Reason)
	}

	if events := m.Tick(ctx, 150); len(events) != 0 {
		t.Errorf("expected no trigger at entry price, got %d", len(events))
	}
	if events := m.Tick(ctx, 150); len(events) != 0 {
		t.Errorf("expected second scan to stay empty, got %d", len(events))
	}
}

func TestTick_TriggeredPositionNotTriggeredTwice(t *testing.T) {
	m := testManager(t, &fakeRecorder{})
	ctx := context.Background()

	buy := m.Submit(ctx, buySignal(0.75, 150, 145, 160), signal.Support{VolumeRatio: 1.2}, 150)
	if !buy.Executed {
		t.Fatalf("setup buy failed: %s", buy.Reason)
	}

	if events := m.Tick(ctx, 140); len(events) != 1 {
		t.Fatalf("expected single trigger, got %d", len(events))
	}
	if events := m.Tick(ctx, 140); len(events) != 0 {
		t.Errorf("closed position must not trigger again, got %d", len(events))
	}
}

func TestSubmit_PersistenceFailureDoesNotUndoTrade(t *testing.T) {
	recorder := &fakeRecorder{failWith: errors.New("db unavailable")}
	m := testManager(t, recorder)
	ctx := context.Background()

	result := m.Submit(ctx, buySignal(0.75, 150, 145, 160), signal.Support{VolumeRatio: 1.2}, 150)

	if !result.Executed {
		t.Fatalf("persistence failure must not block execution, got %s", result.Outcome)
	}
	if m.Stats(150).OpenPositions != 1 {
		t.Errorf("in-memory state must remain authoritative")
	}
}

func TestReset_RestoresBalanceAndSequence(t *testing.T) {
	m := testManager(t, &fakeRecorder{})
	ctx := context.Background()

	m.Submit(ctx, buySignal(0.75, 150, 145, 160), signal.Support{VolumeRatio: 1.2}, 150)
	m.Reset()

	if got := m.Value(150); math.Abs(got-10000) > 1e-9 {
		t.Errorf("expected value restored to 10000, got %f", got)
	}

	result := m.Submit(ctx, buySignal(0.75, 150, 145, 160), signal.Support{VolumeRatio: 1.2}, 150)
	if result.ExecutionID != "EXEC_0001" {
		t.Errorf("expected execution sequence reset, got %s", result.ExecutionID)
	}
}

func TestNewManager_ValidatesDependencies(t *testing.T) {
	portfolio, _ := ledger.NewPortfolio(10000)
	simulator, _ := fill.NewSimulator(0.001, 0.001)
	gate := risk.NewGate(config.RiskConfig{}, nil)

	if _, err := NewManager("", portfolio, simulator, gate, nil, nil); err == nil {
		t.Errorf("expected error for empty symbol")
	}
	if _, err := NewManager("SOL/USDT", nil, simulator, gate, nil, nil); err == nil {
		t.Errorf("expected error for nil portfolio")
	}
	if _, err := NewManager("SOL/USDT", portfolio, nil, gate, nil, nil); err == nil {
		t.Errorf("expected error for nil simulator")
	}
	if _, err := NewManager("SOL/USDT", portfolio, simulator, nil, nil, nil); err == nil {
		t.Errorf("expected error for nil gate")
	}
}
