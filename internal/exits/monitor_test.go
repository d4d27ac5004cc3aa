package exits

import (
	"testing"

	"swing-ai/internal/ledger"
)

func openPosition(id string, stop, target float64) ledger.Position {
	return ledger.Position{
		ID:         id,
		Symbol:     "SOL/USDT",
		EntryPrice: 150,
		Quantity:   10,
		StopLoss:   stop,
		TakeProfit: target,
		Status:     ledger.PositionOpen,
	}
}

func TestScan_StopLossAtExactBoundary(t *testing.T) {
	m := NewMonitor()

	triggers := m.Scan([]ledger.Position{openPosition("p1", 145, 160)}, 145.0)
	if len(triggers) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(triggers))
	}
	if triggers[0].Type != TriggerStopLoss {
		t.Errorf("expected STOP_LOSS, got %s", triggers[0].Type)
	}
	if triggers[0].PositionID != "p1" {
		t.Errorf("expected position p1, got %s", triggers[0].PositionID)
	}
}

func TestScan_TakeProfitAtExactBoundary(t *testing.T) {
	m := NewMonitor()

	triggers := m.Scan([]ledger.Position{openPosition("p1", 145, 160)}, 160.0)
	if len(triggers) != 1 {
		t.Fatalf("expected 1 trigger, got %d", len(triggers))
	}
	if triggers[0].Type != TriggerTakeProfit {
		t.Errorf("expected TAKE_PROFIT, got %s", triggers[0].Type)
	}
}

func TestScan_StopLossPriorityWhenBothHit(t *testing.T) {
	m := NewMonitor()

	// 止损高于止盈的病态设置下，两个条件同时满足，止损优先。
	pos := openPosition("p1", 155, 150)
	triggers := m.Scan([]ledger.Position{pos}, 152)
	if len(triggers) != 1 {
		t.Fatalf("expected single trigger per position, got %d", len(triggers))
	}
	if triggers[0].Type != TriggerStopLoss {
		t.Errorf("expected STOP_LOSS priority, got %s", triggers[0].Type)
	}
}

func TestScan_NoTriggerInsideRange(t *testing.T) {
	m := NewMonitor()

	triggers := m.Scan([]ledger.Position{openPosition("p1", 145, 160)}, 150)
	if len(triggers) != 0 {
		t.Errorf("expected no trigger, got %d", len(triggers))
	}
}

func TestScan_UnsetLevelsNeverTrigger(t *testing.T) {
	m := NewMonitor()

	triggers := m.Scan([]ledger.Position{openPosition("p1", 0, 0)}, 1)
	if len(triggers) != 0 {
		t.Errorf("expected no trigger for unset levels, got %d", len(triggers))
	}
}

func TestScan_SkipsClosedPositions(t *testing.T) {
	m := NewMonitor()

	pos := openPosition("p1", 145, 160)
	pos.Status = ledger.PositionClosed
	triggers := m.Scan([]ledger.Position{pos}, 140)
	if len(triggers) != 0 {
		t.Errorf("expected closed position to be skipped, got %d triggers", len(triggers))
	}
}

func TestScan_MultiplePositionsIndependent(t *testing.T) {
	m := NewMonitor()

	positions := []ledger.Position{
		openPosition("p1", 145, 160),
		openPosition("p2", 130, 148),
		openPosition("p3", 100, 200),
	}
	triggers := m.Scan(positions, 148)

	if len(triggers) != 2 {
		t.Fatalf("expected 2 triggers, got %d", len(triggers))
	}
	if triggers[0].PositionID != "p1" || triggers[0].Type != TriggerStopLoss {
		t.Errorf("expected p1 STOP_LOSS first, got %s %s", triggers[0].PositionID, triggers[0].Type)
	}
	if triggers[1].PositionID != "p2" || triggers[1].Type != TriggerTakeProfit {
		t.Errorf("expected p2 TAKE_PROFIT, got %s %s", triggers[1].PositionID, triggers[1].Type)
	}
}

func TestScan_InvalidPriceIgnored(t *testing.T) {
	m := NewMonitor()

	triggers := m.Scan([]ledger.Position{openPosition("p1", 145, 160)}, 0)
	if len(triggers) != 0 {
		t.Errorf("expected no trigger for non-positive price, got %d", len(triggers))
	}
}
