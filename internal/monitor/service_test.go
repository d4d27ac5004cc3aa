package monitor

import (
	"context"
	"testing"
	"time"

	"swing-ai/internal/config"
	"swing-ai/internal/engine"
	"swing-ai/internal/ledger"
	"swing-ai/internal/signal"
	"swing-ai/internal/store"
)

func testService(t *testing.T) *Service {
	t.Helper()

	sqlite, err := store.NewSQLite(config.DatabaseConfig{InMemory: true, MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("NewSQLite returned error: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	svc, err := NewService(sqlite, nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func TestRecordExecution_RoundTrip(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	record := engine.ExecutionRecord{
		ExecutionID: "EXEC_0001",
		Timestamp:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Symbol:      "SOL/USDT",
		Signal: signal.TradeSignal{
			Recommendation:  signal.RecommendationBuy,
			Confidence:      0.75,
			MarketCondition: signal.MarketTrending,
		},
		Outcome: engine.OutcomeExecuted,
	}
	if err := svc.RecordExecution(ctx, record); err != nil {
		t.Fatalf("RecordExecution returned error: %v", err)
	}

	rejected := record
	rejected.ExecutionID = "EXEC_0002"
	rejected.Outcome = engine.OutcomeRejected
	rejected.Reason = "volume insufficient"
	if err := svc.RecordExecution(ctx, rejected); err != nil {
		t.Fatalf("RecordExecution returned error: %v", err)
	}

	records, err := svc.ListExecutions(ctx, 10)
	if err != nil {
		t.Fatalf("ListExecutions returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// 按时间倒序返回。
	if records[0].ExecutionID != "EXEC_0002" {
		t.Errorf("expected newest record first, got %s", records[0].ExecutionID)
	}
	if records[1].Signal.Recommendation != signal.RecommendationBuy {
		t.Errorf("signal payload must survive the round trip, got %s", records[1].Signal.Recommendation)
	}
	if records[0].Reason != "volume insufficient" {
		t.Errorf("expected rejection reason preserved, got %q", records[0].Reason)
	}
}

func TestRecordTrigger(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	event := engine.TriggerEvent{
		PositionID:  "abc12345",
		Type:        "STOP_LOSS",
		Price:       145,
		FilledPrice: 144.855,
		Quantity:    25.5,
		Fee:         3.69,
		RealizedPnL: -138.5,
		Timestamp:   time.Now().UTC(),
	}
	if err := svc.RecordTrigger(ctx, event); err != nil {
		t.Fatalf("RecordTrigger returned error: %v", err)
	}
}

func TestRecordSnapshot_BestEffort(t *testing.T) {
	svc := testService(t)

	// 快照写入失败只打日志，这里验证正常路径不报错即可。
	svc.RecordSnapshot(context.Background(), ledger.Stats{
		InitialBalance: 10000,
		CashBalance:    9000,
		PortfolioValue: 10050,
	})
}

func TestListExecutions_DefaultLimit(t *testing.T) {
	svc := testService(t)

	records, err := svc.ListExecutions(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListExecutions returned error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty result on fresh store, got %d", len(records))
	}
}

func TestNewService_RequiresStore(t *testing.T) {
	if _, err := NewService(nil, nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}
