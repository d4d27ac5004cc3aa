package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"swing-ai/internal/config"
	"swing-ai/internal/exchange"
	"swing-ai/internal/signal"
)

func testCandles() []exchange.Candle {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var candles []exchange.Candle

	// 60根横盘K线用于指标预热，随后10根下跌触发止损。
	for i := 0; i < 60; i++ {
		candles = append(candles, exchange.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Open:      100, High: 101, Low: 99, Close: 100,
			Volume: 1000,
		})
	}
	for i := 0; i < 10; i++ {
		candles = append(candles, exchange.Candle{
			Timestamp: base.Add(time.Duration(60+i) * time.Hour),
			Open:      94, High: 95, Low: 93, Close: 94,
			Volume: 1000,
		})
	}
	return candles
}

func testBacktestConfig() Config {
	return Config{
		Symbol:        "SOL/USDT",
		InitialEquity: 10000,
		FeeRate:       0.001,
		SlippageRate:  0,
		Risk: config.RiskConfig{
			MaxRiskPerTrade:      0.02,
			MinConfidence:        0.60,
			MinRiskReward:        1.5,
			MinVolumeRatio:       0.7,
			MaxPositions:         3,
			MaxConsecutiveLosses: 3,
		},
		DecisionEvery: 5,
		WarmupCandles: 50,
	}
}

func TestRun_StopLossRoundTrip(t *testing.T) {
	issued := false
	provider := SignalProviderFunc(func(ctx context.Context, input signal.ProviderInput) (signal.TradeSignal, error) {
		if issued {
			return signal.TradeSignal{Recommendation: signal.RecommendationWait, MarketCondition: signal.MarketRanging}, nil
		}
		issued = true
		return signal.TradeSignal{
			Recommendation:  signal.RecommendationBuy,
			Confidence:      0.8,
			Entry:           input.Price,
			StopLoss:        input.Price - 5,
			TakeProfit:      input.Price + 10,
			MarketCondition: signal.MarketRanging,
		}, nil
	})

	engine, err := NewEngine(testBacktestConfig(), NewSliceCandleProvider(testCandles()), provider, nil)
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(result.EquityCurve) != 70 {
		t.Errorf("expected one equity point per candle, got %d", len(result.EquityCurve))
	}
	if result.Stats.ClosedPositions != 1 {
		t.Fatalf("expected exactly one closed trade, got %d", result.Stats.ClosedPositions)
	}
	if result.Stats.RealizedPnL >= 0 {
		t.Errorf("stopped-out trade must lose money, got %f", result.Stats.RealizedPnL)
	}
	if result.Stats.OpenPositions != 0 {
		t.Errorf("expected no open positions at end, got %d", result.Stats.OpenPositions)
	}
	if result.Metrics.MaxDrawdown <= 0 {
		t.Errorf("expected positive max drawdown, got %f", result.Metrics.MaxDrawdown)
	}
	if result.Metrics.TotalReturn >= 0 {
		t.Errorf("expected negative total return, got %f", result.Metrics.TotalReturn)
	}
	if math.Abs(result.FinalEquity-result.EquityCurve[len(result.EquityCurve)-1]) > 1e-9 {
		t.Errorf("final equity must match last curve point")
	}
}

func TestRun_NoSignalsMeansNoTrades(t *testing.T) {
	provider := SignalProviderFunc(func(ctx context.Context, input signal.ProviderInput) (signal.TradeSignal, error) {
		return signal.TradeSignal{Recommendation: signal.RecommendationWait, MarketCondition: signal.MarketQuiet}, nil
	})

	engine, err := NewEngine(testBacktestConfig(), NewSliceCandleProvider(testCandles()), provider, nil)
	if err != nil {
		t.Fatalf("NewEngine returned error: %v", err)
	}

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Stats.ClosedPositions != 0 || result.Stats.OpenPositions != 0 {
		t.Errorf("expected no trades, got open=%d closed=%d", result.Stats.OpenPositions, result.Stats.ClosedPositions)
	}
	if math.Abs(result.FinalEquity-10000) > 1e-9 {
		t.Errorf("equity must be untouched without trades, got %f", result.FinalEquity)
	}
}

func TestCalculateMetrics_Empty(t *testing.T) {
	metrics := calculateMetrics(nil, nil)
	if metrics.TotalReturn != 0 || metrics.MaxDrawdown != 0 || metrics.SharpeRatio != 0 {
		t.Errorf("expected zero metrics for empty input, got %+v", metrics)
	}
}

func TestComputeDrawdown(t *testing.T) {
	equity := []float64{100, 110, 99, 105, 120, 90}
	// 峰值120回落到90：回撤 25%。
	want := (120.0 - 90.0) / 120.0
	if got := computeDrawdown(equity); math.Abs(got-want) > 1e-9 {
		t.Errorf("expected drawdown %.4f, got %.4f", want, got)
	}
}
