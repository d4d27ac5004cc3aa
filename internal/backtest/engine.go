// Package backtest 在历史K线上回放信号、风控与模拟成交的完整链路。
package backtest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"swing-ai/internal/engine"
	"swing-ai/internal/exchange"
	"swing-ai/internal/fill"
	"swing-ai/internal/indicator"
	"swing-ai/internal/ledger"
	"swing-ai/internal/risk"
	"swing-ai/internal/signal"
)

// Result 汇总回测结果。
type Result struct {
	Metrics      Metrics
	EquityCurve  []float64
	ReturnSeries []float64
	Stats        ledger.Stats
	FinalEquity  float64
}

// Engine 串联数据源、信号来源、风控与模拟执行。
type Engine struct {
	cfg        Config
	candles    CandleProvider
	provider   signal.Provider
	calculator *indicator.Calculator
	manager    *engine.Manager
	logger     *zap.Logger
}

// NewEngine 构建回测引擎。执行链路与实盘轮询完全一致，只是数据来自历史序列。
func NewEngine(cfg Config, candles CandleProvider, provider signal.Provider, logger *zap.Logger) (*Engine, error) {
	if candles == nil {
		return nil, fmt.Errorf("backtest: candle provider 不能为空")
	}
	if provider == nil {
		return nil, fmt.Errorf("backtest: signal provider 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg = cfg.normalize()

	portfolio, err := ledger.NewPortfolio(cfg.InitialEquity)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	simulator, err := fill.NewSimulator(cfg.FeeRate, cfg.SlippageRate)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	gate := risk.NewGate(cfg.Risk, logger)

	manager, err := engine.NewManager(cfg.Symbol, portfolio, simulator, gate, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	return &Engine{
		cfg:        cfg,
		candles:    candles,
		provider:   provider,
		calculator: indicator.NewCalculator(),
		manager:    manager,
		logger:     logger,
	}, nil
}

// Run 执行完整回测流程。
func (e *Engine) Run(ctx context.Context) (Result, error) {
	var (
		window  []exchange.Candle
		equity  []float64
		returns []float64
		step    int
		price   float64
	)

	for {
		candle, ok, err := e.candles.Next(ctx)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			break
		}

		window = append(window, candle)
		price = candle.Close
		step++

		e.manager.Tick(ctx, price)

		if len(window) >= e.cfg.WarmupCandles && step%e.cfg.DecisionEvery == 0 {
			if err := e.decide(ctx, window, price); err != nil {
				e.logger.Warn("回测决策步骤失败", zap.Error(err))
			}
		}

		value := e.manager.Value(price)
		if n := len(equity); n > 0 && equity[n-1] > 0 {
			returns = append(returns, value/equity[n-1]-1)
		}
		equity = append(equity, value)
	}

	stats := e.manager.Stats(price)
	return Result{
		Metrics:      calculateMetrics(equity, returns),
		EquityCurve:  equity,
		ReturnSeries: returns,
		Stats:        stats,
		FinalEquity:  e.manager.Value(price),
	}, nil
}

func (e *Engine) decide(ctx context.Context, window []exchange.Candle, price float64) error {
	result, err := e.calculator.Compute(exchange.Timeframe1h, window)
	if err != nil {
		return err
	}

	stats := e.manager.Stats(price)
	input := signal.ProviderInput{
		Symbol:        e.cfg.Symbol,
		Price:         price,
		VolumeRatio:   result.Volume.Ratio,
		ATR:           result.ATR.Absolute,
		RSI:           result.RSI,
		EMA20:         result.EMA20,
		OpenPositions: stats.OpenPositions,
		CashBalance:   stats.CashBalance,
		TotalValue:    stats.PortfolioValue,
	}

	sig, err := e.provider.Generate(ctx, input)
	if err != nil {
		return err
	}

	support := signal.Support{VolumeRatio: result.Volume.Ratio}
	e.manager.Submit(ctx, sig, support, price)
	return nil
}
