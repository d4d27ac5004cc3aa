package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"swing-ai/internal/config"
	"swing-ai/internal/engine"
	"swing-ai/internal/exchange"
	"swing-ai/internal/fill"
	"swing-ai/internal/indicator"
	"swing-ai/internal/ledger"
	"swing-ai/internal/monitor"
	"swing-ai/internal/risk"
	"swing-ai/internal/signal"
	"swing-ai/internal/store"
)

// orchestrator 串联行情、信号、风控与模拟执行的一次完整轮询。
type orchestrator struct {
	symbol     string
	client     *exchange.Client
	market     *exchange.MarketDataService
	calculator *indicator.Calculator
	provider   signal.Provider
	manager    *engine.Manager
	monitor    *monitor.Service
	logger     *zap.Logger

	decisionInterval time.Duration
	lastDecision     time.Time
}

func newOrchestrator(cfg *config.Config, logger *zap.Logger, store *store.Store) (*orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	symbol := cfg.App.Symbol

	portfolio, err := ledger.NewPortfolio(cfg.Engine.InitialBalance)
	if err != nil {
		return nil, fmt.Errorf("初始化账本失败: %w", err)
	}

	simulator, err := fill.NewSimulator(cfg.Engine.FeeRate, cfg.Engine.SlippageRate)
	if err != nil {
		return nil, fmt.Errorf("初始化成交模拟器失败: %w", err)
	}

	gate := risk.NewGate(cfg.Risk, logger)

	monitorSvc, err := monitor.NewService(store, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化监控服务失败: %w", err)
	}

	manager, err := engine.NewManager(symbol, portfolio, simulator, gate, monitorSvc, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化执行管理器失败: %w", err)
	}

	exClient, err := exchange.NewClient(cfg.Exchange, symbol, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化行情客户端失败: %w", err)
	}

	// 仿真模式下不调用大模型，只轮询价格并执行出场监控。
	var provider signal.Provider
	if !cfg.App.Simulation {
		llm, err := signal.NewLLMProvider(cfg.OpenAI, logger)
		if err != nil {
			return nil, fmt.Errorf("初始化信号提供方失败: %w", err)
		}
		provider = llm
	} else {
		logger.Info("系统处于仿真模式，跳过大模型信号")
	}

	return &orchestrator{
		symbol:           symbol,
		client:           exClient,
		market:           exchange.NewMarketDataService(exClient, logger),
		calculator:       indicator.NewCalculator(),
		provider:         provider,
		manager:          manager,
		monitor:          monitorSvc,
		logger:           logger,
		decisionInterval: cfg.Scheduler.DecisionInterval,
	}, nil
}

// Tick 执行一次轮询：拉取最新价、触发出场监控并按需请求新信号。
func (o *orchestrator) Tick(ctx context.Context) error {
	ticker, err := o.client.FetchTicker(ctx)
	if err != nil {
		return fmt.Errorf("拉取最新价失败: %w", err)
	}
	price := ticker.Last

	events := o.manager.Tick(ctx, price)
	for _, event := range events {
		o.logger.Info("出场事件",
			zap.String("position_id", event.PositionID),
			zap.String("type", string(event.Type)),
			zap.Float64("realized_pnl", event.RealizedPnL),
		)
	}

	o.monitor.RecordSnapshot(ctx, o.manager.Stats(price))

	if o.provider == nil {
		return nil
	}

	now := time.Now().UTC()
	if !o.lastDecision.IsZero() && now.Sub(o.lastDecision) < o.decisionInterval {
		return nil
	}

	if err := o.decide(ctx, price); err != nil {
		return err
	}
	o.lastDecision = now
	return nil
}

func (o *orchestrator) decide(ctx context.Context, price float64) error {
	snapshot, err := o.market.GetSnapshot(ctx, exchange.DefaultSnapshotRequest())
	if err != nil {
		return fmt.Errorf("拉取市场数据失败: %w", err)
	}

	result, err := o.calculator.Compute(exchange.Timeframe1h, snapshot.Candles1H)
	if err != nil {
		return fmt.Errorf("计算指标失败: %w", err)
	}

	stats := o.manager.Stats(price)
	input := signal.ProviderInput{
		Symbol:        o.symbol,
		Price:         price,
		VolumeRatio:   result.Volume.Ratio,
		ATR:           result.ATR.Absolute,
		RSI:           result.RSI,
		EMA20:         result.EMA20,
		OpenPositions: stats.OpenPositions,
		CashBalance:   stats.CashBalance,
		TotalValue:    stats.PortfolioValue,
	}

	sig, err := o.provider.Generate(ctx, input)
	if err != nil {
		return fmt.Errorf("生成交易信号失败: %w", err)
	}

	support := signal.Support{VolumeRatio: result.Volume.Ratio}
	execResult := o.manager.Submit(ctx, sig, support, price)

	o.logger.Info("信号处理完成",
		zap.String("execution_id", execResult.ExecutionID),
		zap.String("outcome", string(execResult.Outcome)),
		zap.Bool("executed", execResult.Executed),
	)

	return nil
}
