package backtest

import "swing-ai/internal/config"

// Config 定义回测参数。
type Config struct {
	Symbol        string            // 交易对名称
	InitialEquity float64           // 初始资金
	FeeRate       float64           // 单边手续费率
	SlippageRate  float64           // 滑点率
	Risk          config.RiskConfig // 风控参数
	DecisionEvery int               // 每隔多少根K线请求一次信号
	WarmupCandles int               // 指标预热所需的最少K线数
}

func (c *Config) normalize() Config {
	cfg := *c
	if cfg.InitialEquity <= 0 {
		cfg.InitialEquity = 10000
	}
	if cfg.FeeRate <= 0 {
		cfg.FeeRate = 0.001
	}
	if cfg.SlippageRate < 0 {
		cfg.SlippageRate = 0.001
	}
	if cfg.DecisionEvery <= 0 {
		cfg.DecisionEvery = 1
	}
	if cfg.WarmupCandles <= 0 {
		cfg.WarmupCandles = 50
	}
	return cfg
}
