package signal

import (
	"context"
	"time"
)

// Recommendation 表示上游决策过程给出的交易建议。
type Recommendation string

const (
	RecommendationBuy  Recommendation = "BUY"
	RecommendationSell Recommendation = "SELL"
	RecommendationHold Recommendation = "HOLD"
	RecommendationWait Recommendation = "WAIT"
)

// MarketCondition 描述信号生成时的市场状态。
type MarketCondition string

const (
	MarketTrending MarketCondition = "TRENDING"
	MarketRanging  MarketCondition = "RANGING"
	MarketVolatile MarketCondition = "VOLATILE"
	MarketQuiet    MarketCondition = "QUIET"
	MarketUnknown  MarketCondition = "UNKNOWN"
)

// TradeSignal 是引擎消费的标准化交易信号，入场/止损/止盈为 0 时表示缺失。
// 信号在边界处校验一次，下游不再探测可选字段。
type TradeSignal struct {
	Recommendation  Recommendation  `json:"recommendation"`
	Confidence      float64         `json:"confidence"`
	Entry           float64         `json:"entry"`
	StopLoss        float64         `json:"stop_loss"`
	TakeProfit      float64         `json:"take_profit"`
	MarketCondition MarketCondition `json:"market_condition"`
	Reasoning       string          `json:"reasoning"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// Support 为随信号一同提供的风控辅助输入。
type Support struct {
	VolumeRatio float64 `json:"volume_ratio"`
}

// Provider 抽象信号来源，核心引擎只依赖其输出类型，
// 测试中可用合成信号替换真实的大模型调用。
type Provider interface {
	Generate(ctx context.Context, input ProviderInput) (TradeSignal, error)
}

// ProviderInput 为信号生成提供的市场与账户摘要。
type ProviderInput struct {
	Symbol        string
	Price         float64
	VolumeRatio   float64
	ATR           float64
	RSI           float64
	EMA20         float64
	OpenPositions int
	CashBalance   float64
	TotalValue    float64
}
