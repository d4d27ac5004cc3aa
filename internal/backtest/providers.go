package backtest

import (
	"context"
	"errors"

	"swing-ai/internal/exchange"
	"swing-ai/internal/signal"
)

// CandleProvider 按时间顺序提供K线。
type CandleProvider interface {
	Next(ctx context.Context) (exchange.Candle, bool, error)
}

// SliceCandleProvider 以固定序列提供K线。
type SliceCandleProvider struct {
	candles []exchange.Candle
	index   int
}

func NewSliceCandleProvider(candles []exchange.Candle) *SliceCandleProvider {
	return &SliceCandleProvider{candles: candles}
}

func (p *SliceCandleProvider) Next(ctx context.Context) (exchange.Candle, bool, error) {
	if p.index >= len(p.candles) {
		return exchange.Candle{}, false, nil
	}
	candle := p.candles[p.index]
	p.index++
	return candle, true, nil
}

// SignalProviderFunc 允许使用函数作为信号来源，便于注入规则策略。
type SignalProviderFunc func(ctx context.Context, input signal.ProviderInput) (signal.TradeSignal, error)

func (f SignalProviderFunc) Generate(ctx context.Context, input signal.ProviderInput) (signal.TradeSignal, error) {
	if f == nil {
		return signal.TradeSignal{}, errors.New("backtest: 信号函数未实现")
	}
	return f(ctx, input)
}
