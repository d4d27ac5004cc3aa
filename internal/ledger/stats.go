package ledger

// Stats 为按需推导的账户统计，全部源于账本当前状态，不做缓存。
type Stats struct {
	InitialBalance float64 `json:"initial_balance"`
	CashBalance    float64 `json:"cash_balance"`
	PortfolioValue float64 `json:"portfolio_value"`
	TotalPnL       float64 `json:"total_pnl"`
	TotalPnLPct    float64 `json:"total_pnl_pct"`
	RealizedPnL    float64 `json:"realized_pnl"`
	FeesPaid       float64 `json:"fees_paid"`

	OpenPositions     int     `json:"open_positions"`
	ClosedPositions   int     `json:"closed_positions"`
	WinningTrades     int     `json:"winning_trades"`
	LosingTrades      int     `json:"losing_trades"`
	WinRate           float64 `json:"win_rate"`
	ConsecutiveLosses int     `json:"consecutive_losses"`

	// MaxDrawdown 为已实现权益曲线上的最大回撤比例（0-1）。
	MaxDrawdown float64 `json:"max_drawdown"`
}

// Stats 以当前价格推导账户统计。
func (p *Portfolio) Stats(currentPrice float64) Stats {
	value := p.Value(currentPrice)
	totalPnL := value - p.initialBalance

	wins, losses := 0, 0
	for _, pos := range p.closed {
		switch {
		case pos.RealizedPnL > 0:
			wins++
		case pos.RealizedPnL < 0:
			losses++
		}
	}

	winRate := 0.0
	if closedWithOutcome := wins + losses; closedWithOutcome > 0 {
		winRate = float64(wins) / float64(closedWithOutcome)
	}

	return Stats{
		InitialBalance:    p.initialBalance,
		CashBalance:       p.cash,
		PortfolioValue:    value,
		TotalPnL:          totalPnL,
		TotalPnLPct:       totalPnL / p.initialBalance,
		RealizedPnL:       p.realizedPnL,
		FeesPaid:          p.feesPaid,
		OpenPositions:     len(p.positions),
		ClosedPositions:   len(p.closed),
		WinningTrades:     wins,
		LosingTrades:      losses,
		WinRate:           winRate,
		ConsecutiveLosses: p.ConsecutiveLosses(),
		MaxDrawdown:       maxDrawdown(p.equityCurve),
	}
}

func maxDrawdown(equity []float64) float64 {
	var peak float64
	maxDD := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - v) / peak
		if dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
