package risk

import (
	"swing-ai/internal/signal"
)

// RejectCode 为闸门拒绝的稳定标识；Reason 为对应的人读说明。
// 流水线短路执行，每次评估至多产生一个拒绝原因。
type RejectCode string

const (
	RejectNone             RejectCode = ""
	RejectTradingSuspended RejectCode = "trading suspended"
	RejectPositionLimit    RejectCode = "position limit reached"
	RejectVolume           RejectCode = "volume insufficient"
	RejectNoTrade          RejectCode = "no trade requested"
	RejectConfidence       RejectCode = "confidence too low"
	RejectIncompleteSetup  RejectCode = "incomplete trade setup"
	RejectRiskReward       RejectCode = "risk/reward below threshold"
)

// EvaluationInput 为一次风控评估的输入，账户侧数据由执行管理器注入。
type EvaluationInput struct {
	Signal  signal.TradeSignal
	Support signal.Support

	// Balance 为账户总市值（现金+持仓），用于推导单笔风险预算。
	Balance           float64
	AvailableCash     float64
	OpenPositions     int
	ConsecutiveLosses int
}

// Assessment 为单次评估的产物，每次评估重新生成，不作为可变状态保存。
// 批准时携带精确下单数量，执行层不再自行推导仓位。
type Assessment struct {
	Approved bool
	Code     RejectCode
	Reason   string

	Quantity            float64
	Notional            float64
	PositionSizePercent float64
	// MaxLoss 为本笔交易允许的最大亏损预算（balance × max_risk_per_trade）。
	MaxLoss         float64
	RiskRewardRatio float64
	VolumeQuality   VolumeQuality
}
