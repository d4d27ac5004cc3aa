// Package risk 实现有序短路的交易前风控流水线与仓位计算。
package risk

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"swing-ai/internal/config"
	"swing-ai/internal/signal"
)

// Gate 按固定顺序执行风控检查，首个未通过的检查即是唯一拒绝原因，
// 绝不聚合多个原因。拒绝是预期业务结果，以值返回，从不抛出。
type Gate struct {
	cfg    config.RiskConfig
	logger *zap.Logger
}

// NewGate 创建风控闸门。
func NewGate(cfg config.RiskConfig, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		cfg:    cfg,
		logger: logger,
	}
}

// Evaluate 依序执行检查：熔断 → 仓位数 → 量能 → 建议类型 → 信心度 →
// 要素完整性 → 盈亏比；全部通过后计算精确下单数量。
func (g *Gate) Evaluate(input EvaluationInput) Assessment {
	quality := ClassifyVolume(input.Support.VolumeRatio)
	assessment := Assessment{VolumeQuality: quality}

	if input.ConsecutiveLosses >= g.cfg.MaxConsecutiveLosses {
		return g.reject(assessment, RejectTradingSuspended,
			fmt.Sprintf("连续亏损 %d 笔达到上限 %d，交易熔断", input.ConsecutiveLosses, g.cfg.MaxConsecutiveLosses))
	}

	if input.OpenPositions >= g.cfg.MaxPositions {
		return g.reject(assessment, RejectPositionLimit,
			fmt.Sprintf("未平仓数量 %d 达到上限 %d", input.OpenPositions, g.cfg.MaxPositions))
	}

	if !quality.TradingAllowed || input.Support.VolumeRatio < g.cfg.MinVolumeRatio {
		return g.reject(assessment, RejectVolume,
			fmt.Sprintf("量能 %.2fx 低于下限 %.2fx (%s)，假信号风险过高",
				input.Support.VolumeRatio, g.cfg.MinVolumeRatio, quality.Classification))
	}

	rec := input.Signal.Recommendation
	if rec == signal.RecommendationHold || rec == signal.RecommendationWait {
		// 预期中的空转结果，不是错误。
		return g.reject(assessment, RejectNoTrade,
			fmt.Sprintf("建议为 %s，无需交易", rec))
	}

	if input.Signal.Confidence < g.cfg.MinConfidence {
		return g.reject(assessment, RejectConfidence,
			fmt.Sprintf("信心度 %.2f 低于下限 %.2f", input.Signal.Confidence, g.cfg.MinConfidence))
	}

	entry := input.Signal.Entry
	stop := input.Signal.StopLoss
	target := input.Signal.TakeProfit
	if entry <= 0 || stop <= 0 || target <= 0 {
		return g.reject(assessment, RejectIncompleteSetup,
			"入场价/止损价/止盈价不完整，无法控制风险")
	}

	riskPerUnit := math.Abs(entry - stop)
	if riskPerUnit == 0 {
		return g.reject(assessment, RejectRiskReward, "止损距离为零，无法计算盈亏比")
	}

	rrRatio := math.Abs(target-entry) / riskPerUnit
	assessment.RiskRewardRatio = rrRatio
	if rrRatio < g.cfg.MinRiskReward {
		return g.reject(assessment, RejectRiskReward,
			fmt.Sprintf("盈亏比 %.2f 低于下限 %.2f", rrRatio, g.cfg.MinRiskReward))
	}

	// 全部闸门通过，计算仓位：以最大亏损预算除以单位风险得到基础数量，
	// 再按信心度与量能折扣缩放，名义金额不得超过可用现金。
	maxLoss := input.Balance * g.cfg.MaxRiskPerTrade
	baseQty := maxLoss / riskPerUnit
	qty := baseQty * input.Signal.Confidence * quality.Multiplier

	notional := qty * entry
	if notional > input.AvailableCash {
		notional = input.AvailableCash
		qty = notional / entry
	}

	assessment.Approved = true
	assessment.Quantity = qty
	assessment.Notional = notional
	assessment.MaxLoss = maxLoss
	if input.Balance > 0 {
		assessment.PositionSizePercent = notional / input.Balance
	}

	g.logger.Debug("风控评估通过",
		zap.String("recommendation", string(rec)),
		zap.Float64("quantity", qty),
		zap.Float64("notional", notional),
		zap.Float64("max_loss", maxLoss),
		zap.Float64("risk_reward", rrRatio),
	)

	return assessment
}

func (g *Gate) reject(assessment Assessment, code RejectCode, reason string) Assessment {
	assessment.Approved = false
	assessment.Code = code
	assessment.Reason = reason

	g.logger.Debug("风控评估拒绝",
		zap.String("code", string(code)),
		zap.String("reason", reason),
	)

	return assessment
}
