package engine

import (
	"context"
	"time"

	"swing-ai/internal/exits"
	"swing-ai/internal/fill"
	"swing-ai/internal/risk"
	"swing-ai/internal/signal"
)

// Outcome 为执行记录的终态。
type Outcome string

const (
	OutcomeExecuted          Outcome = "executed"
	OutcomeRejected          Outcome = "rejected"
	OutcomeInsufficientFunds Outcome = "insufficient_funds"
	OutcomeNoPosition        Outcome = "no_position"
)

// ExecutionResult 为 Submit 的返回值。拒绝与资金不足均为预期业务结果，
// 以单一原因说明返回，绝不抛出。
type ExecutionResult struct {
	Executed    bool
	ExecutionID string
	Outcome     Outcome
	Code        risk.RejectCode
	Reason      string

	Order       *fill.Order
	PositionIDs []string
	Assessment  risk.Assessment
}

// ExecutionRecord 为只追加的审计记录，生成后转发给外部持久化协作方。
type ExecutionRecord struct {
	ExecutionID string             `json:"execution_id"`
	Timestamp   time.Time          `json:"timestamp"`
	Symbol      string             `json:"symbol"`
	Signal      signal.TradeSignal `json:"signal"`
	Assessment  risk.Assessment    `json:"assessment"`
	Order       *fill.Order        `json:"order,omitempty"`
	Outcome     Outcome            `json:"outcome"`
	Reason      string             `json:"reason,omitempty"`
	RealizedPnL *float64           `json:"realized_pnl,omitempty"`
}

// TriggerEvent 描述一次由价格更新触发的出场执行。
type TriggerEvent struct {
	PositionID  string            `json:"position_id"`
	Type        exits.TriggerType `json:"type"`
	Price       float64           `json:"price"`
	FilledPrice float64           `json:"filled_price"`
	Quantity    float64           `json:"quantity"`
	Fee         float64           `json:"fee"`
	RealizedPnL float64           `json:"realized_pnl"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Recorder 抽象外部持久化协作方。写入在内存状态更新之后进行，
// 失败只影响可观测性，不回滚交易。
type Recorder interface {
	RecordExecution(ctx context.Context, record ExecutionRecord) error
	RecordTrigger(ctx context.Context, event TriggerEvent) error
}
