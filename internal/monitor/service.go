// Package monitor 负责把执行审计、出场触发与账户快照持久化到 SQLite。
package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"swing-ai/internal/engine"
	"swing-ai/internal/ledger"
	"swing-ai/internal/store"
)

// Service 实现 engine.Recorder，并额外提供账户快照与查询能力。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService 初始化监控服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	execution_id TEXT NOT NULL,
	symbol TEXT NOT NULL,
	outcome TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_executions_outcome ON executions(outcome);

CREATE TABLE IF NOT EXISTS exit_triggers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	position_id TEXT NOT NULL,
	trigger_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS portfolio_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	total_value REAL NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("monitor: 初始化表失败: %w", err)
	}
	return nil
}

// RecordExecution 写入一条执行审计记录。
func (s *Service) RecordExecution(ctx context.Context, record engine.ExecutionRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("monitor: 序列化执行记录失败: %w", err)
	}

	ts := record.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO executions (execution_id, symbol, outcome, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		record.ExecutionID, record.Symbol, string(record.Outcome), string(payload), ts.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入执行记录失败: %w", err)
	}

	return nil
}

// RecordTrigger 写入一条出场触发事件。
func (s *Service) RecordTrigger(ctx context.Context, event engine.TriggerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("monitor: 序列化出场事件失败: %w", err)
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exit_triggers (position_id, trigger_type, payload, created_at) VALUES (?, ?, ?, ?)`,
		event.PositionID, string(event.Type), string(payload), ts.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入出场事件失败: %w", err)
	}

	return nil
}

// RecordSnapshot 记录一次账户快照，失败只打日志。
func (s *Service) RecordSnapshot(ctx context.Context, stats ledger.Stats) {
	payload, err := json.Marshal(stats)
	if err != nil {
		s.logger.Warn("序列化账户快照失败", zap.Error(err))
		return
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO portfolio_snapshots (total_value, payload, created_at) VALUES (?, ?, ?)`,
		stats.PortfolioValue, string(payload), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		s.logger.Warn("记录账户快照失败", zap.Error(err))
	}
}

// ListExecutions 按时间倒序返回最近的执行记录。
func (s *Service) ListExecutions(ctx context.Context, limit int) ([]engine.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM executions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询执行记录失败: %w", err)
	}
	defer rows.Close()

	var records []engine.ExecutionRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("monitor: 读取执行记录失败: %w", err)
		}
		var record engine.ExecutionRecord
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			return nil, fmt.Errorf("monitor: 解析执行记录失败: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 遍历执行记录失败: %w", err)
	}

	return records, nil
}
