package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
	Symbol      string `mapstructure:"symbol"`
	// Simulation=true 时不调用大模型，仅轮询价格并执行出场监控。
	Simulation bool `mapstructure:"simulation"`
}

// EngineConfig 控制模拟账户与成交模型。
type EngineConfig struct {
	InitialBalance float64 `mapstructure:"initial_balance"`
	// FeeRate 为成交金额的手续费比例，默认 0.001 (0.1%)。
	FeeRate float64 `mapstructure:"fee_rate"`
	// SlippageRate 为市价单滑点比例，买入抬价、卖出压价。
	SlippageRate float64 `mapstructure:"slippage_rate"`
}

// RiskConfig 管理风控闸门参数。
type RiskConfig struct {
	MaxRiskPerTrade      float64 `mapstructure:"max_risk_per_trade"`
	MinConfidence        float64 `mapstructure:"min_confidence"`
	MinRiskReward        float64 `mapstructure:"min_risk_reward"`
	MinVolumeRatio       float64 `mapstructure:"min_volume_ratio"`
	MaxPositions         int     `mapstructure:"max_positions"`
	MaxConsecutiveLosses int     `mapstructure:"max_consecutive_losses"`
}

// ExchangeConfig 描述行情数据来源。
type ExchangeConfig struct {
	Name       string      `mapstructure:"name"`
	Market     string      `mapstructure:"market"`
	APIKey     string      `mapstructure:"api_key"`
	APISecret  string      `mapstructure:"api_secret"`
	UseSandbox bool        `mapstructure:"use_sandbox"`
	Retry      RetryConfig `mapstructure:"retry"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// OpenAIConfig 描述大模型调用参数。
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// SchedulerConfig 控制主循环节奏。
type SchedulerConfig struct {
	// LoopInterval 为价格轮询与出场检查的间隔。
	LoopInterval time.Duration `mapstructure:"loop_interval"`
	// DecisionInterval 为信号生成与开仓评估的间隔。
	DecisionInterval time.Duration `mapstructure:"decision_interval"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.App.Symbol == "" {
		err = multierr.Append(err, errors.New("app.symbol 不能为空"))
	}
	if c.Engine.InitialBalance <= 0 {
		err = multierr.Append(err, errors.New("engine.initial_balance 必须大于0"))
	}
	if c.Engine.FeeRate < 0 || c.Engine.FeeRate > 0.05 {
		err = multierr.Append(err, errors.New("engine.fee_rate 应位于[0,0.05]"))
	}
	if c.Engine.SlippageRate < 0 || c.Engine.SlippageRate > 0.05 {
		err = multierr.Append(err, errors.New("engine.slippage_rate 应位于[0,0.05]"))
	}
	if c.Risk.MaxRiskPerTrade <= 0 || c.Risk.MaxRiskPerTrade > 1 {
		err = multierr.Append(err, errors.New("risk.max_risk_per_trade 必须位于(0,1]"))
	}
	if c.Risk.MinConfidence < 0 || c.Risk.MinConfidence > 1 {
		err = multierr.Append(err, errors.New("risk.min_confidence 必须位于[0,1]"))
	}
	if c.Risk.MinRiskReward <= 0 {
		err = multierr.Append(err, errors.New("risk.min_risk_reward 必须大于0"))
	}
	if c.Risk.MinVolumeRatio < 0 {
		err = multierr.Append(err, errors.New("risk.min_volume_ratio 不能为负"))
	}
	if c.Risk.MaxPositions <= 0 {
		err = multierr.Append(err, errors.New("risk.max_positions 必须大于0"))
	}
	if c.Risk.MaxConsecutiveLosses <= 0 {
		err = multierr.Append(err, errors.New("risk.max_consecutive_losses 必须大于0"))
	}
	if c.Exchange.Name == "" {
		err = multierr.Append(err, errors.New("exchange.name 不能为空"))
	}
	if c.Exchange.Market == "" {
		err = multierr.Append(err, errors.New("exchange.market 不能为空"))
	}
	if c.Exchange.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry.max_attempts 必须大于0"))
	}
	if c.Exchange.Retry.MinDelay <= 0 || c.Exchange.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry.delay 必须为正"))
	}
	if c.Exchange.Retry.MinDelay > c.Exchange.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("exchange.retry.min_delay 不能大于 max_delay"))
	}
	if !c.App.Simulation {
		if c.OpenAI.APIKey == "" {
			err = multierr.Append(err, errors.New("openai.api_key 不能为空 (simulation=false 时)"))
		}
		if c.OpenAI.Model == "" {
			err = multierr.Append(err, errors.New("openai.model 不能为空"))
		}
		if c.OpenAI.Timeout <= 0 {
			err = multierr.Append(err, errors.New("openai.timeout 必须大于0"))
		}
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}
	if c.Scheduler.LoopInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.loop_interval 必须大于0"))
	}
	if c.Scheduler.DecisionInterval <= 0 {
		err = multierr.Append(err, errors.New("scheduler.decision_interval 必须大于0"))
	}
	if c.Scheduler.DecisionInterval < c.Scheduler.LoopInterval {
		err = multierr.Append(err, errors.New("scheduler.decision_interval 不应小于 loop_interval"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
