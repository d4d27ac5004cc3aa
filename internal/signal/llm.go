package signal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"swing-ai/internal/config"
)

// LLMProvider 通过 OpenAI 兼容接口生成交易信号，实现 Provider。
type LLMProvider struct {
	cfg    config.OpenAIConfig
	logger *zap.Logger
	sdk    *openai.Client
}

// NewLLMProvider 使用给定配置创建信号提供方。
func NewLLMProvider(cfg config.OpenAIConfig, logger *zap.Logger) (*LLMProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api_key 不能为空")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout + 5*time.Second,
	}

	return &LLMProvider{
		cfg:    cfg,
		logger: logger,
		sdk:    openai.NewClientWithConfig(clientConfig),
	}, nil
}

// Generate 根据市场与账户摘要获取模型信号。
func (p *LLMProvider) Generate(ctx context.Context, input ProviderInput) (TradeSignal, error) {
	if p.cfg.Model == "" {
		return TradeSignal{}, errors.New("openai model 不能为空")
	}

	prompt, err := BuildPrompt(input)
	if err != nil {
		return TradeSignal{}, err
	}

	response, err := p.sdk.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0,
	})
	if err != nil {
		p.logger.Error("调用OpenAI失败", zap.Error(err))
		return TradeSignal{}, fmt.Errorf("调用OpenAI失败: %w", err)
	}

	if len(response.Choices) == 0 {
		return TradeSignal{}, errors.New("OpenAI 返回结果为空")
	}

	rawContent := strings.TrimSpace(response.Choices[0].Message.Content)
	if rawContent == "" {
		return TradeSignal{}, errors.New("OpenAI 返回内容为空")
	}

	sig, err := Parse(rawContent)
	if err != nil {
		p.logger.Error("解析模型信号失败",
			zap.Error(err),
			zap.String("raw_content", rawContent),
		)
		return TradeSignal{}, err
	}

	p.logger.Info("交易信号生成成功",
		zap.String("recommendation", string(sig.Recommendation)),
		zap.Float64("confidence", sig.Confidence),
		zap.String("market_condition", string(sig.MarketCondition)),
	)

	return sig, nil
}
