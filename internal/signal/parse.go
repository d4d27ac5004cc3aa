package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var validRecommendations = map[Recommendation]struct{}{
	RecommendationBuy:  {},
	RecommendationSell: {},
	RecommendationHold: {},
	RecommendationWait: {},
}

var validConditions = map[MarketCondition]struct{}{
	MarketTrending: {},
	MarketRanging:  {},
	MarketVolatile: {},
	MarketQuiet:    {},
	MarketUnknown:  {},
}

// Parse 从原始文本中提取并校验交易信号。
// 上游模型输出可能混有说明文字，这里只截取首个 JSON 对象；
// 格式错误属于可恢复的边界输入错误，不进入引擎。
func Parse(raw string) (TradeSignal, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return TradeSignal{}, err
	}

	var sig TradeSignal
	if err = json.Unmarshal(payload, &sig); err != nil {
		return TradeSignal{}, fmt.Errorf("解析信号JSON失败: %w", err)
	}

	sig.Recommendation = Recommendation(strings.ToUpper(strings.TrimSpace(string(sig.Recommendation))))
	sig.MarketCondition = MarketCondition(strings.ToUpper(strings.TrimSpace(string(sig.MarketCondition))))
	if sig.MarketCondition == "" {
		sig.MarketCondition = MarketUnknown
	}
	if sig.GeneratedAt.IsZero() {
		sig.GeneratedAt = time.Now().UTC()
	}

	if err = sig.Validate(); err != nil {
		return TradeSignal{}, err
	}

	return sig, nil
}

// Validate 校验信号字段合法性。
func (s TradeSignal) Validate() error {
	if s.Recommendation == "" {
		return errors.New("recommendation 不能为空")
	}
	if _, ok := validRecommendations[s.Recommendation]; !ok {
		return fmt.Errorf("recommendation 字段取值非法: %s", s.Recommendation)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence 必须在 [0,1] 区间，目前为 %f", s.Confidence)
	}
	if s.Entry < 0 || s.StopLoss < 0 || s.TakeProfit < 0 {
		return errors.New("价格字段不能为负")
	}
	if _, ok := validConditions[s.MarketCondition]; !ok {
		return fmt.Errorf("market_condition 字段取值非法: %s", s.MarketCondition)
	}
	return nil
}

func extractJSON(content string) ([]byte, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")

	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("输出中未找到有效JSON: %s", content)
	}

	return []byte(content[start : end+1]), nil
}
