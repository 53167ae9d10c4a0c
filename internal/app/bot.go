package app

import (
	"context"

	"go.uber.org/zap"

	"futures-chat/internal/ai"
	"futures-chat/internal/exchange"
	"futures-chat/internal/order"
)

// BotResult 为一次决策流水线的产出。Error 记录下单阶段的失败，
// 决策本身成功时不作为错误上抛。
type BotResult struct {
	Action        string                  `json:"action"`
	Reason        string                  `json:"reason,omitempty"`
	OrderType     string                  `json:"order_type,omitempty"`
	Quantity      string                  `json:"quantity,omitempty"`
	Price         string                  `json:"price,omitempty"`
	OrderResponse *exchange.OrderResponse `json:"order_response,omitempty"`
	Error         string                  `json:"error,omitempty"`
	Decision      *ai.Decision            `json:"decision,omitempty"`
}

// RunBot 执行完整决策流水线：拉取行情、请求模型决策、规范化输出。
// execute 为真且决策为 BUY/SELL 时提交订单，下单失败记入 Error 字段。
func (s *service) RunBot(ctx context.Context, symbol string, execute bool) (BotResult, error) {
	if !s.ai.Configured() {
		return BotResult{}, ai.ErrNotConfigured
	}
	if symbol == "" {
		symbol = s.defaultSymbol
	}

	snapshot, err := s.market.Fetch(ctx, symbol)
	if err != nil {
		s.journal.RecordError(ctx, "拉取行情上下文失败", err, map[string]interface{}{"symbol": symbol})
		return BotResult{}, err
	}

	raw, err := s.ai.Complete(ctx, ai.DecisionSystemPrompt,
		[]ai.Message{{Role: "user", Content: ai.BuildDecisionPrompt(snapshot.Render())}},
		s.ai.DecisionTemperature(),
	)
	if err != nil {
		s.journal.RecordError(ctx, "请求模型决策失败", err, map[string]interface{}{"symbol": symbol})
		return BotResult{}, err
	}

	decision := ai.NormalizeDecision(raw)
	s.journal.RecordDecision(ctx, symbol, decision)
	s.logger.Info("模型决策完成",
		zap.String("symbol", symbol),
		zap.String("action", decision.Action),
		zap.Bool("parsed", decision.Parsed),
	)

	if !decision.IsTrade() {
		return BotResult{
			Action:   "HOLD",
			Reason:   decision.Reason,
			Decision: &decision,
		}, nil
	}

	result := BotResult{
		Action:    decision.Action,
		OrderType: decision.OrderType,
		Quantity:  decision.Quantity,
		Price:     decision.Price,
		Reason:    decision.Reason,
		Decision:  &decision,
	}

	if !execute {
		return result, nil
	}

	req := order.Request{
		Symbol:    symbol,
		Side:      decision.Action,
		OrderType: decision.OrderType,
		Quantity:  decision.Quantity,
		Price:     decision.Price,
	}
	resp, err := s.submitter.Submit(ctx, req)
	if err != nil {
		s.journal.RecordError(ctx, "决策下单失败", err, map[string]interface{}{"symbol": symbol})
		result.Error = err.Error()
		return result, nil
	}

	s.journal.RecordOrder(ctx, req, resp)
	result.OrderResponse = &resp
	return result, nil
}
