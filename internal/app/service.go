package app

import (
	"context"

	"go.uber.org/zap"

	"futures-chat/internal/ai"
	"futures-chat/internal/config"
	"futures-chat/internal/confirm"
	"futures-chat/internal/exchange"
	"futures-chat/internal/execution"
	"futures-chat/internal/journal"
	"futures-chat/internal/market"
	"futures-chat/internal/order"
)

// marketFetcher 抽象行情上下文来源。
type marketFetcher interface {
	Fetch(ctx context.Context, symbol string) (market.Snapshot, error)
}

// orderSubmitter 抽象订单提交入口。
type orderSubmitter interface {
	Submit(ctx context.Context, req order.Request) (exchange.OrderResponse, error)
}

// llmClient 抽象模型调用。
type llmClient interface {
	Complete(ctx context.Context, system string, messages []ai.Message, temperature float32) (string, error)
	Configured() bool
	ChatTemperature() float32
	DecisionTemperature() float32
	HistoryLimit() int
}

// accountClient 覆盖服务层直接依赖的交易所操作。
type accountClient interface {
	HasCredentials() bool
	OpenOrders(ctx context.Context, symbol string) ([]exchange.OpenOrder, error)
	PositionRisk(ctx context.Context, symbol string) ([]exchange.Position, error)
	Symbols(ctx context.Context) ([]string, error)
}

// service 聚合对话、决策与下单流程的全部依赖。
type service struct {
	defaultSymbol string

	exchange  accountClient
	market    marketFetcher
	ai        llmClient
	broker    *confirm.Broker
	submitter orderSubmitter
	journal   *journal.Service
	logger    *zap.Logger
}

// HealthStatus 报告服务自身及外部凭证的就绪情况。
type HealthStatus struct {
	Status         string `json:"status"`
	APIConfigured  bool   `json:"api_configured"`
	GroqConfigured bool   `json:"groq_configured"`
}

// Health 返回健康状态。凭证缺失不视为故障，只如实上报。
func (s *service) Health() HealthStatus {
	return HealthStatus{
		Status:         "ok",
		APIConfigured:  s.exchange.HasCredentials(),
		GroqConfigured: s.ai.Configured(),
	}
}

// PlaceOrderResult 为直接下单接口的回执。
type PlaceOrderResult struct {
	Success     bool                   `json:"success"`
	Message     string                 `json:"message"`
	OrderID     string                 `json:"order_id,omitempty"`
	Status      string                 `json:"status,omitempty"`
	ExecutedQty string                 `json:"executed_qty,omitempty"`
	AvgPrice    string                 `json:"avg_price,omitempty"`
	Raw         map[string]interface{} `json:"raw_response,omitempty"`
}

// PlaceOrder 校验并提交一笔订单。
func (s *service) PlaceOrder(ctx context.Context, req order.Request) (PlaceOrderResult, error) {
	resp, err := s.submitter.Submit(ctx, req)
	if err != nil {
		s.journal.RecordError(ctx, "下单失败", err, map[string]interface{}{"symbol": req.Symbol})
		return PlaceOrderResult{}, err
	}

	s.journal.RecordOrder(ctx, req, resp)
	return PlaceOrderResult{
		Success:     true,
		Message:     "Order placed successfully",
		OrderID:     resp.OrderID,
		Status:      resp.Status,
		ExecutedQty: resp.ExecutedQty,
		AvgPrice:    resp.AvgPrice,
		Raw:         resp.Raw,
	}, nil
}

// ConfirmTrade 消费一次性令牌并执行对应的待确认交易。
func (s *service) ConfirmTrade(ctx context.Context, token string) (BotResult, error) {
	trade, err := s.broker.Confirm(token)
	if err != nil {
		return BotResult{}, err
	}
	s.journal.RecordConfirmation(ctx, token, trade)

	req := order.Request{
		Symbol:    trade.Symbol,
		Side:      trade.Action,
		OrderType: trade.OrderType,
		Quantity:  trade.Quantity,
		Price:     trade.Price,
	}
	resp, err := s.submitter.Submit(ctx, req)
	if err != nil {
		s.journal.RecordError(ctx, "确认交易下单失败", err, map[string]interface{}{
			"symbol": trade.Symbol,
			"token":  token,
		})
		return BotResult{}, err
	}

	s.journal.RecordOrder(ctx, req, resp)
	return BotResult{
		Action:        trade.Action,
		Reason:        trade.Reason,
		OrderType:     trade.OrderType,
		Quantity:      trade.Quantity,
		Price:         trade.Price,
		OrderResponse: &resp,
	}, nil
}

// maxSymbols 限制符号列表返回数量。
const maxSymbols = 50

// Symbols 返回可交易的 USDT 永续合约符号（截断到 maxSymbols）。
func (s *service) Symbols(ctx context.Context) ([]string, error) {
	symbols, err := s.exchange.Symbols(ctx)
	if err != nil {
		return nil, err
	}
	if len(symbols) > maxSymbols {
		symbols = symbols[:maxSymbols]
	}
	return symbols, nil
}

// ListEvents 按类型检索最近事件。
func (s *service) ListEvents(ctx context.Context, eventType journal.EventType, limit int) ([]journal.Event, error) {
	return s.journal.ListEvents(ctx, eventType, limit)
}

// newService 按配置装配服务依赖。凭证与 api_key 缺失均不阻止装配，
// 对应能力在调用时返回配置类错误。
func newService(cfg *config.Config, logger *zap.Logger, journalSvc *journal.Service) *service {
	exClient := exchange.NewClient(cfg.Exchange, logger)
	marketSvc := market.NewService(exClient, cfg.Exchange.PublicTimeout, logger)

	return &service{
		defaultSymbol: cfg.Exchange.DefaultSymbol,
		exchange:      exClient,
		market:        marketSvc,
		ai:            ai.NewClient(cfg.LLM, logger),
		broker:        confirm.NewBroker(),
		submitter:     execution.NewSubmitter(exClient, logger),
		journal:       journalSvc,
		logger:        logger,
	}
}
