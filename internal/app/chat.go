package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"futures-chat/internal/ai"
	"futures-chat/internal/confirm"
	"futures-chat/internal/exchange"
	"futures-chat/internal/intent"
)

// placeIntentKeywords 命中任意一个即视为用户想要下单。
// 关键词按子串匹配，"buy "/"sell " 带尾部空格以规避 "buyer" 之类误报。
var placeIntentKeywords = []string{
	"place trade", "execute", "run bot", "place order", "trade now",
	"do it", "place", "limit order", "market order", "buy ", "sell ",
}

// accountDataKeywords 命中即在提示词中注入账户数据。
var accountDataKeywords = []string{
	"fetch my trades", "open orders", "my orders", "show orders",
	"positions", "my positions", "show positions", "running trades",
	"active orders",
}

// PendingTradeView 为返回给调用方的待确认交易，含一次性令牌。
type PendingTradeView struct {
	Token     string `json:"token"`
	Symbol    string `json:"symbol"`
	Action    string `json:"action"`
	OrderType string `json:"order_type"`
	Quantity  string `json:"quantity"`
	Price     string `json:"price,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// ChatResult 为一轮对话的产出。
type ChatResult struct {
	Reply        string            `json:"reply"`
	TradeResult  *BotResult        `json:"trade_result,omitempty"`
	PendingTrade *PendingTradeView `json:"pending_trade,omitempty"`
}

func hasAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// Chat 处理一轮对话：按需注入账户数据，识别下单意图，
// 可直接解析的订单跳过模型进入确认流程，否则交给模型回复或决策。
func (s *service) Chat(ctx context.Context, message string, history []ai.Message) (ChatResult, error) {
	// 对话全程依赖模型，缺少 api_key 时整个入口直接拒绝。
	if !s.ai.Configured() {
		return ChatResult{}, ai.ErrNotConfigured
	}

	symbol := intent.ExtractSymbol(message)
	lower := strings.ToLower(message)

	userMessage := message
	if hasAny(lower, accountDataKeywords) {
		userMessage = s.withAccountData(ctx, message)
	}

	placeIntent := hasAny(lower, placeIntentKeywords)

	if userOrder, ok := intent.Parse(message); placeIntent && ok {
		s.journal.RecordIntent(ctx, message, userOrder)
		result := s.proposeParsedOrder(ctx, userOrder)
		s.journal.RecordChat(ctx, symbol, message, result.Reply)
		return result, nil
	}

	reply, err := s.chatCompletion(ctx, symbol, userMessage, history)
	if err != nil {
		s.journal.RecordError(ctx, "对话调用失败", err, map[string]interface{}{"symbol": symbol})
		return ChatResult{}, err
	}

	result := ChatResult{Reply: reply}
	if placeIntent {
		s.appendDecisionProposal(ctx, symbol, &result)
	}

	s.journal.RecordChat(ctx, symbol, message, result.Reply)
	return result, nil
}

// withAccountData 拉取当前委托与持仓并拼接到用户消息后。
// 拉取失败不阻断对话，失败原因同样注入上下文。
func (s *service) withAccountData(ctx context.Context, message string) string {
	orders, err := s.exchange.OpenOrders(ctx, "")
	if err != nil {
		return fmt.Sprintf("%s\n\n[Could not fetch account data: %v]", message, err)
	}
	positions, err := s.exchange.PositionRisk(ctx, "")
	if err != nil {
		return fmt.Sprintf("%s\n\n[Could not fetch account data: %v]", message, err)
	}
	return fmt.Sprintf(
		"%s\n\n[User's account data - use this to answer:]\nOpen orders:\n%s\n\nPositions:\n%s",
		message, formatOpenOrders(orders), formatPositions(positions),
	)
}

func (s *service) chatCompletion(ctx context.Context, symbol, userMessage string, history []ai.Message) (string, error) {
	snapshot, err := s.market.Fetch(ctx, symbol)
	if err != nil {
		return "", err
	}

	system := ai.BuildChatSystemPrompt(symbol, snapshot.Render())

	limit := s.ai.HistoryLimit()
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	messages := make([]ai.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, ai.Message{Role: "user", Content: userMessage})

	return s.ai.Complete(ctx, system, messages, s.ai.ChatTemperature())
}

// proposeParsedOrder 把解析出的订单登记为待确认交易，不触碰模型。
func (s *service) proposeParsedOrder(ctx context.Context, userOrder intent.Order) ChatResult {
	priceLabel := userOrder.Price
	if priceLabel == "" {
		priceLabel = "market"
	}

	trade := confirm.PendingTrade{
		Symbol:    userOrder.Symbol,
		Action:    string(userOrder.Side),
		OrderType: string(userOrder.OrderType),
		Quantity:  userOrder.Quantity,
		Price:     userOrder.Price,
		Reason:    userOrder.Reason,
	}
	token := s.broker.Propose(trade)
	s.journal.RecordProposal(ctx, token, trade)
	s.logger.Info("登记用户指定订单",
		zap.String("symbol", userOrder.Symbol),
		zap.String("side", string(userOrder.Side)),
		zap.String("quantity", userOrder.Quantity),
	)

	reply := fmt.Sprintf("Got it. %s %s %s @ %s (%s).",
		userOrder.Side, userOrder.Quantity, userOrder.Symbol, priceLabel, userOrder.OrderType)
	reply += fmt.Sprintf("\n\n⚠️ Confirm: %s %s %s @ %s (%s). Click Confirm below.",
		userOrder.Side, userOrder.Quantity, userOrder.Symbol, priceLabel, userOrder.OrderType)

	return ChatResult{
		Reply: reply,
		PendingTrade: &PendingTradeView{
			Token:     token,
			Symbol:    trade.Symbol,
			Action:    trade.Action,
			OrderType: trade.OrderType,
			Quantity:  trade.Quantity,
			Price:     trade.Price,
			Reason:    trade.Reason,
		},
	}
}

// appendDecisionProposal 在用户表达下单意图但消息无法解析时，
// 跑一轮决策流水线（不执行），非 HOLD 决策进入确认流程。
func (s *service) appendDecisionProposal(ctx context.Context, symbol string, result *ChatResult) {
	bot, err := s.RunBot(ctx, symbol, false)
	if err != nil {
		result.Reply += fmt.Sprintf("\n\n❌ Analysis failed: %v", err)
		return
	}

	if bot.Action == "HOLD" {
		result.Reply += fmt.Sprintf("\n\n⏸️ Decided to HOLD: %s", bot.Reason)
		return
	}

	trade := confirm.PendingTrade{
		Symbol:    symbol,
		Action:    bot.Action,
		OrderType: bot.OrderType,
		Quantity:  bot.Quantity,
		Price:     bot.Price,
		Reason:    bot.Reason,
	}
	token := s.broker.Propose(trade)
	s.journal.RecordProposal(ctx, token, trade)

	orderType := bot.OrderType
	if orderType == "" {
		orderType = "MARKET"
	}
	result.Reply += fmt.Sprintf("\n\n⚠️ Confirm to place: %s %s %s (%s). Click Confirm below.",
		bot.Action, bot.Quantity, symbol, orderType)
	result.PendingTrade = &PendingTradeView{
		Token:     token,
		Symbol:    trade.Symbol,
		Action:    trade.Action,
		OrderType: trade.OrderType,
		Quantity:  trade.Quantity,
		Price:     trade.Price,
		Reason:    trade.Reason,
	}
}

func formatOpenOrders(orders []exchange.OpenOrder) string {
	if len(orders) == 0 {
		return "No open orders."
	}
	lines := make([]string, 0, len(orders))
	for _, o := range orders {
		price := "market"
		if o.Price > 0 {
			price = trimFloat(o.Price)
		}
		lines = append(lines, fmt.Sprintf("  • %s %s %s qty=%s price=%s status=%s",
			o.Symbol, o.Side, o.Type, trimFloat(o.Quantity), price, o.Status))
	}
	return strings.Join(lines, "\n")
}

func formatPositions(positions []exchange.Position) string {
	if len(positions) == 0 {
		return "No open positions."
	}
	lines := make([]string, 0, len(positions))
	for _, p := range positions {
		lines = append(lines, fmt.Sprintf("  • %s %s %s entry=%s mark=%s uPnL=%s",
			p.Symbol, p.Side, trimFloat(p.Size),
			trimFloat(p.EntryPrice), trimFloat(p.MarkPrice), trimFloat(p.UnrealizedPnl)))
	}
	return strings.Join(lines, "\n")
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.8f", v), "0"), ".")
}
