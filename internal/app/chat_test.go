package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"futures-chat/internal/ai"
	"futures-chat/internal/config"
	"futures-chat/internal/confirm"
	"futures-chat/internal/exchange"
	"futures-chat/internal/journal"
	"futures-chat/internal/market"
	"futures-chat/internal/order"
	"futures-chat/internal/store"
)

type mockExchange struct {
	credentials bool
	openOrders  []exchange.OpenOrder
	positions   []exchange.Position
	symbols     []string
}

func (m *mockExchange) HasCredentials() bool { return m.credentials }

func (m *mockExchange) OpenOrders(ctx context.Context, symbol string) ([]exchange.OpenOrder, error) {
	return m.openOrders, nil
}

func (m *mockExchange) PositionRisk(ctx context.Context, symbol string) ([]exchange.Position, error) {
	return m.positions, nil
}

func (m *mockExchange) Symbols(ctx context.Context) ([]string, error) {
	return m.symbols, nil
}

type mockMarket struct {
	snapshot market.Snapshot
	err      error
}

func (m *mockMarket) Fetch(ctx context.Context, symbol string) (market.Snapshot, error) {
	if m.err != nil {
		return market.Snapshot{}, m.err
	}
	snapshot := m.snapshot
	snapshot.Symbol = symbol
	return snapshot, nil
}

type mockLLM struct {
	replies       []string
	calls         int
	systems       []string
	notConfigured bool
}

func (m *mockLLM) Configured() bool { return !m.notConfigured }

func (m *mockLLM) Complete(ctx context.Context, system string, messages []ai.Message, temperature float32) (string, error) {
	m.systems = append(m.systems, system)
	reply := m.replies[m.calls]
	m.calls++
	return reply, nil
}

func (m *mockLLM) ChatTemperature() float32     { return 0.5 }
func (m *mockLLM) DecisionTemperature() float32 { return 0.3 }
func (m *mockLLM) HistoryLimit() int            { return 10 }

type mockSubmitter struct {
	requests []order.Request
	response exchange.OrderResponse
	err      error
}

func (m *mockSubmitter) Submit(ctx context.Context, req order.Request) (exchange.OrderResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return exchange.OrderResponse{}, m.err
	}
	return m.response, nil
}

func newTestService(t *testing.T, llm llmClient, submitter orderSubmitter) *service {
	t.Helper()

	st, err := store.NewSQLite(config.DatabaseConfig{InMemory: true, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("打开内存数据库失败: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	journalSvc, err := journal.NewService(st, nil)
	if err != nil {
		t.Fatalf("初始化日志服务失败: %v", err)
	}

	return &service{
		defaultSymbol: "BTCUSDT",
		exchange:      &mockExchange{},
		market:        &mockMarket{snapshot: market.Snapshot{Price: 61000}},
		ai:            llm,
		broker:        confirm.NewBroker(),
		submitter:     submitter,
		journal:       journalSvc,
		logger:        zap.NewNop(),
	}
}

func TestChatParsedOrderSkipsModel(t *testing.T) {
	llm := &mockLLM{}
	svc := newTestService(t, llm, &mockSubmitter{})

	result, err := svc.Chat(context.Background(), "limit buy btcusdt 61000 100 dollars", nil)
	if err != nil {
		t.Fatalf("对话失败: %v", err)
	}
	if llm.calls != 0 {
		t.Fatalf("用户明确指定订单时不应调用模型，实际调用 %d 次", llm.calls)
	}
	if result.PendingTrade == nil {
		t.Fatal("期望返回待确认交易")
	}
	if result.PendingTrade.Symbol != "BTCUSDT" || result.PendingTrade.Action != "BUY" {
		t.Fatalf("待确认交易内容错误: %+v", result.PendingTrade)
	}
	if result.PendingTrade.OrderType != "LIMIT" || result.PendingTrade.Price != "61000" {
		t.Fatalf("期望 LIMIT@61000，实际 %+v", result.PendingTrade)
	}
	if result.PendingTrade.Quantity != "0.002" {
		t.Fatalf("期望数量 0.002，实际 %s", result.PendingTrade.Quantity)
	}
	if !strings.Contains(result.Reply, "Confirm") {
		t.Fatalf("回复应包含确认提示: %s", result.Reply)
	}
	if svc.broker.Pending() != 1 {
		t.Fatalf("期望 1 笔待确认交易，实际 %d", svc.broker.Pending())
	}
}

func TestChatPlainQuestionGoesToModel(t *testing.T) {
	llm := &mockLLM{replies: []string{"Looks bullish."}}
	svc := newTestService(t, llm, &mockSubmitter{})

	result, err := svc.Chat(context.Background(), "what do you think about btc", nil)
	if err != nil {
		t.Fatalf("对话失败: %v", err)
	}
	if llm.calls != 1 {
		t.Fatalf("期望调用模型 1 次，实际 %d", llm.calls)
	}
	if result.Reply != "Looks bullish." {
		t.Fatalf("回复错误: %s", result.Reply)
	}
	if result.PendingTrade != nil {
		t.Fatal("普通问题不应产生待确认交易")
	}
	if !strings.Contains(llm.systems[0], "BTCUSDT") {
		t.Fatalf("系统提示词应包含交易对: %s", llm.systems[0])
	}
}

func TestChatPlaceIntentRunsDecision(t *testing.T) {
	llm := &mockLLM{replies: []string{
		"Sure, let me analyze.",
		`{"action": "BUY", "order_type": "MARKET", "quantity": "0.001", "price": null, "reason": "momentum"}`,
	}}
	submitter := &mockSubmitter{}
	svc := newTestService(t, llm, submitter)

	result, err := svc.Chat(context.Background(), "run bot for eth", nil)
	if err != nil {
		t.Fatalf("对话失败: %v", err)
	}
	if llm.calls != 2 {
		t.Fatalf("期望调用模型 2 次（对话+决策），实际 %d", llm.calls)
	}
	if result.PendingTrade == nil {
		t.Fatal("非 HOLD 决策应进入确认流程")
	}
	if result.PendingTrade.Action != "BUY" || result.PendingTrade.Symbol != "ETHUSDT" {
		t.Fatalf("待确认交易内容错误: %+v", result.PendingTrade)
	}
	if len(submitter.requests) != 0 {
		t.Fatal("确认前不应提交订单")
	}
	if !strings.Contains(result.Reply, "Confirm to place") {
		t.Fatalf("回复应包含确认提示: %s", result.Reply)
	}
}

func TestChatHoldDecisionAppendsReason(t *testing.T) {
	llm := &mockLLM{replies: []string{
		"Let me check.",
		`{"action": "HOLD", "reason": "sideways market"}`,
	}}
	svc := newTestService(t, llm, &mockSubmitter{})

	result, err := svc.Chat(context.Background(), "place trade if it makes sense", nil)
	if err != nil {
		t.Fatalf("对话失败: %v", err)
	}
	if result.PendingTrade != nil {
		t.Fatal("HOLD 决策不应产生待确认交易")
	}
	if !strings.Contains(result.Reply, "Decided to HOLD: sideways market") {
		t.Fatalf("回复应包含 HOLD 原因: %s", result.Reply)
	}
}

func TestConfirmTradeConsumesToken(t *testing.T) {
	submitter := &mockSubmitter{response: exchange.OrderResponse{OrderID: "42", Status: "NEW"}}
	svc := newTestService(t, &mockLLM{}, submitter)

	token := svc.broker.Propose(confirm.PendingTrade{
		Symbol:    "BTCUSDT",
		Action:    "BUY",
		OrderType: "MARKET",
		Quantity:  "0.002",
	})

	result, err := svc.ConfirmTrade(context.Background(), token)
	if err != nil {
		t.Fatalf("确认交易失败: %v", err)
	}
	if result.OrderResponse == nil || result.OrderResponse.OrderID != "42" {
		t.Fatalf("回执错误: %+v", result.OrderResponse)
	}
	if len(submitter.requests) != 1 {
		t.Fatalf("期望提交 1 笔订单，实际 %d", len(submitter.requests))
	}
	if got := submitter.requests[0]; got.Symbol != "BTCUSDT" || got.Side != "BUY" {
		t.Fatalf("提交的订单内容错误: %+v", got)
	}

	if _, err := svc.ConfirmTrade(context.Background(), token); err != confirm.ErrInvalidToken {
		t.Fatalf("重复确认应返回 ErrInvalidToken，实际 %v", err)
	}
}

func TestRunBotWithoutTradeDoesNotSubmit(t *testing.T) {
	llm := &mockLLM{replies: []string{"not json at all"}}
	submitter := &mockSubmitter{}
	svc := newTestService(t, llm, submitter)

	result, err := svc.RunBot(context.Background(), "", true)
	if err != nil {
		t.Fatalf("执行决策失败: %v", err)
	}
	if result.Action != "HOLD" {
		t.Fatalf("无法解析时期望 HOLD，实际 %s", result.Action)
	}
	if result.Reason != "Failed to parse LLM response" {
		t.Fatalf("原因错误: %s", result.Reason)
	}
	if len(submitter.requests) != 0 {
		t.Fatal("HOLD 不应提交订单")
	}
}

func TestRunBotExecuteCapturesOrderError(t *testing.T) {
	llm := &mockLLM{replies: []string{
		`{"action": "SELL", "order_type": "MARKET", "quantity": "0.001", "reason": "overbought"}`,
	}}
	submitter := &mockSubmitter{err: &exchange.APIError{Op: "PlaceOrder", Message: "Margin is insufficient"}}
	svc := newTestService(t, llm, submitter)

	result, err := svc.RunBot(context.Background(), "BTCUSDT", true)
	if err != nil {
		t.Fatalf("下单失败应记录在结果中而不是上抛: %v", err)
	}
	if result.Action != "SELL" {
		t.Fatalf("期望动作 SELL，实际 %s", result.Action)
	}
	if !strings.Contains(result.Error, "Margin is insufficient") {
		t.Fatalf("期望记录下单错误，实际 %q", result.Error)
	}
	if result.OrderResponse != nil {
		t.Fatal("下单失败不应有回执")
	}
}

func TestFormatAccountData(t *testing.T) {
	if got := formatOpenOrders(nil); got != "No open orders." {
		t.Fatalf("空委托格式错误: %s", got)
	}
	if got := formatPositions(nil); got != "No open positions." {
		t.Fatalf("空持仓格式错误: %s", got)
	}

	orders := formatOpenOrders([]exchange.OpenOrder{
		{Symbol: "BTCUSDT", Side: "BUY", Type: "LIMIT", Quantity: 0.002, Price: 61000, Status: "NEW"},
	})
	if !strings.Contains(orders, "BTCUSDT BUY LIMIT qty=0.002 price=61000 status=NEW") {
		t.Fatalf("委托格式错误: %s", orders)
	}

	positions := formatPositions([]exchange.Position{
		{Symbol: "ETHUSDT", Side: "SHORT", Size: 0.5, EntryPrice: 3200, MarkPrice: 3150, UnrealizedPnl: 25},
	})
	if !strings.Contains(positions, "ETHUSDT SHORT 0.5 entry=3200 mark=3150 uPnL=25") {
		t.Fatalf("持仓格式错误: %s", positions)
	}
}

func TestHasAnyKeywordDetection(t *testing.T) {
	cases := []struct {
		message string
		place   bool
		account bool
	}{
		{"please place a market order", true, false},
		{"show positions", false, true},
		{"what are my open orders", false, true},
		{"how is the market", false, false},
		{"sell 0.5 eth at 3200", true, false},
	}

	for _, tc := range cases {
		lower := strings.ToLower(tc.message)
		if got := hasAny(lower, placeIntentKeywords); got != tc.place {
			t.Errorf("%q: 下单意图期望 %v，实际 %v", tc.message, tc.place, got)
		}
		if got := hasAny(lower, accountDataKeywords); got != tc.account {
			t.Errorf("%q: 账户数据期望 %v，实际 %v", tc.message, tc.account, got)
		}
	}
}

func TestChatWithoutAPIKeyRejected(t *testing.T) {
	llm := &mockLLM{notConfigured: true}
	submitter := &mockSubmitter{}
	svc := newTestService(t, llm, submitter)

	// 即使是可直接解析的订单，缺少 api_key 时对话入口也整体拒绝
	_, err := svc.Chat(context.Background(), "limit buy btcusdt 61000 100 dollars", nil)
	var cfgErr *ai.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("期望 ai.ConfigurationError，实际 %v", err)
	}
	if llm.calls != 0 {
		t.Fatalf("不应调用模型，实际 %d 次", llm.calls)
	}
	if svc.broker.Pending() != 0 {
		t.Fatal("不应登记待确认交易")
	}
	if len(submitter.requests) != 0 {
		t.Fatal("不应提交订单")
	}
}

func TestRunBotWithoutAPIKeyRejected(t *testing.T) {
	svc := newTestService(t, &mockLLM{notConfigured: true}, &mockSubmitter{})

	_, err := svc.RunBot(context.Background(), "BTCUSDT", true)
	var cfgErr *ai.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("期望 ai.ConfigurationError，实际 %v", err)
	}
}

func TestHealthReportsMissingGroqKey(t *testing.T) {
	svc := newTestService(t, &mockLLM{notConfigured: true}, &mockSubmitter{})

	health := svc.Health()
	if health.Status != "ok" {
		t.Fatalf("缺少 api_key 不影响健康状态，实际 %s", health.Status)
	}
	if health.GroqConfigured {
		t.Fatal("GroqConfigured 应为 false")
	}

	svc2 := newTestService(t, &mockLLM{}, &mockSubmitter{})
	if !svc2.Health().GroqConfigured {
		t.Fatal("已配置 api_key 时 GroqConfigured 应为 true")
	}
}
