package journal

import (
	"time"

	"futures-chat/internal/ai"
	"futures-chat/internal/confirm"
	"futures-chat/internal/exchange"
	"futures-chat/internal/intent"
	"futures-chat/internal/order"
)

// EventType 表示日志事件类型。
type EventType string

const (
	EventChat         EventType = "chat"
	EventIntent       EventType = "intent"
	EventAIDecision   EventType = "ai_decision"
	EventProposal     EventType = "proposal"
	EventConfirmation EventType = "confirmation"
	EventOrder        EventType = "order"
	EventError        EventType = "error"
)

// Event 封装通用事件。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// ChatPayload 记录一轮对话。
type ChatPayload struct {
	Symbol  string `json:"symbol"`
	Message string `json:"message"`
	Reply   string `json:"reply"`
}

// IntentPayload 记录从用户文本解析出的订单意图。
type IntentPayload struct {
	Message string       `json:"message"`
	Order   intent.Order `json:"order"`
}

// AIDecisionPayload 记录模型决策。
type AIDecisionPayload struct {
	Symbol   string      `json:"symbol"`
	Decision ai.Decision `json:"decision"`
}

// ProposalPayload 记录待确认交易的登记。
type ProposalPayload struct {
	Token string               `json:"token"`
	Trade confirm.PendingTrade `json:"trade"`
}

// ConfirmationPayload 记录确认结果。
type ConfirmationPayload struct {
	Token string               `json:"token"`
	Trade confirm.PendingTrade `json:"trade"`
}

// OrderPayload 记录订单提交。
type OrderPayload struct {
	Request  order.Request          `json:"request"`
	Response exchange.OrderResponse `json:"response"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}
