package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"futures-chat/internal/ai"
	"futures-chat/internal/confirm"
	"futures-chat/internal/exchange"
	"futures-chat/internal/intent"
	"futures-chat/internal/order"
	"futures-chat/internal/store"
)

// Service 负责持久化会话与交易事件。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService 初始化日志服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("journal: store 不能为空")
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
CREATE TABLE IF NOT EXISTS journal_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_journal_events_type ON journal_events(event_type);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("journal: 初始化表失败: %w", err)
	}
	return nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("journal: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO journal_events (event_type, payload, created_at) VALUES (?, ?, ?)`,
		string(event.Type), string(payload), event.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("journal: 写入事件失败: %w", err)
	}

	return nil
}

// RecordChat 记录一轮对话。
func (s *Service) RecordChat(ctx context.Context, symbol, message, reply string) {
	if err := s.Record(ctx, Event{
		Type:      EventChat,
		Timestamp: time.Now().UTC(),
		Payload:   ChatPayload{Symbol: symbol, Message: message, Reply: reply},
	}); err != nil {
		s.logger.Warn("记录对话事件失败", zap.Error(err))
	}
}

// RecordIntent 记录解析出的订单意图。
func (s *Service) RecordIntent(ctx context.Context, message string, parsed intent.Order) {
	if err := s.Record(ctx, Event{
		Type:      EventIntent,
		Timestamp: time.Now().UTC(),
		Payload:   IntentPayload{Message: message, Order: parsed},
	}); err != nil {
		s.logger.Warn("记录意图事件失败", zap.Error(err))
	}
}

// RecordDecision 记录AI决策。
func (s *Service) RecordDecision(ctx context.Context, symbol string, decision ai.Decision) {
	if err := s.Record(ctx, Event{
		Type:      EventAIDecision,
		Timestamp: time.Now().UTC(),
		Payload:   AIDecisionPayload{Symbol: symbol, Decision: decision},
	}); err != nil {
		s.logger.Warn("记录AI决策事件失败", zap.Error(err))
	}
}

// RecordProposal 记录待确认交易。
func (s *Service) RecordProposal(ctx context.Context, token string, trade confirm.PendingTrade) {
	if err := s.Record(ctx, Event{
		Type:      EventProposal,
		Timestamp: time.Now().UTC(),
		Payload:   ProposalPayload{Token: token, Trade: trade},
	}); err != nil {
		s.logger.Warn("记录提案事件失败", zap.Error(err))
	}
}

// RecordConfirmation 记录交易确认。
func (s *Service) RecordConfirmation(ctx context.Context, token string, trade confirm.PendingTrade) {
	if err := s.Record(ctx, Event{
		Type:      EventConfirmation,
		Timestamp: time.Now().UTC(),
		Payload:   ConfirmationPayload{Token: token, Trade: trade},
	}); err != nil {
		s.logger.Warn("记录确认事件失败", zap.Error(err))
	}
}

// RecordOrder 记录订单提交。
func (s *Service) RecordOrder(ctx context.Context, req order.Request, resp exchange.OrderResponse) {
	if err := s.Record(ctx, Event{
		Type:      EventOrder,
		Timestamp: time.Now().UTC(),
		Payload:   OrderPayload{Request: req, Response: resp},
	}); err != nil {
		s.logger.Warn("记录订单事件失败", zap.Error(err))
	}
}

// RecordError 记录异常。
func (s *Service) RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{}) {
	payload := ErrorPayload{
		Message: msg,
		Error:   err.Error(),
		Context: ctxMap,
	}
	if recErr := s.Record(ctx, Event{
		Type:      EventError,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}); recErr != nil {
		s.logger.Warn("记录异常事件失败", zap.Error(recErr))
	}
}

// ListEvents 按类型检索最近事件。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT event_type, payload, created_at FROM journal_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&typ, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("journal: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339, created)
		if parseErr != nil {
			ts = time.Now().UTC()
		}

		events = append(events, Event{
			Type:      EventType(typ),
			Timestamp: ts,
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: 读取事件失败: %w", err)
	}

	return events, nil
}
