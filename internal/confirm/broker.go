package confirm

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrInvalidToken 表示令牌未知或已被消费。
// 对调用方而言这是可自行纠正的错误，不是服务故障。
var ErrInvalidToken = errors.New("invalid or expired confirmation token")

// PendingTrade 为已提议但尚未执行的交易。状态只存在于进程内存中，
// 进程重启即失效。
type PendingTrade struct {
	Symbol    string `json:"symbol"`
	Action    string `json:"action"`
	OrderType string `json:"order_type"`
	Quantity  string `json:"quantity"`
	Price     string `json:"price,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Broker 独占持有待确认交易表，是"接下来允许执行什么"的唯一事实来源。
// 令牌一次性有效：确认即移除，重放的确认请求必然失败，不会重复下单。
type Broker struct {
	mu      sync.Mutex
	pending map[string]PendingTrade
}

// NewBroker 创建空的确认代理。
func NewBroker() *Broker {
	return &Broker{
		pending: make(map[string]PendingTrade),
	}
}

// Propose 登记一笔待确认交易并返回一次性令牌。
func (b *Broker) Propose(trade PendingTrade) string {
	token := uuid.NewString()

	b.mu.Lock()
	b.pending[token] = trade
	b.mu.Unlock()

	return token
}

// Confirm 消费令牌并取出对应交易。取出即删除，因此同一令牌的并发确认
// 恰好有一个成功；未知或已消费的令牌返回 ErrInvalidToken。
func (b *Broker) Confirm(token string) (PendingTrade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	trade, ok := b.pending[token]
	if !ok {
		return PendingTrade{}, ErrInvalidToken
	}
	delete(b.pending, token)
	return trade, nil
}

// Pending 返回当前待确认交易数量。
func (b *Broker) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
