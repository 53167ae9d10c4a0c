package order

import "fmt"

// Side 表示订单方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Type 表示订单类型。
type Type string

const (
	TypeMarket Type = "MARKET"
	TypeLimit  Type = "LIMIT"
)

// Request 为校验前的原始下单请求，字段均为调用方传入的裸值。
type Request struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	OrderType     string `json:"order_type"`
	Quantity      string `json:"quantity"`
	Price         string `json:"price,omitempty"`
	TimeInForce   string `json:"time_in_force,omitempty"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// Intent 为校验后的规范化订单。数量与价格均为规范十进制字符串，
// Price 为空代表市价单无限价。
type Intent struct {
	Symbol        string `json:"symbol"`
	Side          Side   `json:"side"`
	OrderType     Type   `json:"order_type"`
	Quantity      string `json:"quantity"`
	Price         string `json:"price,omitempty"`
	TimeInForce   string `json:"time_in_force"`
	ClientOrderID string `json:"client_order_id,omitempty"`
}

// Request 将规范化订单还原为请求，用于幂等性校验与重新提交。
func (i Intent) Request() Request {
	return Request{
		Symbol:        i.Symbol,
		Side:          string(i.Side),
		OrderType:     string(i.OrderType),
		Quantity:      i.Quantity,
		Price:         i.Price,
		TimeInForce:   i.TimeInForce,
		ClientOrderID: i.ClientOrderID,
	}
}

// ValidationError 表示某个字段未通过校验。Field 指向首个出错字段，
// 供调用方修正输入后重新提交。
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func newValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
