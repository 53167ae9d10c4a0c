package exchange

import "time"

// Interval15m 为行情上下文使用的K线周期。
const Interval15m = "15m"

// Candle 代表单根K线。
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// OrderResponse 为下单后的规范化回执。Raw 保留交易所原始响应，
// 调用方可从中提取未建模的字段。
type OrderResponse struct {
	OrderID     string                 `json:"order_id"`
	Status      string                 `json:"status"`
	ExecutedQty string                 `json:"executed_qty"`
	AvgPrice    string                 `json:"avg_price"`
	Raw         map[string]interface{} `json:"raw,omitempty"`
}

// OpenOrder 表示一笔未成交委托。
type OpenOrder struct {
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Type     string  `json:"type"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Status   string  `json:"status"`
}

// Position 表示单个持仓（仅非零仓位）。
type Position struct {
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Size          float64 `json:"size"`
	EntryPrice    float64 `json:"entry_price"`
	MarkPrice     float64 `json:"mark_price"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
}
