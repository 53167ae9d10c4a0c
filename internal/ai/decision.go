package ai

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Decision 为模型给出并经清洗的交易决策。Parsed 为 false 表示原始回复
// 无法解析，此时 Action 固定为 HOLD。
type Decision struct {
	Action    string `json:"action"`
	OrderType string `json:"order_type,omitempty"`
	Quantity  string `json:"quantity,omitempty"`
	Price     string `json:"price,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Parsed    bool   `json:"-"`
}

// IsTrade 报告决策是否要求实际下单。
func (d Decision) IsTrade() bool {
	return d.Action == "BUY" || d.Action == "SELL"
}

const (
	// defaultQuantity 为模型未给出数量时的保守默认值。
	defaultQuantity = "0.001"
	// unparseableReason 为无法解析模型输出时的固定降级理由。
	unparseableReason = "Failed to parse LLM response"
)

var (
	fencedBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bracePattern       = regexp.MustCompile(`\{[^{}]*\}`)
)

// extractStrategies 为容错 JSON 提取策略，按序尝试，首个成功者生效：
// 整体解析 → 围栏代码块 → 首个大括号片段。
var extractStrategies = []func(string) (map[string]interface{}, bool){
	extractRaw,
	extractFencedBlock,
	extractBraceSpan,
}

func extractRaw(text string) (map[string]interface{}, bool) {
	return tryUnmarshal(text)
}

func extractFencedBlock(text string) (map[string]interface{}, bool) {
	m := fencedBlockPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	return tryUnmarshal(m[1])
}

func extractBraceSpan(text string) (map[string]interface{}, bool) {
	m := bracePattern.FindString(text)
	if m == "" {
		return nil, false
	}
	return tryUnmarshal(m)
}

func tryUnmarshal(text string) (map[string]interface{}, bool) {
	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.UseNumber()

	var parsed map[string]interface{}
	if err := decoder.Decode(&parsed); err != nil {
		return nil, false
	}
	// 整段文本必须恰好是一个 JSON 值，尾随内容视为解析失败。
	if decoder.More() {
		return nil, false
	}
	return parsed, true
}

// NormalizeDecision 从模型原始回复中提取并清洗交易决策。
// 任何畸形输入都降级为 HOLD，绝不返回错误：
//   - action 非 BUY/SELL/HOLD 时视为 HOLD；
//   - order_type 非 MARKET/LIMIT 时回退 MARKET；
//   - 数量缺失时使用保守默认值；
//   - LIMIT 缺价格（或字面 "null"）时降级为 MARKET 并清空价格。
func NormalizeDecision(raw string) Decision {
	text := strings.TrimSpace(raw)

	var parsed map[string]interface{}
	ok := false
	for _, extract := range extractStrategies {
		if parsed, ok = extract(text); ok {
			break
		}
	}
	if !ok {
		return Decision{
			Action: "HOLD",
			Reason: unparseableReason,
		}
	}

	action := strings.ToUpper(strings.TrimSpace(coerceString(parsed["action"])))
	if action != "BUY" && action != "SELL" && action != "HOLD" {
		action = "HOLD"
	}

	orderType := strings.ToUpper(strings.TrimSpace(coerceString(parsed["order_type"])))
	if orderType != "MARKET" && orderType != "LIMIT" {
		orderType = "MARKET"
	}

	quantity := strings.TrimSpace(coerceString(parsed["quantity"]))
	if quantity == "" {
		quantity = defaultQuantity
	}

	price := strings.TrimSpace(coerceString(parsed["price"]))
	if orderType == "LIMIT" && (price == "" || strings.EqualFold(price, "null")) {
		// 无价格的 LIMIT 决策绝不能放行。
		orderType = "MARKET"
		price = ""
	}

	return Decision{
		Action:    action,
		OrderType: orderType,
		Quantity:  quantity,
		Price:     price,
		Reason:    strings.TrimSpace(coerceString(parsed["reason"])),
		Parsed:    true,
	}
}

// coerceString 将 JSON 中的任意标量收敛为字符串。
func coerceString(v interface{}) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case json.Number:
		return value.String()
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return ""
	}
}
