package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"futures-chat/internal/order"
)

// Order 为从自由文本中恢复出的候选订单。Price 为空表示未指定价格。
type Order struct {
	Symbol    string     `json:"symbol"`
	Side      order.Side `json:"side"`
	OrderType order.Type `json:"order_type"`
	Price     string     `json:"price,omitempty"`
	Quantity  string     `json:"quantity"`
	Reason    string     `json:"reason"`
}

// 解析用的正则按固定优先级排列，首个命中者生效。
// 多个数字并存时以最先匹配的模式为准，而不是语义上最合理的那个，
// 这是抽取歧义文本时的已知误报来源。
var (
	sellPattern  = regexp.MustCompile(`\bsell\b|\bshort\b`)
	limitPattern = regexp.MustCompile(`\blimit\b|\bat\s+\d+`)

	// 价格："at/@/price <数字>"，或 4 位以上的裸数字后接边界/货币词。
	pricePattern = regexp.MustCompile(`(?:at|@|price)\s*(\d+(?:\.\d+)?)|(?:^|\s)(\d{4,}\.?\d*)(?:\s|$|dollar|usdt|usd)`)

	// USD 金额："for/with/of <数字> [货币词]"，或 "<数字> 货币词"。
	amountPattern         = regexp.MustCompile(`(?:for|with|of)\s*(\d+(?:\.\d+)?)\s*(?:dollar|usdt|usd)?|(\d+(?:\.\d+)?)\s*(?:dollar|usdt|usd)`)
	amountFallbackPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:dollar|usdt|usd)`)

	// 基础资产数量兜底："<数字> btc|eth|bnb"。
	baseQtyPattern = regexp.MustCompile(`(\d+\.?\d*)\s*(?:btc|eth|bnb)`)

	fullSymbolPattern = regexp.MustCompile(`\b([A-Z]{2,10}USDT)\b`)
)

// knownTokens 为常见基础资产清单，命中即映射到对应 USDT 交易对。
var knownTokens = []string{
	"BTC", "ETH", "BNB", "SOL", "XRP", "DOGE", "ADA", "AVAX", "LINK", "DOT",
	"MATIC", "UNI", "ATOM", "LTC", "NEAR", "APT", "ARB", "OP", "INJ", "SUI",
	"PEPE", "WIF", "BONK", "SHIB",
}

var tokenPatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(knownTokens))
	for _, t := range knownTokens {
		m[t] = regexp.MustCompile(`\b` + t + `\b`)
	}
	return m
}()

// ExtractSymbol 从消息中提取交易对。先找完整的 {LETTERS}USDT 符号，
// 再按清单匹配常见代币，均未命中时默认 BTCUSDT。
func ExtractSymbol(message string) string {
	text := strings.ToUpper(strings.TrimSpace(message))
	if m := fullSymbolPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	for _, t := range knownTokens {
		if tokenPatterns[t].MatchString(text) {
			return t + "USDT"
		}
	}
	return "BTCUSDT"
}

// Parse 从自由文本中解析候选订单。返回 false 表示文本中没有可派生的
// 明确意图，调用方应回退到 AI 决策而不是报错。
func Parse(message string) (Order, bool) {
	lower := strings.ToLower(message)

	side := order.SideBuy
	if sellPattern.MatchString(lower) {
		side = order.SideSell
	}

	orderType := order.TypeMarket
	if limitPattern.MatchString(lower) {
		orderType = order.TypeLimit
	}

	price := ""
	if m := pricePattern.FindStringSubmatch(lower); m != nil {
		if m[1] != "" {
			price = m[1]
		} else {
			price = m[2]
		}
	}
	// 无价格的限价单不是合法意图。
	if price == "" && orderType == order.TypeLimit {
		return Order{}, false
	}

	amount := ""
	if m := amountPattern.FindStringSubmatch(lower); m != nil {
		if m[1] != "" {
			amount = m[1]
		} else {
			amount = m[2]
		}
	}
	if amount == "" {
		if m := amountFallbackPattern.FindStringSubmatch(lower); m != nil {
			amount = m[1]
		}
	}

	symbol := ExtractSymbol(message)

	// 金额为零视同未提供，否则最小名义价值补偿会凭空造出订单。
	var usd decimal.Decimal
	hasAmount := false
	if amount != "" {
		if d, err := decimal.NewFromString(amount); err == nil && d.Sign() > 0 {
			usd = d
			hasAmount = true
		}
	}

	if hasAmount && price != "" {
		priceDec, err := decimal.NewFromString(price)
		if err != nil {
			return Order{}, false
		}

		quantity, ok := order.DeriveQuantity(usd, priceDec, symbol)
		if !ok {
			return Order{}, false
		}

		return Order{
			Symbol:    symbol,
			Side:      side,
			OrderType: orderType,
			Price:     price,
			Quantity:  quantity.String(),
			Reason: fmt.Sprintf("User specified: %s %s %s @ %s (~%s USDT)",
				side, quantity, symbol, price, usd),
		}, true
	}

	// 无 USD 金额时，尝试直接使用基础资产数量。
	if m := baseQtyPattern.FindStringSubmatch(lower); m != nil && price != "" {
		return Order{
			Symbol:    symbol,
			Side:      side,
			OrderType: orderType,
			Price:     price,
			Quantity:  m[1],
			Reason: fmt.Sprintf("User specified: %s %s %s @ %s",
				side, m[1], symbol, price),
		}, true
	}

	return Order{}, false
}
