package order

import "github.com/shopspring/decimal"

// MinNotional 为交易所强制的最小订单名义价值（USDT）。
const MinNotional = 100

// quantityPrecision 记录各交易对的数量小数位（步长）。
// 仅覆盖常用交易对，其余使用 defaultPrecision 兜底；
// 对步长更粗的交易对这可能产生非法数量，见 DESIGN.md 的已知缺口。
var quantityPrecision = map[string]int32{
	"BTCUSDT": 3,
	"ETHUSDT": 3,
	"BNBUSDT": 2,
}

const defaultPrecision int32 = 3

// Precision 返回交易对的数量小数位。
func Precision(symbol string) int32 {
	if p, ok := quantityPrecision[symbol]; ok {
		return p
	}
	return defaultPrecision
}

// Step 返回交易对的最小数量步长。
func Step(symbol string) decimal.Decimal {
	return decimal.New(1, -Precision(symbol))
}

// DeriveQuantity 按给定的 USDT 名义金额与单价推导交易对的合法下单数量。
// 推导结果满足步长约束且名义价值不低于 MinNotional；
// 若价格非正或最终数量非正，返回 (0, false) 表示无法推导。
func DeriveQuantity(usdAmount, price decimal.Decimal, symbol string) (decimal.Decimal, bool) {
	if price.Sign() <= 0 {
		return decimal.Zero, false
	}

	precision := Precision(symbol)
	quantity := usdAmount.Div(price).RoundBank(precision)

	// 名义价值不足时，向上取整到满足最小名义价值的最近步长。
	minNotional := decimal.NewFromInt(MinNotional)
	if quantity.Mul(price).LessThan(minNotional) {
		step := Step(symbol)
		quantity = minNotional.Div(price).Div(step).Ceil().Mul(step)
	}

	if quantity.Sign() <= 0 {
		return decimal.Zero, false
	}
	return quantity, true
}
