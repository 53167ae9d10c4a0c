package order

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// 交易对格式，例如 BTCUSDT、ETHUSDT。
	symbolPattern = regexp.MustCompile(`^[A-Z0-9]{5,20}$`)
	// 客户端订单ID格式，与 Binance 文档保持一致。
	clientOrderIDPattern = regexp.MustCompile(`^[\.A-Z:/a-z0-9_-]{1,36}$`)
)

// ValidateSymbol 校验交易对并返回大写规范形式。
func ValidateSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", newValidationError("symbol", "Symbol is required and must be a non-empty string")
	}
	if !symbolPattern.MatchString(s) {
		return "", newValidationError("symbol", "Invalid symbol '%s'. Use format like BTCUSDT, ETHUSDT.", symbol)
	}
	return s, nil
}

// ValidateSide 校验订单方向，仅允许 BUY/SELL。
func ValidateSide(side string) (Side, error) {
	s := strings.ToUpper(strings.TrimSpace(side))
	if s == "" {
		return "", newValidationError("side", "Side is required and must be BUY or SELL")
	}
	switch s {
	case string(SideBuy):
		return SideBuy, nil
	case string(SideSell):
		return SideSell, nil
	default:
		return "", newValidationError("side", "Invalid side '%s'. Must be BUY or SELL.", side)
	}
}

// ValidateOrderType 校验订单类型，仅允许 MARKET/LIMIT。
func ValidateOrderType(orderType string) (Type, error) {
	t := strings.ToUpper(strings.TrimSpace(orderType))
	if t == "" {
		return "", newValidationError("order_type", "Order type is required and must be MARKET or LIMIT")
	}
	switch t {
	case string(TypeMarket):
		return TypeMarket, nil
	case string(TypeLimit):
		return TypeLimit, nil
	default:
		return "", newValidationError("order_type", "Invalid order type '%s'. Must be MARKET or LIMIT.", orderType)
	}
}

// ValidateQuantity 校验数量为正十进制数，返回规范字符串并保留原始精度。
func ValidateQuantity(quantity string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(quantity))
	if err != nil {
		return "", newValidationError("quantity", "Invalid quantity '%s'. Must be a positive number.", quantity)
	}
	if d.Sign() <= 0 {
		return "", newValidationError("quantity", "Quantity must be greater than zero.")
	}
	return d.String(), nil
}

// ValidatePrice 校验价格。LIMIT 订单必须提供价格；价格为空且非必填时返回空串。
func ValidatePrice(price string, required bool) (string, error) {
	trimmed := strings.TrimSpace(price)
	if trimmed == "" {
		if required {
			return "", newValidationError("price", "Price is required for LIMIT orders.")
		}
		return "", nil
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return "", newValidationError("price", "Invalid price '%s'. Must be a positive number.", price)
	}
	if d.Sign() <= 0 {
		return "", newValidationError("price", "Price must be greater than zero.")
	}
	return d.String(), nil
}

// ValidateTimeInForce 校验有效期策略；为空时默认为 GTC。
func ValidateTimeInForce(tif string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(tif))
	if t == "" {
		return "GTC", nil
	}
	switch t {
	case "GTC", "IOC", "FOK":
		return t, nil
	default:
		return "", newValidationError("time_in_force", "Invalid timeInForce '%s'. Must be GTC, IOC, or FOK.", tif)
	}
}

// ValidateClientOrderID 校验可选的客户端订单ID。
func ValidateClientOrderID(clientOrderID string) (string, error) {
	s := strings.TrimSpace(clientOrderID)
	if s == "" {
		return "", nil
	}
	if !clientOrderIDPattern.MatchString(s) {
		return "", newValidationError("client_order_id", "Invalid clientOrderId. Must match ^[.A-Z:/a-z0-9_-]{1,36}$")
	}
	return s, nil
}

// Validate 对下单请求逐字段校验并返回规范化订单。校验纯本地完成，不访问网络；
// 失败时返回首个出错字段的 ValidationError。
func Validate(req Request) (Intent, error) {
	symbol, err := ValidateSymbol(req.Symbol)
	if err != nil {
		return Intent{}, err
	}

	side, err := ValidateSide(req.Side)
	if err != nil {
		return Intent{}, err
	}

	orderType, err := ValidateOrderType(req.OrderType)
	if err != nil {
		return Intent{}, err
	}

	quantity, err := ValidateQuantity(req.Quantity)
	if err != nil {
		return Intent{}, err
	}

	tif, err := ValidateTimeInForce(req.TimeInForce)
	if err != nil {
		return Intent{}, err
	}

	clientOrderID, err := ValidateClientOrderID(req.ClientOrderID)
	if err != nil {
		return Intent{}, err
	}

	price, err := ValidatePrice(req.Price, orderType == TypeLimit)
	if err != nil {
		return Intent{}, err
	}

	return Intent{
		Symbol:        symbol,
		Side:          side,
		OrderType:     orderType,
		Quantity:      quantity,
		Price:         price,
		TimeInForce:   tif,
		ClientOrderID: clientOrderID,
	}, nil
}
