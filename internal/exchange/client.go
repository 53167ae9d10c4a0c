package exchange

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"futures-chat/internal/config"
	"futures-chat/internal/order"
)

// Client 负责与 Binance USDⓈ-M 合约交易所交互。
// 公共行情接口无需凭证，下单与账户接口要求 API key/secret。
type Client struct {
	cfg      config.ExchangeConfig
	logger   *zap.Logger
	exchange *ccxt.Binanceusdm

	marketsMu     sync.Mutex
	marketsLoaded bool
}

// NewClient 构造交易所客户端。凭证缺失时仍可创建，
// 但涉及签名的操作将返回 ConfigurationError。
func NewClient(cfg config.ExchangeConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.PublicTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
		"timeout":         timeout.Milliseconds(),
		"options": map[string]interface{}{
			"adjustForTimeDifference": true,
			"defaultType":             "future",
		},
	}

	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}

	ex := ccxt.NewBinanceusdm(userConfig)
	if cfg.UseSandbox {
		ex.SetSandboxMode(true)
	}

	return &Client{
		cfg:      cfg,
		logger:   logger,
		exchange: ex,
	}
}

// HasCredentials 报告客户端是否配置了 API 凭证。
func (c *Client) HasCredentials() bool {
	return c.cfg.APIKey != "" && c.cfg.APISecret != ""
}

func (c *Client) requireCredentials() error {
	if !c.HasCredentials() {
		return &ConfigurationError{
			Message: "缺少 API key/secret，请配置 exchange.api_key 与 exchange.api_secret",
		}
	}
	return nil
}

// unifySymbol 将 BTCUSDT 这类原始符号转换为 ccxt 的统一合约符号 BTC/USDT:USDT。
func unifySymbol(symbol string) string {
	base := strings.TrimSuffix(symbol, "USDT")
	if base == symbol || base == "" {
		return symbol
	}
	return fmt.Sprintf("%s/USDT:USDT", base)
}

// rawSymbol 将统一符号还原为 BTCUSDT 这类原始形式。
func rawSymbol(unified string) string {
	s := unified
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	return strings.ReplaceAll(s, "/", "")
}

func (c *Client) ensureMarketsLoaded(ctx context.Context) error {
	if c.marketsLoaded {
		return nil
	}

	c.marketsMu.Lock()
	defer c.marketsMu.Unlock()

	if c.marketsLoaded {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return classifyError("load_markets", err)
	}

	if _, err := c.exchange.LoadMarkets(); err != nil {
		return classifyError("load_markets", err)
	}

	c.marketsLoaded = true
	c.logger.Debug("已完成市场元数据加载")
	return nil
}

// PlaceOrder 将校验后的订单提交至交易所，返回规范化回执。
// 交易所拒绝返回 APIError，传输故障返回 NetworkError。
func (c *Client) PlaceOrder(ctx context.Context, intent order.Intent) (OrderResponse, error) {
	if err := c.requireCredentials(); err != nil {
		return OrderResponse{}, err
	}
	if err := c.ensureMarketsLoaded(ctx); err != nil {
		return OrderResponse{}, err
	}
	if err := ctx.Err(); err != nil {
		return OrderResponse{}, classifyError("place_order", err)
	}

	amount, err := strconv.ParseFloat(intent.Quantity, 64)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("exchange: 无法解析订单数量 %q: %w", intent.Quantity, err)
	}

	symbol := unifySymbol(intent.Symbol)
	side := strings.ToLower(string(intent.Side))

	var raw ccxt.Order
	switch intent.OrderType {
	case order.TypeLimit:
		price, parseErr := strconv.ParseFloat(intent.Price, 64)
		if parseErr != nil {
			return OrderResponse{}, fmt.Errorf("exchange: 无法解析限价 %q: %w", intent.Price, parseErr)
		}
		params := map[string]interface{}{
			"timeInForce": intent.TimeInForce,
		}
		if intent.ClientOrderID != "" {
			params["newClientOrderId"] = intent.ClientOrderID
		}
		raw, err = c.exchange.CreateLimitOrder(symbol, side, amount, price,
			ccxt.WithCreateLimitOrderParams(params))
	default:
		var opts []ccxt.CreateMarketOrderOptions
		if intent.ClientOrderID != "" {
			opts = append(opts, ccxt.WithCreateMarketOrderParams(map[string]interface{}{
				"newClientOrderId": intent.ClientOrderID,
			}))
		}
		raw, err = c.exchange.CreateMarketOrder(symbol, side, amount, opts...)
	}
	if err != nil {
		return OrderResponse{}, classifyError("place_order", err)
	}

	resp := convertOrder(raw)
	c.logger.Info("订单已提交",
		zap.String("symbol", intent.Symbol),
		zap.String("side", string(intent.Side)),
		zap.String("type", string(intent.OrderType)),
		zap.String("quantity", intent.Quantity),
		zap.String("order_id", resp.OrderID),
		zap.String("status", resp.Status),
	)
	return resp, nil
}

// TickerPrice 获取交易对最新成交价。
func (c *Client) TickerPrice(ctx context.Context, symbol string) (float64, error) {
	if err := c.ensureMarketsLoaded(ctx); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, classifyError("ticker_price", err)
	}

	ticker, err := c.exchange.FetchTicker(unifySymbol(symbol))
	if err != nil {
		return 0, classifyError("ticker_price", err)
	}
	if ticker.Last == nil {
		return 0, &APIError{Op: "ticker_price", Message: fmt.Sprintf("交易所未返回 %s 的最新价", symbol)}
	}
	return *ticker.Last, nil
}

// Klines 获取指定周期的K线数据。
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	if limit <= 0 {
		limit = 1
	}
	if err := c.ensureMarketsLoaded(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, classifyError("klines", err)
	}

	raw, err := c.exchange.FetchOHLCV(
		unifySymbol(symbol),
		ccxt.WithFetchOHLCVTimeframe(interval),
		ccxt.WithFetchOHLCVLimit(int64(limit)),
	)
	if err != nil {
		return nil, classifyError("klines", err)
	}

	candles := make([]Candle, 0, len(raw))
	for _, item := range raw {
		candles = append(candles, Candle{
			Timestamp: time.UnixMilli(item.Timestamp).UTC(),
			Open:      item.Open,
			High:      item.High,
			Low:       item.Low,
			Close:     item.Close,
			Volume:    item.Volume,
		})
	}
	return candles, nil
}

// OpenOrders 获取未成交委托；symbol 为空时返回全部。
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error) {
	if err := c.requireCredentials(); err != nil {
		return nil, err
	}
	if err := c.ensureMarketsLoaded(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, classifyError("open_orders", err)
	}

	var opts []ccxt.FetchOpenOrdersOptions
	if symbol != "" {
		opts = append(opts, ccxt.WithFetchOpenOrdersSymbol(unifySymbol(symbol)))
	}
	raw, err := c.exchange.FetchOpenOrders(opts...)
	if err != nil {
		return nil, classifyError("open_orders", err)
	}

	orders := make([]OpenOrder, 0, len(raw))
	for _, o := range raw {
		orders = append(orders, OpenOrder{
			Symbol:   rawSymbol(derefString(o.Symbol)),
			Side:     strings.ToUpper(derefString(o.Side)),
			Type:     strings.ToUpper(derefString(o.Type)),
			Quantity: derefFloat(o.Amount),
			Price:    derefFloat(o.Price),
			Status:   strings.ToUpper(derefString(o.Status)),
		})
	}
	return orders, nil
}

// PositionRisk 获取持仓信息（仅非零仓位）；symbol 为空时返回全部。
func (c *Client) PositionRisk(ctx context.Context, symbol string) ([]Position, error) {
	if err := c.requireCredentials(); err != nil {
		return nil, err
	}
	if err := c.ensureMarketsLoaded(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, classifyError("position_risk", err)
	}

	raw, err := c.exchange.FetchPositions()
	if err != nil {
		return nil, classifyError("position_risk", err)
	}

	positions := make([]Position, 0, len(raw))
	for _, p := range raw {
		size := derefFloat(p.Contracts)
		if size == 0 {
			continue
		}
		sym := rawSymbol(derefString(p.Symbol))
		if symbol != "" && !strings.EqualFold(sym, symbol) {
			continue
		}

		side := strings.ToUpper(strings.TrimSpace(derefString(p.Side)))
		if side == "" {
			side = "LONG"
		}

		positions = append(positions, Position{
			Symbol:        sym,
			Side:          side,
			Size:          size,
			EntryPrice:    derefFloat(p.EntryPrice),
			MarkPrice:     derefFloat(p.MarkPrice),
			UnrealizedPnl: derefFloat(p.UnrealizedPnl),
		})
	}
	return positions, nil
}

// Symbols 返回交易中的 USDT 永续交易对（原始符号，按字典序）。
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	if err := c.ensureMarketsLoaded(ctx); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, classifyError("symbols", err)
	}

	markets, err := c.exchange.LoadMarkets()
	if err != nil {
		return nil, classifyError("symbols", err)
	}

	symbols := make([]string, 0, len(markets))
	for _, m := range markets {
		id := derefString(m.Id)
		if !strings.HasSuffix(id, "USDT") {
			continue
		}
		if m.Active != nil && !*m.Active {
			continue
		}
		symbols = append(symbols, id)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func convertOrder(o ccxt.Order) OrderResponse {
	resp := OrderResponse{
		OrderID: derefString(o.Id),
		Status:  strings.ToUpper(derefString(o.Status)),
	}
	if o.Filled != nil {
		resp.ExecutedQty = strconv.FormatFloat(*o.Filled, 'f', -1, 64)
	}
	if o.Average != nil {
		resp.AvgPrice = strconv.FormatFloat(*o.Average, 'f', -1, 64)
	}
	if o.Info != nil {
		resp.Raw = o.Info
	}
	return resp
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
