package intent

import (
	"testing"

	"github.com/shopspring/decimal"

	"futures-chat/internal/order"
)

func TestParse_LimitBuyWithUSDAmount(t *testing.T) {
	parsed, ok := Parse("limit buy btcusdt 61000 100 dollars")
	if !ok {
		t.Fatalf("expected parseable intent")
	}

	if parsed.Symbol != "BTCUSDT" {
		t.Errorf("expected symbol BTCUSDT, got %s", parsed.Symbol)
	}
	if parsed.Side != order.SideBuy {
		t.Errorf("expected side BUY, got %s", parsed.Side)
	}
	if parsed.OrderType != order.TypeLimit {
		t.Errorf("expected type LIMIT, got %s", parsed.OrderType)
	}
	if parsed.Price != "61000" {
		t.Errorf("expected price 61000, got %q", parsed.Price)
	}
	// 100/61000 四舍五入到 3 位为 0.002。
	if parsed.Quantity != "0.002" {
		t.Errorf("expected quantity 0.002, got %q", parsed.Quantity)
	}

	qty, _ := decimal.NewFromString(parsed.Quantity)
	price, _ := decimal.NewFromString(parsed.Price)
	if qty.Mul(price).LessThan(decimal.NewFromInt(order.MinNotional)) {
		t.Errorf("derived notional below exchange minimum")
	}
}

func TestParse_BuyAtPriceWithUSDT(t *testing.T) {
	parsed, ok := Parse("buy btc at 61000 with 100 usdt")
	if !ok {
		t.Fatalf("expected parseable intent")
	}
	if parsed.Symbol != "BTCUSDT" {
		t.Errorf("expected symbol BTCUSDT, got %s", parsed.Symbol)
	}
	if parsed.OrderType != order.TypeLimit {
		t.Errorf("expected 'at <price>' to imply LIMIT, got %s", parsed.OrderType)
	}
	if parsed.Price != "61000" {
		t.Errorf("expected price 61000, got %q", parsed.Price)
	}
}

func TestParse_SellShortToken(t *testing.T) {
	parsed, ok := Parse("short ethusdt at 3200 for 200 usd")
	if !ok {
		t.Fatalf("expected parseable intent")
	}
	if parsed.Side != order.SideSell {
		t.Errorf("expected side SELL, got %s", parsed.Side)
	}
	if parsed.Symbol != "ETHUSDT" {
		t.Errorf("expected symbol ETHUSDT, got %s", parsed.Symbol)
	}
}

func TestParse_BareBaseAssetQuantity(t *testing.T) {
	parsed, ok := Parse("limit sell 0.5 eth at 3200")
	if !ok {
		t.Fatalf("expected parseable intent")
	}
	if parsed.Quantity != "0.5" {
		t.Errorf("expected direct quantity 0.5, got %q", parsed.Quantity)
	}
	if parsed.Price != "3200" {
		t.Errorf("expected price 3200, got %q", parsed.Price)
	}
	if parsed.Symbol != "ETHUSDT" {
		t.Errorf("expected symbol ETHUSDT, got %s", parsed.Symbol)
	}
}

func TestParse_NoIntent(t *testing.T) {
	cases := []string{
		"sell eth",
		"what is the market doing today",
		"limit buy btc",
		"buy btc at 61000 for 0 dollars",
		"buy btc at 61000 with 0 usdt",
	}
	for _, msg := range cases {
		if _, ok := Parse(msg); ok {
			t.Errorf("expected no intent for %q", msg)
		}
	}
}

func TestExtractSymbol(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{"analyze BTCUSDT please", "BTCUSDT"},
		{"analyze btc", "BTCUSDT"},
		{"how is doge doing", "DOGEUSDT"},
		{"tell me about the market", "BTCUSDT"},
		{"sol looks strong", "SOLUSDT"},
	}
	for _, tc := range cases {
		if got := ExtractSymbol(tc.message); got != tc.want {
			t.Errorf("ExtractSymbol(%q) = %s, want %s", tc.message, got, tc.want)
		}
	}
}
