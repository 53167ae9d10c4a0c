package order

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestDeriveQuantity_MeetsMinNotionalAndStep(t *testing.T) {
	qty, ok := DeriveQuantity(decimal.NewFromInt(100), decimal.NewFromInt(61000), "BTCUSDT")
	if !ok {
		t.Fatalf("expected derivable quantity")
	}

	notional := qty.Mul(decimal.NewFromInt(61000))
	if notional.LessThan(decimal.NewFromInt(MinNotional)) {
		t.Errorf("notional %s below minimum %d", notional, MinNotional)
	}

	step := Step("BTCUSDT")
	if !qty.Mod(step).IsZero() {
		t.Errorf("quantity %s is not a multiple of step %s", qty, step)
	}
}

func TestDeriveQuantity_RoundsToPrecision(t *testing.T) {
	// 500/50000 = 0.01，已在步长网格上。
	qty, ok := DeriveQuantity(decimal.NewFromInt(500), decimal.NewFromInt(50000), "BTCUSDT")
	if !ok {
		t.Fatalf("expected derivable quantity")
	}
	if qty.String() != "0.01" {
		t.Errorf("expected 0.01, got %s", qty)
	}
}

func TestDeriveQuantity_BumpsBelowMinNotional(t *testing.T) {
	// 10/61000 四舍五入到 3 位后为 0，必须抬升到满足最小名义价值的步长。
	qty, ok := DeriveQuantity(decimal.NewFromInt(10), decimal.NewFromInt(61000), "BTCUSDT")
	if !ok {
		t.Fatalf("expected derivable quantity")
	}
	if qty.String() != "0.002" {
		t.Errorf("expected bumped quantity 0.002, got %s", qty)
	}
}

func TestDeriveQuantity_RejectsBadPrice(t *testing.T) {
	if _, ok := DeriveQuantity(decimal.NewFromInt(100), decimal.Zero, "BTCUSDT"); ok {
		t.Errorf("expected failure for zero price")
	}
	if _, ok := DeriveQuantity(decimal.NewFromInt(100), decimal.NewFromInt(-1), "BTCUSDT"); ok {
		t.Errorf("expected failure for negative price")
	}
}

func TestPrecision_FallsBackToDefault(t *testing.T) {
	if p := Precision("BNBUSDT"); p != 2 {
		t.Errorf("expected BNBUSDT precision 2, got %d", p)
	}
	if p := Precision("DOGEUSDT"); p != defaultPrecision {
		t.Errorf("expected default precision for unlisted symbol, got %d", p)
	}
}
