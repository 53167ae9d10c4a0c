package execution

import (
	"context"
	"errors"
	"testing"

	"futures-chat/internal/exchange"
	"futures-chat/internal/order"
)

type mockPlacer struct {
	calls []order.Intent
	resp  exchange.OrderResponse
	err   error
}

func (m *mockPlacer) PlaceOrder(ctx context.Context, intent order.Intent) (exchange.OrderResponse, error) {
	m.calls = append(m.calls, intent)
	return m.resp, m.err
}

func TestSubmit_ValidationFailureSkipsNetwork(t *testing.T) {
	mock := &mockPlacer{}
	submitter := NewSubmitter(mock, nil)

	_, err := submitter.Submit(context.Background(), order.Request{
		Symbol:    "BTCUSDT",
		Side:      "BUY",
		OrderType: "LIMIT",
		Quantity:  "0.01",
		// LIMIT 缺价格。
	})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var vErr *order.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *order.ValidationError, got %T", err)
	}
	if len(mock.calls) != 0 {
		t.Errorf("expected no exchange call on validation failure, got %d", len(mock.calls))
	}
}

func TestSubmit_PassesCanonicalIntent(t *testing.T) {
	mock := &mockPlacer{
		resp: exchange.OrderResponse{OrderID: "12345", Status: "NEW"},
	}
	submitter := NewSubmitter(mock, nil)

	resp, err := submitter.Submit(context.Background(), order.Request{
		Symbol:    "btcusdt",
		Side:      "buy",
		OrderType: "limit",
		Quantity:  "0.002",
		Price:     "61000",
	})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if resp.OrderID != "12345" {
		t.Errorf("expected raw response passed through, got %+v", resp)
	}

	if len(mock.calls) != 1 {
		t.Fatalf("expected exactly one exchange call, got %d", len(mock.calls))
	}
	intent := mock.calls[0]
	if intent.Symbol != "BTCUSDT" || intent.Side != order.SideBuy || intent.OrderType != order.TypeLimit {
		t.Errorf("expected canonicalized intent, got %+v", intent)
	}
	if intent.TimeInForce != "GTC" {
		t.Errorf("expected default GTC timeInForce, got %s", intent.TimeInForce)
	}
}

func TestSubmit_SurfacesExchangeErrorsUnchanged(t *testing.T) {
	apiErr := &exchange.APIError{Op: "place_order", Message: "Margin is insufficient."}
	mock := &mockPlacer{err: apiErr}
	submitter := NewSubmitter(mock, nil)

	_, err := submitter.Submit(context.Background(), order.Request{
		Symbol:    "BTCUSDT",
		Side:      "SELL",
		OrderType: "MARKET",
		Quantity:  "0.01",
	})
	if !errors.Is(err, apiErr) {
		t.Fatalf("expected API error surfaced unchanged, got %v", err)
	}

	netErr := &exchange.NetworkError{Op: "place_order", Err: errors.New("connection reset")}
	mock = &mockPlacer{err: netErr}
	submitter = NewSubmitter(mock, nil)

	_, err = submitter.Submit(context.Background(), order.Request{
		Symbol:    "BTCUSDT",
		Side:      "SELL",
		OrderType: "MARKET",
		Quantity:  "0.01",
	})
	if !exchange.IsNetworkError(err) {
		t.Fatalf("expected network error kind, got %v", err)
	}
	if exchange.IsAPIError(err) {
		t.Errorf("network error must remain distinguishable from API error")
	}
}
