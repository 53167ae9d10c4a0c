package execution

import (
	"context"

	"go.uber.org/zap"

	"futures-chat/internal/exchange"
	"futures-chat/internal/order"
)

type orderPlacer interface {
	PlaceOrder(ctx context.Context, intent order.Intent) (exchange.OrderResponse, error)
}

// Submitter 将校验与下单组合为单次提交操作。
type Submitter struct {
	client orderPlacer
	logger *zap.Logger
}

// NewSubmitter 创建订单提交器。
func NewSubmitter(client orderPlacer, logger *zap.Logger) *Submitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Submitter{
		client: client,
		logger: logger,
	}
}

// Submit 先本地校验再提交订单。校验失败时不发起任何网络调用；
// 交易所侧错误原样上抛（APIError/NetworkError），不做吞并或改写。
func (s *Submitter) Submit(ctx context.Context, req order.Request) (exchange.OrderResponse, error) {
	intent, err := order.Validate(req)
	if err != nil {
		s.logger.Warn("订单校验未通过",
			zap.String("symbol", req.Symbol),
			zap.Error(err),
		)
		return exchange.OrderResponse{}, err
	}

	resp, err := s.client.PlaceOrder(ctx, intent)
	if err != nil {
		s.logger.Error("下单失败",
			zap.String("symbol", intent.Symbol),
			zap.String("side", string(intent.Side)),
			zap.String("type", string(intent.OrderType)),
			zap.Error(err),
		)
		return exchange.OrderResponse{}, err
	}

	return resp, nil
}
