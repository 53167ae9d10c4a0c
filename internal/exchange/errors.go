package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"

	ccxt "github.com/ccxt/ccxt/go/v4"
)

// APIError 表示交易所拒绝了一个语法合法的请求，原样携带交易所的错误信息。
type APIError struct {
	Op      string
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("exchange: %s 被交易所拒绝: %s", e.Op, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// NetworkError 表示传输层故障（超时、DNS、连接重置等），调用方可视为瞬时错误。
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("exchange: %s 网络异常: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ConfigurationError 表示凭证缺失或配置非法，对当前进程配置是致命的。
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("exchange: 配置错误: %s", e.Message)
}

// classifyError 将底层错误归类为 APIError 或 NetworkError，
// 使调用方能够区分"交易所说不行"与"联系不上交易所"。
func classifyError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &NetworkError{Op: op, Err: err}
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		switch ccxtErr.Type {
		case ccxt.NetworkErrorErrType,
			ccxt.RequestTimeoutErrType,
			ccxt.ExchangeNotAvailableErrType,
			ccxt.RateLimitExceededErrType,
			ccxt.DDoSProtectionErrType,
			ccxt.BadResponseErrType,
			ccxt.NullResponseErrType,
			ccxt.OnMaintenanceErrType:
			return &NetworkError{Op: op, Err: err}
		default:
			return &APIError{Op: op, Message: ccxtErr.Message, Err: err}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &NetworkError{Op: op, Err: err}
	}

	return &APIError{Op: op, Message: err.Error(), Err: err}
}

// IsNetworkError 判断错误是否为传输层故障。
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsAPIError 判断错误是否为交易所侧拒绝。
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
