package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"futures-chat/internal/ai"
	"futures-chat/internal/confirm"
	"futures-chat/internal/exchange"
	"futures-chat/internal/journal"
	"futures-chat/internal/order"
)

type chatRequest struct {
	Message string       `json:"message"`
	History []ai.Message `json:"history,omitempty"`
}

type confirmTradeRequest struct {
	Token string `json:"token"`
}

type runBotRequest struct {
	Symbol string `json:"symbol"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func newHTTPServer(svc *service, port int, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Health(), logger)
	})

	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeBody(w, r, &req, logger) {
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			writeError(w, newBadRequest("message 不能为空"), logger)
			return
		}

		result, err := svc.Chat(r.Context(), req.Message, req.History)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result, logger)
	})

	mux.HandleFunc("/api/confirm-trade", func(w http.ResponseWriter, r *http.Request) {
		var req confirmTradeRequest
		if !decodeBody(w, r, &req, logger) {
			return
		}

		result, err := svc.ConfirmTrade(r.Context(), req.Token)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result, logger)
	})

	mux.HandleFunc("/api/order", func(w http.ResponseWriter, r *http.Request) {
		var req order.Request
		if !decodeBody(w, r, &req, logger) {
			return
		}

		result, err := svc.PlaceOrder(r.Context(), req)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result, logger)
	})

	mux.HandleFunc("/api/run-bot", func(w http.ResponseWriter, r *http.Request) {
		var req runBotRequest
		if r.Body != nil && r.ContentLength != 0 {
			if !decodeBody(w, r, &req, logger) {
				return
			}
		}

		result, err := svc.RunBot(r.Context(), req.Symbol, true)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result, logger)
	})

	mux.HandleFunc("/api/symbols", func(w http.ResponseWriter, r *http.Request) {
		symbols, err := svc.Symbols(r.Context())
		if err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"symbols": symbols}, logger)
	})

	mux.HandleFunc("/api/events", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit := 200
		if qs := q.Get("limit"); qs != "" {
			if v, err := strconv.Atoi(qs); err == nil && v > 0 {
				if v > 1000 {
					v = 1000
				}
				limit = v
			}
		}

		eventType := journal.EventType("")
		if typ := strings.TrimSpace(q.Get("type")); typ != "" {
			eventType = journal.EventType(strings.ToLower(typ))
		}

		events, err := svc.ListEvents(r.Context(), eventType, limit)
		if err != nil {
			writeError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, events, logger)
	})

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}, logger *zap.Logger) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, newBadRequest(fmt.Sprintf("请求体解析失败: %v", err)), logger)
		return false
	}
	return true
}

// badRequestError 标记纯请求层面的错误（缺字段、JSON 非法）。
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func newBadRequest(msg string) error { return &badRequestError{msg: msg} }

// writeError 将领域错误映射为 HTTP 状态码：
// 校验失败与无效令牌是调用方问题（400），凭证缺失是部署问题（503），
// 交易所拒单原样转发（400），网络故障视为网关错误（502）。
func writeError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var (
		badReq *badRequestError
		valErr *order.ValidationError
		cfgErr *exchange.ConfigurationError
		llmErr *ai.ConfigurationError
		apiErr *exchange.APIError
		netErr *exchange.NetworkError
	)

	status := http.StatusInternalServerError
	detail := err.Error()

	switch {
	case errors.As(err, &badReq):
		status = http.StatusBadRequest
	case errors.Is(err, confirm.ErrInvalidToken):
		status = http.StatusBadRequest
	case errors.As(err, &valErr):
		status = http.StatusBadRequest
	case errors.As(err, &cfgErr):
		status = http.StatusServiceUnavailable
	case errors.As(err, &llmErr):
		status = http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		status = http.StatusBadRequest
		detail = apiErr.Message
	case errors.As(err, &netErr):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		logger.Error("请求处理失败", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Detail: detail}, logger)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("写入响应失败", zap.Error(err))
	}
}

// startServer 启动 HTTP 服务并随 ctx 退出优雅关闭。
func startServer(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("HTTP 服务已启动", zap.String("addr", srv.Addr))

	select {
	case <-ctx.Done():
		if shutdownTimeout <= 0 {
			shutdownTimeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("关闭 HTTP 服务失败", zap.Error(err))
		}
		return nil
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("HTTP 服务异常: %w", err)
		}
		return nil
	}
}
