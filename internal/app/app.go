package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"futures-chat/internal/config"
	"futures-chat/internal/journal"
	"futures-chat/internal/store"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 装配服务并运行 HTTP 接口，阻塞到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("交易助手已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("exchange", a.cfg.Exchange.Name),
		zap.String("default_symbol", a.cfg.Exchange.DefaultSymbol),
		zap.Bool("sandbox", a.cfg.Exchange.UseSandbox),
	)

	journalSvc, err := journal.NewService(a.store, a.logger)
	if err != nil {
		return fmt.Errorf("初始化日志服务失败: %w", err)
	}

	svc := newService(a.cfg, a.logger, journalSvc)

	if !svc.exchange.HasCredentials() {
		a.logger.Warn("未配置交易所凭证，签名接口将不可用")
	}
	if !svc.ai.Configured() {
		a.logger.Warn("未配置大模型 api_key，对话与决策接口将不可用")
	}

	srv := newHTTPServer(svc, a.cfg.Server.Port, a.logger)
	if err := startServer(ctx, srv, a.cfg.Server.ShutdownTimeout, a.logger); err != nil {
		return err
	}

	a.logger.Info("系统收到退出信号，正在停止")
	return nil
}
