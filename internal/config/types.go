package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// ExchangeConfig 描述交易所连接信息。
type ExchangeConfig struct {
	Name          string        `mapstructure:"name"`
	APIKey        string        `mapstructure:"api_key"`
	APISecret     string        `mapstructure:"api_secret"`
	UseSandbox    bool          `mapstructure:"use_sandbox"`
	DefaultSymbol string        `mapstructure:"default_symbol"`
	PublicTimeout time.Duration `mapstructure:"public_timeout"`
}

// LLMConfig 描述大模型调用参数。默认对接 Groq 的 OpenAI 兼容接口。
type LLMConfig struct {
	APIKey              string        `mapstructure:"api_key"`
	BaseURL             string        `mapstructure:"base_url"`
	Model               string        `mapstructure:"model"`
	ChatTemperature     float32       `mapstructure:"chat_temperature"`
	DecisionTemperature float32       `mapstructure:"decision_temperature"`
	Timeout             time.Duration `mapstructure:"timeout"`
	HistoryLimit        int           `mapstructure:"history_limit"`
}

// ServerConfig 控制 HTTP 服务。
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig 管理数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate 校验配置合法性，聚合所有错误一次性返回。
func (c *Config) Validate() error {
	var err error

	if c.Exchange.Name == "" {
		err = multierr.Append(err, errors.New("exchange.name 不能为空"))
	}
	if c.Exchange.DefaultSymbol == "" {
		err = multierr.Append(err, errors.New("exchange.default_symbol 不能为空"))
	}
	if c.Exchange.PublicTimeout <= 0 {
		err = multierr.Append(err, errors.New("exchange.public_timeout 必须大于0"))
	}
	if c.LLM.Model == "" {
		err = multierr.Append(err, errors.New("llm.model 不能为空"))
	}
	if c.LLM.Timeout <= 0 {
		err = multierr.Append(err, errors.New("llm.timeout 必须大于0"))
	}
	if c.LLM.HistoryLimit < 0 {
		err = multierr.Append(err, errors.New("llm.history_limit 不能为负数"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		err = multierr.Append(err, errors.New("server.port 必须位于 (0, 65535]"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding != "console" && c.Logging.Encoding != "json" {
		err = multierr.Append(err, fmt.Errorf("logging.encoding 仅支持 console/json，当前为 %q", c.Logging.Encoding))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
