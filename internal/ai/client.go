package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"futures-chat/internal/config"
)

// Message 为一轮对话消息，Role 取 user/assistant。
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client 封装大模型调用逻辑。通过 OpenAI 兼容接口访问，
// base_url 指向 Groq 等兼容服务由配置决定。
type Client struct {
	cfg    config.LLMConfig
	logger *zap.Logger
	sdk    *openai.Client
}

// ConfigurationError 表示大模型凭证缺失，对当前进程配置是致命的，
// 但不阻止进程启动：公开行情与用户直接下单仍可用。
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// ErrNotConfigured 在未配置 api_key 时由 Complete 返回。
var ErrNotConfigured error = &ConfigurationError{Message: "GROQ_API_KEY not configured"}

// NewClient 使用给定配置创建 AI 客户端。api_key 缺失不报错，
// 此时客户端可构造但任何补全调用都会失败。
func NewClient(cfg config.LLMConfig, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sdkConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		sdkConfig.BaseURL = cfg.BaseURL
	}
	sdkConfig.HTTPClient = &http.Client{
		Timeout: cfg.Timeout,
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		sdk:    openai.NewClientWithConfig(sdkConfig),
	}
}

// Configured 返回是否已配置 api_key。
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Complete 以给定系统提示词与对话历史调用模型，返回原始文本回复。
// 未配置 api_key 时返回 ErrNotConfigured，不发起任何网络调用。
func (c *Client) Complete(ctx context.Context, system string, messages []Message, temperature float32) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}
	if c.cfg.Model == "" {
		return "", errors.New("llm model 不能为空")
	}

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	chatMessages = append(chatMessages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, m := range messages {
		role := m.Role
		if role != openai.ChatMessageRoleAssistant {
			role = openai.ChatMessageRoleUser
		}
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	response, err := c.sdk.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    chatMessages,
		Temperature: temperature,
	})
	if err != nil {
		c.logger.Error("调用大模型失败", zap.Error(err))
		return "", fmt.Errorf("调用大模型失败: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", errors.New("大模型返回结果为空")
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("大模型返回内容为空")
	}
	return content, nil
}

// ChatTemperature 返回闲聊场景的采样温度。
func (c *Client) ChatTemperature() float32 {
	return c.cfg.ChatTemperature
}

// DecisionTemperature 返回交易决策场景的采样温度。
func (c *Client) DecisionTemperature() float32 {
	return c.cfg.DecisionTemperature
}

// HistoryLimit 返回注入提示词的最大历史轮数。
func (c *Client) HistoryLimit() int {
	if c.cfg.HistoryLimit <= 0 {
		return 10
	}
	return c.cfg.HistoryLimit
}
