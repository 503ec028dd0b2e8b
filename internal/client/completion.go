package client

import (
	"context"

	"go.uber.org/zap"
)

// 调用模式
const (
	ModeOpenAI = "openai"
	ModeMock   = "mock"
)

// MockResponse 无凭证或调用失败时的固定兜底回复
const MockResponse = "Mode démo (sans OpenAI). Stratégie: Approche collaborative. Actions: préparer une contre-proposition, comparer aux multiples du secteur, planifier une réunion."

// 历史轮次上限，超出部分从最旧开始丢弃
const historyLimit = 10

// Completion 一次补全的结果
// Degraded 为 true 表示没有真实模型回复（无凭证、网络失败、非 2xx、熔断）
type Completion struct {
	Text     string
	Model    string
	Usage    Usage
	Degraded bool
}

// Completer 补全接口：保证永远返回结果，不返回错误
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, history []Message, userMessage string, maxTokens int) Completion
	// Enabled 是否配置了真实凭证
	Enabled() bool
}

// CompletionClient 补全客户端
// 会话必须总能收到一条助手消息，所以所有失败都在这里降级为 mock 回复
type CompletionClient struct {
	caller ChatCaller
	model  string
	apiKey string
	logger *zap.Logger
}

// NewCompletionClient 创建补全客户端
func NewCompletionClient(caller ChatCaller, model, apiKey string, logger *zap.Logger) *CompletionClient {
	return &CompletionClient{
		caller: caller,
		model:  model,
		apiKey: apiKey,
		logger: logger,
	}
}

// Enabled 是否配置了真实凭证
func (c *CompletionClient) Enabled() bool {
	return c.apiKey != ""
}

// Complete 发起一次补全
// system 指令 + 最近 10 轮历史 + 当前用户消息；失败一律降级，不向上抛错
func (c *CompletionClient) Complete(ctx context.Context, systemPrompt string, history []Message, userMessage string, maxTokens int) Completion {
	if c.apiKey == "" {
		c.logger.Debug("未配置 API Key，返回 mock 回复")
		return Completion{Text: MockResponse, Model: c.model, Degraded: true}
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: systemPrompt})

	recent := history
	if len(recent) > historyLimit {
		recent = recent[len(recent)-historyLimit:]
	}
	messages = append(messages, recent...)
	messages = append(messages, Message{Role: "user", Content: userMessage})

	text, usage, err := c.caller.Chat(ctx, messages, maxTokens)
	if err != nil {
		c.logger.Error("模型调用失败，降级为 mock 回复", zap.Error(err))
		return Completion{Text: MockResponse, Model: c.model, Degraded: true}
	}

	c.logger.Info("模型调用成功",
		zap.Int("promptTokens", usage.PromptTokens),
		zap.Int("completionTokens", usage.CompletionTokens))

	return Completion{Text: text, Model: c.model, Usage: usage}
}
