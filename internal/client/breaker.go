package client

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// 熔断器默认参数
const (
	breakerMaxFailures uint32 = 5
	breakerTimeout            = 30 * time.Second
	breakerInterval           = 60 * time.Second
)

// breakerResult 熔断器包裹的调用结果
type breakerResult struct {
	text  string
	usage Usage
}

// BreakerCaller 带熔断保护的聊天补全调用器
// 连续失败达到阈值后打开熔断，后续调用直接快速失败，避免重试风暴；
// 上层的降级逻辑把熔断错误当作普通失败处理
type BreakerCaller struct {
	inner   ChatCaller
	breaker *gobreaker.CircuitBreaker[breakerResult]
	logger  *zap.Logger
}

// NewBreakerCaller 包装原始调用器
func NewBreakerCaller(inner ChatCaller, logger *zap.Logger) *BreakerCaller {
	cb := gobreaker.NewCircuitBreaker[breakerResult](gobreaker.Settings{
		Name:        "openai-chat",
		MaxRequests: 1, // 半开状态只放行一个探测请求
		Interval:    breakerInterval,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("熔断器状态变化",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &BreakerCaller{
		inner:   inner,
		breaker: cb,
		logger:  logger,
	}
}

// Chat 经熔断器转发调用
func (b *BreakerCaller) Chat(ctx context.Context, messages []Message, maxTokens int) (string, Usage, error) {
	result, err := b.breaker.Execute(func() (breakerResult, error) {
		text, usage, err := b.inner.Chat(ctx, messages, maxTokens)
		return breakerResult{text: text, usage: usage}, err
	})
	if err != nil {
		return "", Usage{}, err
	}
	return result.text, result.usage, nil
}

// State 返回当前熔断器状态（健康检查用）
func (b *BreakerCaller) State() gobreaker.State {
	return b.breaker.State()
}
