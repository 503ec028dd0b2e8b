package service

import (
	"context"

	"github.com/tgim/tgim-assistant-go/internal/client"
	"github.com/tgim/tgim-assistant-go/internal/model"
	"go.uber.org/zap"
)

// 通用助手回复的输出 token 预算
const chatMaxTokens = 800

// ChatService 通用助手服务
// 服务端聚合上下文、构建系统指令并调用补全；浏览器不接触模型凭证
type ChatService struct {
	contextService *ContextService
	knowledge      *KnowledgeService
	prompt         *PromptService
	completer      Completer
	model          string
	logger         *zap.Logger
}

// NewChatService 创建通用助手服务
func NewChatService(
	contextService *ContextService,
	knowledge *KnowledgeService,
	prompt *PromptService,
	completer Completer,
	modelName string,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		contextService: contextService,
		knowledge:      knowledge,
		prompt:         prompt,
		completer:      completer,
		model:          modelName,
		logger:         logger,
	}
}

// Answer 处理一条助手消息
// knowledge 覆盖文本非空时跳过数据库聚合；身份缺失时退化为无个性化上下文
func (s *ChatService) Answer(ctx context.Context, userID, message, knowledge string, history []model.ChatMessage) (string, map[string]interface{}, error) {
	var agg *model.AggregatedContext
	if knowledge == "" && userID != "" {
		var err error
		agg, err = s.contextService.GatherChat(ctx, userID)
		if err != nil {
			// 聚合只会因身份缺失失败，此处 userID 非空不应触达
			s.logger.Warn("上下文聚合失败", zap.Error(err))
		}

		// 标的与估值记录走谈判口径的聚合，并入同一份上下文
		if negAgg, err := s.contextService.GatherNegotiation(ctx, userID); err == nil {
			if agg == nil {
				agg = negAgg
			} else {
				agg.Targets = negAgg.Targets
				agg.Evaluations = negAgg.Evaluations
			}
		}
	}

	groups := s.knowledge.RelevantGroups(ctx, message)
	systemPrompt := s.prompt.BuildAssistantPrompt(groups, agg, knowledge)

	comp := s.completer.Complete(ctx, systemPrompt, toClientMessages(history), message, chatMaxTokens)

	metadata := map[string]interface{}{
		"model": comp.Model,
		"mode":  client.ModeOpenAI,
	}
	if comp.Degraded {
		metadata["mode"] = client.ModeMock
	} else {
		metadata["tokens"] = comp.Usage
	}

	return comp.Text, metadata, nil
}
