package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/tgim/tgim-assistant-go/internal/client"
	"github.com/tgim/tgim-assistant-go/internal/model"
	"go.uber.org/zap"
)

// 谈判回复的输出 token 预算
const negotiationMaxTokens = 800

// NegotiationStore 谈判持久化接口
type NegotiationStore interface {
	Create(ctx context.Context, n *model.Negotiation) error
	Update(ctx context.Context, id string, messages []model.ChatMessage, nctx model.NegotiationContext) error
	GetByID(ctx context.Context, id string) (*model.Negotiation, error)
	ListByUser(ctx context.Context, userID string) ([]model.Negotiation, error)
}

// NegotiatorService 谈判教练服务
// 组装谈判提示词、调用补全、解析结构化字段；降级时返回基于上下文的 mock 回复
type NegotiatorService struct {
	completer   Completer
	prompt      *PromptService
	interpreter *InterpreterService
	store       NegotiationStore
	logger      *zap.Logger
}

// Completer 补全接口（见 client.Completer，此处只为依赖注入解耦）
type Completer = client.Completer

// NewNegotiatorService 创建谈判教练服务
func NewNegotiatorService(completer Completer, prompt *PromptService, interpreter *InterpreterService, store NegotiationStore, logger *zap.Logger) *NegotiatorService {
	return &NegotiatorService{
		completer:   completer,
		prompt:      prompt,
		interpreter: interpreter,
		store:       store,
		logger:      logger,
	}
}

// Respond 生成一轮谈判回复，永不失败
func (s *NegotiatorService) Respond(ctx context.Context, nctx model.NegotiationContext, history []model.ChatMessage, userMessage string) *model.AIResponse {
	systemPrompt := s.prompt.BuildNegotiationPrompt(nctx)

	comp := s.completer.Complete(ctx, systemPrompt, toClientMessages(history), userMessage, negotiationMaxTokens)
	if comp.Degraded {
		s.logger.Info("谈判补全降级，返回 mock 回复")
		return s.mockResponse(nctx)
	}

	resp := s.interpreter.ParseNegotiation(comp.Text, nctx)
	resp.Mode = client.ModeOpenAI
	return &resp
}

// History 读取用户的谈判历史
func (s *NegotiatorService) History(ctx context.Context, userID string) ([]model.Negotiation, error) {
	list, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("读取谈判历史失败: %w", err)
	}
	return list, nil
}

// Load 读取一条谈判记录
func (s *NegotiatorService) Load(ctx context.Context, id string) (*model.Negotiation, error) {
	n, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("读取谈判记录失败: %w", err)
	}
	return n, nil
}

// mockResponse 降级时的上下文相关回复
func (s *NegotiatorService) mockResponse(nctx model.NegotiationContext) *model.AIResponse {
	strategy := "Approche collaborative pour créer de la valeur mutuelle"
	actions := []string{
		"Préparer une contre-proposition détaillée",
		"Analyser les multiples du secteur",
		"Identifier les synergies potentielles",
		"Anticiper les objections de la contrepartie",
	}

	targetName := nctx.TargetName
	if targetName == "" {
		targetName = "cette entreprise"
	}
	askingPrice := "À négocier"
	if nctx.AskingPrice > 0 {
		askingPrice = fmt.Sprintf("%.0f€", nctx.AskingPrice)
	}
	valuation := "À déterminer"
	if nctx.Valuation > 0 {
		valuation = fmt.Sprintf("%.0f€", nctx.Valuation)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Basé sur votre situation de négociation avec %s, je recommande une approche structurée.\n\n", targetName))
	b.WriteString("**Analyse de la situation:**\n")
	b.WriteString(fmt.Sprintf("- Prix demandé: %s\n", askingPrice))
	b.WriteString(fmt.Sprintf("- Valorisation estimée: %s\n", valuation))
	b.WriteString(fmt.Sprintf("- Étape: %s\n\n", nctx.Stage))
	b.WriteString(fmt.Sprintf("**Stratégie recommandée:** %s\n\n", strategy))
	b.WriteString("**Actions suggérées:**\n")
	for _, action := range actions {
		b.WriteString("• " + action + "\n")
	}
	b.WriteString("\n**Prochaines étapes:**\n1. Préparer votre argumentaire\n2. Analyser les multiples du marché\n3. Identifier les points de négociation\n4. Planifier la prochaine réunion")

	return &model.AIResponse{
		Message:           b.String(),
		Strategy:          strategy,
		Confidence:        75,
		SuggestedActions:  actions,
		RiskAssessment:    RiskModerate,
		NextSteps:         []string{"Préparer l'argumentaire", "Analyser le marché", "Planifier la suite"},
		EmotionalGuidance: "Restez professionnel et orienté résultats",
		Mode:              client.ModeMock,
	}
}

// toClientMessages 转换历史消息为补全请求格式
func toClientMessages(history []model.ChatMessage) []client.Message {
	messages := make([]client.Message, 0, len(history))
	for _, msg := range history {
		messages = append(messages, client.Message{Role: msg.Role, Content: msg.Content})
	}
	return messages
}
