package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/tgim/tgim-assistant-go/internal/model"
)

// 会话功能面
const (
	FeatureAssistant  = "assistant"
	FeatureNegotiator = "negotiator"
	FeatureValuator   = "valuator"
)

const defaultTurnTimeout = 30 * time.Second

// 每个功能面的欢迎语
const (
	welcomeAssistant  = "🎉 Bonjour ! Je suis votre assistant TGIM Guild. Je suis là pour vous accompagner dans votre parcours entrepreneurial et vous aider à naviguer dans notre communauté. Comment puis-je vous aider aujourd'hui ?"
	welcomeNegotiator = "Bonjour ! Je suis votre coach de négociation M&A. Décrivez-moi la situation ou posez votre question pour démarrer la session."
	welcomeValuator   = "Bonjour ! Je suis le module de valorisation TGIM. Posez vos questions ou utilisez le formulaire pour lancer une évaluation complète."
)

// 超时兜底回复
const timeoutReply = "Désolé, je rencontre des difficultés techniques. Veuillez réessayer dans quelques instants."

var (
	// ErrConversationNotFound 会话不存在
	ErrConversationNotFound = errors.New("会话不存在")
	// ErrConversationBusy 上一轮尚未结束
	ErrConversationBusy = errors.New("会话正在生成回复")
)

// AssistantEngine 助手问答引擎
type AssistantEngine interface {
	Answer(ctx context.Context, userID, message, knowledge string, history []model.ChatMessage) (string, map[string]interface{}, error)
}

// NegotiationEngine 谈判教练引擎
type NegotiationEngine interface {
	Respond(ctx context.Context, nctx model.NegotiationContext, history []model.ChatMessage, userMessage string) *model.AIResponse
}

// HistoryCache 跨连接的助手聊天历史（见 HistoryService）
type HistoryCache interface {
	Append(ctx context.Context, userID, role, content string)
	RecentMessages(ctx context.Context, userID string, n int) []model.ChatMessage
}

// Conversation 单个会话的全部状态
type Conversation struct {
	ID      string
	Feature string
	UserID  string

	// 谈判会话专属
	NegotiationID string
	Scenario      string
	Context       *model.NegotiationContext

	Messages  []model.ChatMessage
	Open      bool
	Minimized bool
	Loading   bool
	LastError string

	mu sync.Mutex
}

// Snapshot 返回消息列表的拷贝
func (c *Conversation) Snapshot() []model.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.ChatMessage, len(c.Messages))
	copy(out, c.Messages)
	return out
}

// IsLoading 返回当前是否有回合在生成中
func (c *Conversation) IsLoading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Loading
}

// ConversationService 会话状态管理
// 持有所有活跃会话，串行化每个会话的回合，并负责谈判会话落库
type ConversationService struct {
	conversations map[string]*Conversation
	mu            sync.RWMutex

	assistant  AssistantEngine
	negotiator NegotiationEngine
	store      NegotiationStore
	history    HistoryCache
	timeout    time.Duration
	logger     *zap.Logger
}

// NewConversationService 创建会话服务（timeout 为 0 时取默认 30 秒）
func NewConversationService(assistant AssistantEngine, negotiator NegotiationEngine, store NegotiationStore, history HistoryCache, timeout time.Duration, logger *zap.Logger) *ConversationService {
	if timeout <= 0 {
		timeout = defaultTurnTimeout
	}
	return &ConversationService{
		conversations: make(map[string]*Conversation),
		assistant:     assistant,
		negotiator:    negotiator,
		store:         store,
		history:       history,
		timeout:       timeout,
		logger:        logger,
	}
}

// Open 打开一个助手或估值会话，并注入欢迎语
// 助手会话从 Redis 历史缓存还原最近的轮次，跨连接保留上下文
func (s *ConversationService) Open(ctx context.Context, userID, feature string) *Conversation {
	conv := &Conversation{
		ID:      uuid.New().String(),
		Feature: feature,
		UserID:  userID,
		Open:    true,
	}
	conv.Messages = append(conv.Messages, welcomeMessage(feature))

	if feature == FeatureAssistant && s.history != nil {
		conv.Messages = append(conv.Messages, s.history.RecentMessages(ctx, userID, historyWindow)...)
	}

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.mu.Unlock()
	return conv
}

// OpenNegotiation 打开一个新的谈判会话
func (s *ConversationService) OpenNegotiation(userID, scenario string, nctx model.NegotiationContext) *Conversation {
	conv := &Conversation{
		ID:       uuid.New().String(),
		Feature:  FeatureNegotiator,
		UserID:   userID,
		Scenario: scenario,
		Context:  &nctx,
		Open:     true,
	}
	conv.Messages = append(conv.Messages, welcomeMessage(FeatureNegotiator))

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.mu.Unlock()
	return conv
}

// Resume 从持久化记录恢复一个谈判会话
// 只能续接自己的谈判，他人的记录与不存在同样处理
func (s *ConversationService) Resume(ctx context.Context, userID, negotiationID string) (*Conversation, error) {
	neg, err := s.store.GetByID(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	if neg.UserID != userID {
		return nil, ErrConversationNotFound
	}

	nctx := neg.Context
	conv := &Conversation{
		ID:            uuid.New().String(),
		Feature:       FeatureNegotiator,
		UserID:        userID,
		NegotiationID: neg.ID,
		Scenario:      neg.Scenario,
		Context:       &nctx,
		Messages:      append([]model.ChatMessage(nil), neg.Messages...),
		Open:          true,
	}

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	s.mu.Unlock()
	return conv, nil
}

// Get 按 ID 查找会话
func (s *ConversationService) Get(id string) (*Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[id]
	return conv, ok
}

// Count 返回活跃会话数
func (s *ConversationService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Close 关闭并移除会话
func (s *ConversationService) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.conversations[id]; ok {
		conv.mu.Lock()
		conv.Open = false
		conv.mu.Unlock()
		delete(s.conversations, id)
	}
}

// Minimize 切换会话的折叠状态
func (s *ConversationService) Minimize(id string, minimized bool) {
	s.mu.RLock()
	conv, ok := s.conversations[id]
	s.mu.RUnlock()
	if ok {
		conv.mu.Lock()
		conv.Minimized = minimized
		conv.mu.Unlock()
	}
}

// SendMessage 执行一轮对话：追加用户消息，生成并追加恰好一条助手回复
// 上一轮未结束时返回 ErrConversationBusy，生成超时则以兜底文案代替；
// 他人的会话与不存在同样处理
func (s *ConversationService) SendMessage(ctx context.Context, userID, conversationID, content string) (model.ChatMessage, error) {
	s.mu.RLock()
	conv, ok := s.conversations[conversationID]
	s.mu.RUnlock()
	if !ok || conv.UserID != userID {
		return model.ChatMessage{}, ErrConversationNotFound
	}

	conv.mu.Lock()
	if conv.Loading {
		conv.mu.Unlock()
		return model.ChatMessage{}, ErrConversationBusy
	}
	history := make([]model.ChatMessage, len(conv.Messages))
	copy(history, conv.Messages)

	userMsg := model.ChatMessage{
		ID:        uuid.New().String(),
		Role:      model.RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
	conv.Messages = append(conv.Messages, userMsg)
	conv.Loading = true
	conv.LastError = ""
	conv.mu.Unlock()

	tctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ch := make(chan model.ChatMessage, 1)
	go func() {
		ch <- s.generate(tctx, conv, history, content)
	}()

	var reply model.ChatMessage
	select {
	case reply = <-ch:
	case <-tctx.Done():
		s.logger.Warn("回合生成超时",
			zap.String("conversationId", conv.ID),
			zap.String("feature", conv.Feature))
		reply = model.ChatMessage{
			ID:        uuid.New().String(),
			Role:      model.RoleAssistant,
			Content:   timeoutReply,
			Timestamp: time.Now(),
		}
		conv.mu.Lock()
		conv.LastError = tctx.Err().Error()
		conv.mu.Unlock()
	}

	conv.mu.Lock()
	conv.Messages = append(conv.Messages, reply)
	conv.Loading = false
	conv.mu.Unlock()

	switch conv.Feature {
	case FeatureNegotiator:
		s.persistNegotiation(ctx, conv)
	case FeatureAssistant:
		if s.history != nil {
			s.history.Append(ctx, conv.UserID, model.RoleUser, content)
			s.history.Append(ctx, conv.UserID, model.RoleAssistant, reply.Content)
		}
	}

	return reply, nil
}

// generate 按功能面调用对应引擎，返回助手消息
func (s *ConversationService) generate(ctx context.Context, conv *Conversation, history []model.ChatMessage, content string) model.ChatMessage {
	msg := model.ChatMessage{
		ID:        uuid.New().String(),
		Role:      model.RoleAssistant,
		Timestamp: time.Now(),
	}

	switch conv.Feature {
	case FeatureNegotiator:
		var nctx model.NegotiationContext
		if conv.Context != nil {
			nctx = *conv.Context
		}
		resp := s.negotiator.Respond(ctx, nctx, history, content)
		msg.Content = resp.Message
		msg.Metadata = &model.MessageMetadata{
			Strategy:         resp.Strategy,
			Confidence:       resp.Confidence,
			SuggestedActions: resp.SuggestedActions,
			RiskAssessment:   resp.RiskAssessment,
			Mode:             resp.Mode,
		}
	default:
		text, meta, err := s.assistant.Answer(ctx, conv.UserID, content, "", history)
		if err != nil {
			s.logger.Error("助手回复生成失败",
				zap.String("conversationId", conv.ID),
				zap.Error(err))
			msg.Content = timeoutReply
			conv.mu.Lock()
			conv.LastError = err.Error()
			conv.mu.Unlock()
			return msg
		}
		msg.Content = text
		if mode, ok := meta["mode"].(string); ok {
			msg.Metadata = &model.MessageMetadata{Mode: mode}
		}
	}
	return msg
}

// persistNegotiation 将谈判会话落库：首轮创建，此后整本覆盖更新
// 持久化失败只记录日志，不影响会话继续
func (s *ConversationService) persistNegotiation(ctx context.Context, conv *Conversation) {
	if s.store == nil {
		return
	}

	conv.mu.Lock()
	messages := make([]model.ChatMessage, len(conv.Messages))
	copy(messages, conv.Messages)
	var nctx model.NegotiationContext
	if conv.Context != nil {
		nctx = *conv.Context
	}
	negotiationID := conv.NegotiationID
	conv.mu.Unlock()

	if negotiationID == "" {
		neg := &model.Negotiation{
			ID:        ulid.Make().String(),
			UserID:    conv.UserID,
			Scenario:  conv.Scenario,
			Context:   nctx,
			Messages:  messages,
			CreatedAt: time.Now(),
		}
		if err := s.store.Create(ctx, neg); err != nil {
			s.logger.Error("谈判会话创建失败",
				zap.String("conversationId", conv.ID),
				zap.Error(err))
			return
		}
		conv.mu.Lock()
		conv.NegotiationID = neg.ID
		conv.mu.Unlock()
		return
	}

	if err := s.store.Update(ctx, negotiationID, messages, nctx); err != nil {
		s.logger.Error("谈判会话更新失败",
			zap.String("negotiationId", negotiationID),
			zap.Error(err))
	}
}

func welcomeMessage(feature string) model.ChatMessage {
	content := welcomeAssistant
	switch feature {
	case FeatureNegotiator:
		content = welcomeNegotiator
	case FeatureValuator:
		content = welcomeValuator
	}
	return model.ChatMessage{
		ID:        uuid.New().String(),
		Role:      model.RoleAssistant,
		Content:   content,
		Timestamp: time.Now(),
	}
}
