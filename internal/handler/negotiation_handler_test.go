package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tgim/tgim-assistant-go/internal/client"
	"github.com/tgim/tgim-assistant-go/internal/middleware"
	"github.com/tgim/tgim-assistant-go/internal/model"
	"github.com/tgim/tgim-assistant-go/internal/service"
)

type stubStore struct {
	negotiations map[string]*model.Negotiation
}

func (s *stubStore) Create(ctx context.Context, n *model.Negotiation) error {
	s.negotiations[n.ID] = n
	return nil
}

func (s *stubStore) Update(ctx context.Context, id string, messages []model.ChatMessage, nctx model.NegotiationContext) error {
	if n, ok := s.negotiations[id]; ok {
		n.Messages = messages
		n.Context = nctx
		n.Revision++
	}
	return nil
}

func (s *stubStore) GetByID(ctx context.Context, id string) (*model.Negotiation, error) {
	if n, ok := s.negotiations[id]; ok {
		return n, nil
	}
	return nil, context.Canceled
}

func (s *stubStore) ListByUser(ctx context.Context, userID string) ([]model.Negotiation, error) {
	var out []model.Negotiation
	for _, n := range s.negotiations {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

type stubTargetDirectory struct {
	targets map[string]*model.Target
}

func (s *stubTargetDirectory) GetByID(ctx context.Context, id string) (*model.Target, error) {
	if t, ok := s.targets[id]; ok {
		return t, nil
	}
	return nil, context.Canceled
}

func newNegotiationRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	store := &stubStore{negotiations: make(map[string]*model.Negotiation)}
	completer := &stubCompleter{degraded: true}
	negotiator := service.NewNegotiatorService(completer, service.NewPromptService(), service.NewInterpreterService(logger), store, logger)
	conversations := service.NewConversationService(nil, negotiator, store, nil, 0, logger)

	targets := &stubTargetDirectory{targets: map[string]*model.Target{
		"t1": {ID: "t1", Name: "Boulangerie Martin", Sector: "artisanat"},
	}}
	h := NewNegotiationHandler(conversations, negotiator, targets, logger)

	r := gin.New()
	r.Use(middleware.Identity())
	r.POST("/api/negotiations", h.Open)
	r.POST("/api/negotiations/:id/messages", h.Send)
	r.GET("/api/negotiations", h.History)
	return r
}

func TestNegotiationEndpoints(t *testing.T) {
	t.Run("完整会话流程", func(t *testing.T) {
		r := newNegotiationRouter()

		// 打开会话
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/negotiations", strings.NewReader(`{
			"scenario": "acquisition",
			"context": {"target_name": "Cible A", "stage": "initial", "negotiation_type": "acquisition", "user_role": "buyer", "counterpart_role": "seller", "constraints": {"must_haves": [], "nice_to_haves": []}}
		}`))
		req.Header.Set("Authorization", "Bearer u1")
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		require.Equal(t, 200, w.Code)

		var opened struct {
			ConversationID string              `json:"conversation_id"`
			Messages       []model.ChatMessage `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opened))
		require.NotEmpty(t, opened.ConversationID)
		require.Len(t, opened.Messages, 1) // 欢迎语

		// 发送一条消息
		w = httptest.NewRecorder()
		req = httptest.NewRequest("POST", "/api/negotiations/"+opened.ConversationID+"/messages", strings.NewReader(`{"message": "comment aborder le cédant ?"}`))
		req.Header.Set("Authorization", "Bearer u1")
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		require.Equal(t, 200, w.Code)

		var sent struct {
			Message model.ChatMessage `json:"message"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))
		assert.Equal(t, model.RoleAssistant, sent.Message.Role)
		assert.Contains(t, sent.Message.Content, "Cible A")
		require.NotNil(t, sent.Message.Metadata)
		assert.Equal(t, client.ModeMock, sent.Message.Metadata.Mode)

		// 历史里出现这条谈判
		w = httptest.NewRecorder()
		req = httptest.NewRequest("GET", "/api/negotiations", nil)
		req.Header.Set("Authorization", "Bearer u1")
		r.ServeHTTP(w, req)
		require.Equal(t, 200, w.Code)
		assert.Contains(t, w.Body.String(), "Cible A")
	})

	t.Run("未认证返回 401", func(t *testing.T) {
		r := newNegotiationRouter()

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/negotiations", strings.NewReader(`{"scenario": "acquisition"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, 401, w.Code)
	})

	t.Run("会话不存在返回 404", func(t *testing.T) {
		r := newNegotiationRouter()

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/negotiations/absente/messages", strings.NewReader(`{"message": "bonjour"}`))
		req.Header.Set("Authorization", "Bearer u1")
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, 404, w.Code)
	})

	t.Run("只带 target_id 时补全标的信息", func(t *testing.T) {
		r := newNegotiationRouter()

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/negotiations", strings.NewReader(`{
			"scenario": "acquisition",
			"context": {"target_id": "t1", "stage": "initial", "negotiation_type": "acquisition", "user_role": "buyer", "counterpart_role": "seller", "constraints": {"must_haves": [], "nice_to_haves": []}}
		}`))
		req.Header.Set("Authorization", "Bearer u1")
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		require.Equal(t, 200, w.Code)

		var opened struct {
			Context model.NegotiationContext `json:"context"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opened))
		assert.Equal(t, "Boulangerie Martin", opened.Context.TargetName)
		assert.Equal(t, "artisanat", opened.Context.Sector)
	})

	t.Run("他人的会话返回 404", func(t *testing.T) {
		r := newNegotiationRouter()

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/negotiations", strings.NewReader(`{
			"scenario": "acquisition",
			"context": {"target_name": "Cible A", "stage": "initial", "negotiation_type": "acquisition", "user_role": "buyer", "counterpart_role": "seller", "constraints": {"must_haves": [], "nice_to_haves": []}}
		}`))
		req.Header.Set("Authorization", "Bearer u1")
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		require.Equal(t, 200, w.Code)

		var opened struct {
			ConversationID string `json:"conversation_id"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &opened))

		w = httptest.NewRecorder()
		req = httptest.NewRequest("POST", "/api/negotiations/"+opened.ConversationID+"/messages", strings.NewReader(`{"message": "bonjour"}`))
		req.Header.Set("Authorization", "Bearer u2")
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, 404, w.Code)
	})

	t.Run("message 缺失返回 400", func(t *testing.T) {
		r := newNegotiationRouter()

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/negotiations/id/messages", strings.NewReader(`{}`))
		req.Header.Set("Authorization", "Bearer u1")
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, 400, w.Code)
	})
}
