package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tgim/tgim-assistant-go/internal/client"
	"github.com/tgim/tgim-assistant-go/internal/middleware"
	"github.com/tgim/tgim-assistant-go/internal/service"
	"github.com/tgim/tgim-assistant-go/internal/vectorstore"
)

type stubCompleter struct {
	text     string
	degraded bool
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt string, history []client.Message, userMessage string, maxTokens int) client.Completion {
	return client.Completion{Text: s.text, Model: "gpt-4o-mini", Degraded: s.degraded}
}

func (s *stubCompleter) Enabled() bool { return !s.degraded }

func newChatRouter(completer client.Completer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	embedding := client.NewEmbeddingClient("", "text-embedding-3-small", "", logger)
	knowledge := service.NewKnowledgeService(nil, embedding, vectorstore.NewMemoryStore(logger), logger)
	chatService := service.NewChatService(nil, knowledge, service.NewPromptService(), completer, "gpt-4o-mini", logger)

	r := gin.New()
	r.Use(middleware.CORS())
	r.Use(middleware.Identity())
	r.POST("/api/chat", NewChatHandler(chatService, logger).Chat)
	return r
}

func TestChatEndpoint(t *testing.T) {
	t.Run("正常回复", func(t *testing.T) {
		r := newChatRouter(&stubCompleter{text: "Voici mon analyse."})

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"message": "comment financer une reprise ?"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, 200, w.Code)

		var resp struct {
			Response string                 `json:"response"`
			Metadata map[string]interface{} `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Voici mon analyse.", resp.Response)
		assert.Equal(t, "openai", resp.Metadata["mode"])
	})

	t.Run("降级时返回 mock 标记", func(t *testing.T) {
		r := newChatRouter(&stubCompleter{text: client.MockResponse, degraded: true})

		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"message": "bonjour"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, 200, w.Code)

		var resp struct {
			Response string                 `json:"response"`
			Metadata map[string]interface{} `json:"metadata"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, client.MockResponse, resp.Response)
		assert.Equal(t, "mock", resp.Metadata["mode"])
	})

	t.Run("message 缺失返回 400", func(t *testing.T) {
		r := newChatRouter(&stubCompleter{text: "ok"})

		for _, body := range []string{`{}`, `{"message": 42}`, `{"message": ""}`, `pas du json`} {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, 400, w.Code, "body: %s", body)
			assert.Contains(t, w.Body.String(), "Message manquant")
		}
	})

	t.Run("预检请求直接放行", func(t *testing.T) {
		r := newChatRouter(&stubCompleter{text: "ok"})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
		req.Header.Set("Origin", "https://app.tgim.fr")
		r.ServeHTTP(w, req)

		assert.Equal(t, 204, w.Code)
		assert.Equal(t, "https://app.tgim.fr", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type, Authorization", w.Header().Get("Access-Control-Allow-Headers"))
	})
}
