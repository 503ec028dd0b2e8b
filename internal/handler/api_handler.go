package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tgim/tgim-assistant-go/internal/client"
	"github.com/tgim/tgim-assistant-go/internal/service"
)

// APIHandler 通用 API 处理器
type APIHandler struct {
	sessionService *service.SessionService
	conversations  *service.ConversationService
	breaker        *client.BreakerCaller
	completer      client.Completer
	logger         *zap.Logger
}

// NewAPIHandler 创建通用 API 处理器
func NewAPIHandler(sessionService *service.SessionService, conversations *service.ConversationService, breaker *client.BreakerCaller, completer client.Completer, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		sessionService: sessionService,
		conversations:  conversations,
		breaker:        breaker,
		completer:      completer,
		logger:         logger,
	}
}

// Health 健康检查
func (h *APIHandler) Health(c *gin.Context) {
	mode := "openai"
	if !h.completer.Enabled() {
		mode = "mock"
	}

	payload := gin.H{
		"status":        "UP",
		"mode":          mode,
		"online_users":  h.sessionService.GetOnlineCount(),
		"conversations": h.conversations.Count(),
	}
	if h.breaker != nil {
		payload["upstream_breaker"] = h.breaker.State().String()
	}

	c.JSON(200, payload)
}
