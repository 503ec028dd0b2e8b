package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tgim/tgim-assistant-go/internal/middleware"
	"github.com/tgim/tgim-assistant-go/internal/model"
	"github.com/tgim/tgim-assistant-go/internal/service"
)

// ChatHandler 助手问答处理器
type ChatHandler struct {
	chatService *service.ChatService
	logger      *zap.Logger
}

// NewChatHandler 创建助手问答处理器
func NewChatHandler(chatService *service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// Chat 单轮问答入口
// message 缺失或不是字符串时返回 400
func (h *ChatHandler) Chat(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(400, gin.H{"error": "Message manquant"})
		return
	}

	message, ok := body["message"].(string)
	if !ok || message == "" {
		c.JSON(400, gin.H{"error": "Message manquant"})
		return
	}
	knowledge, _ := body["knowledge"].(string)

	userID := middleware.UserID(c)

	response, metadata, err := h.chatService.Answer(c.Request.Context(), userID, message, knowledge, nil)
	if err != nil {
		h.logger.Error("问答处理失败",
			zap.String("userId", userID),
			zap.Error(err))
		c.JSON(500, gin.H{"error": "Server error", "detail": err.Error()})
		return
	}

	c.JSON(200, model.ChatReply{
		Response: response,
		Metadata: metadata,
	})
}
