package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tgim/tgim-assistant-go/internal/model"
	"github.com/tgim/tgim-assistant-go/internal/service"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 生产环境应该检查 Origin 白名单
		return true
	},
}

// WebSocketHandler 助手聊天面的 WebSocket 处理器
type WebSocketHandler struct {
	sessionService *service.SessionService
	conversations  *service.ConversationService
	logger         *zap.Logger
}

// NewWebSocketHandler 创建 WebSocket 处理器
func NewWebSocketHandler(sessionService *service.SessionService, conversations *service.ConversationService, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		sessionService: sessionService,
		conversations:  conversations,
		logger:         logger,
	}
}

// HandleWebSocket WebSocket 连接入口
// 每个连接绑定一个助手会话，断开即关闭会话
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.Query("uid")
	if userID == "" {
		c.JSON(400, gin.H{"error": "invalid uid"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket 升级失败", zap.Error(err))
		return
	}
	defer conn.Close()

	// 打开助手会话并注册连接
	conv := h.conversations.Open(c.Request.Context(), userID, service.FeatureAssistant)
	defer h.conversations.Close(conv.ID)

	sessionID := uuid.New().String()
	h.sessionService.RegisterUser(userID, conn, sessionID, conv.ID, c.ClientIP())
	defer h.sessionService.RemoveUserBySessionID(sessionID)

	h.logger.Info("WebSocket 连接建立",
		zap.String("userId", userID),
		zap.String("sessionId", sessionID),
		zap.String("conversationId", conv.ID))

	// 推送欢迎语
	for _, msg := range conv.Snapshot() {
		h.pushMessage(userID, msg)
	}

	// 消息循环
	for {
		var frame model.WSFrame
		err := conn.ReadJSON(&frame)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket 读取错误", zap.Error(err))
			}
			break
		}

		h.handleFrame(userID, conv.ID, &frame)
	}

	h.logger.Info("WebSocket 连接断开", zap.String("userId", userID))
}

// handleFrame 处理一帧客户端消息
func (h *WebSocketHandler) handleFrame(userID, conversationID string, frame *model.WSFrame) {
	switch frame.Type {
	case "CHAT":
		// 立即返回确认，回复异步推送
		h.sessionService.SendMessageToUser(userID, model.WSAck{
			Success:   true,
			MessageID: frame.MessageID,
			Message:   "message reçu, réponse en cours...",
		})
		go h.answer(userID, conversationID, frame.Content)

	case "HEARTBEAT":
		h.sessionService.UpdateHeartbeat(userID)
		h.logger.Debug("收到心跳", zap.String("userId", userID))

	default:
		h.logger.Warn("未知消息类型",
			zap.String("userId", userID),
			zap.String("type", frame.Type))
	}
}

// answer 生成回复并推送给用户
func (h *WebSocketHandler) answer(userID, conversationID, content string) {
	reply, err := h.conversations.SendMessage(context.Background(), userID, conversationID, content)
	if err != nil {
		h.logger.Error("消息处理失败",
			zap.String("conversationId", conversationID),
			zap.Error(err))
		h.sessionService.SendMessageToUser(userID, model.WSAck{
			Success: false,
			Message: "réponse indisponible, réessayez",
		})
		return
	}

	h.pushMessage(userID, reply)
}

// pushMessage 将助手消息包装成 AI_RESPONSE 帧推送
func (h *WebSocketHandler) pushMessage(userID string, msg model.ChatMessage) {
	h.sessionService.SendMessageToUser(userID, model.WSFrame{
		MessageID: msg.ID,
		Type:      "AI_RESPONSE",
		Content:   msg.Content,
		Timestamp: time.Now(),
	})
}
