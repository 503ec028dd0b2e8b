package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tgim/tgim-assistant-go/internal/middleware"
	"github.com/tgim/tgim-assistant-go/internal/model"
	"github.com/tgim/tgim-assistant-go/internal/service"
)

// TargetDirectory 标的查询接口（补全打开请求缺省的标的信息）
type TargetDirectory interface {
	GetByID(ctx context.Context, id string) (*model.Target, error)
}

// NegotiationHandler 谈判会话处理器
type NegotiationHandler struct {
	conversations *service.ConversationService
	negotiator    *service.NegotiatorService
	targets       TargetDirectory
	logger        *zap.Logger
}

// NewNegotiationHandler 创建谈判会话处理器
func NewNegotiationHandler(conversations *service.ConversationService, negotiator *service.NegotiatorService, targets TargetDirectory, logger *zap.Logger) *NegotiationHandler {
	return &NegotiationHandler{
		conversations: conversations,
		negotiator:    negotiator,
		targets:       targets,
		logger:        logger,
	}
}

type openNegotiationRequest struct {
	Scenario      string                   `json:"scenario"`
	Context       model.NegotiationContext `json:"context"`
	NegotiationID string                   `json:"negotiation_id,omitempty"` // 续接已有谈判时传入
}

// Open 打开一个谈判会话（传 negotiation_id 时从持久化记录续接）
func (h *NegotiationHandler) Open(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(401, gin.H{"error": "authentification requise"})
		return
	}

	var req openNegotiationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid request"})
		return
	}

	var conv *service.Conversation
	if req.NegotiationID != "" {
		resumed, err := h.conversations.Resume(c.Request.Context(), userID, req.NegotiationID)
		if err != nil {
			h.logger.Warn("谈判会话续接失败",
				zap.String("negotiationId", req.NegotiationID),
				zap.Error(err))
			c.JSON(404, gin.H{"error": "négociation introuvable"})
			return
		}
		conv = resumed
	} else {
		h.fillTarget(c.Request.Context(), &req.Context)
		conv = h.conversations.OpenNegotiation(userID, req.Scenario, req.Context)
	}

	c.JSON(200, gin.H{
		"conversation_id": conv.ID,
		"negotiation_id":  conv.NegotiationID,
		"context":         conv.Context,
		"messages":        conv.Snapshot(),
	})
}

// fillTarget 用标的库补全请求里只带 target_id 的上下文
func (h *NegotiationHandler) fillTarget(ctx context.Context, nctx *model.NegotiationContext) {
	if h.targets == nil || nctx.TargetID == "" {
		return
	}
	if nctx.TargetName != "" && nctx.Sector != "" {
		return
	}

	target, err := h.targets.GetByID(ctx, nctx.TargetID)
	if err != nil {
		h.logger.Warn("标的查询失败，保留请求原值",
			zap.String("targetId", nctx.TargetID),
			zap.Error(err))
		return
	}
	if nctx.TargetName == "" {
		nctx.TargetName = target.Name
	}
	if nctx.Sector == "" {
		nctx.Sector = target.Sector
	}
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

// Send 在谈判会话里发送一条消息
// 上一轮尚未结束时返回 409
func (h *NegotiationHandler) Send(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(401, gin.H{"error": "authentification requise"})
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(400, gin.H{"error": "Message manquant"})
		return
	}

	conversationID := c.Param("id")
	reply, err := h.conversations.SendMessage(c.Request.Context(), userID, conversationID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			c.JSON(404, gin.H{"error": "conversation introuvable"})
		case errors.Is(err, service.ErrConversationBusy):
			c.JSON(409, gin.H{"error": "réponse en cours de génération"})
		default:
			h.logger.Error("谈判消息处理失败",
				zap.String("conversationId", conversationID),
				zap.Error(err))
			c.JSON(500, gin.H{"error": "Server error", "detail": err.Error()})
		}
		return
	}

	c.JSON(200, gin.H{"message": reply})
}

// History 查询当前用户的谈判记录
func (h *NegotiationHandler) History(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(401, gin.H{"error": "authentification requise"})
		return
	}

	negotiations, err := h.negotiator.History(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("谈判历史查询失败",
			zap.String("userId", userID),
			zap.Error(err))
		c.JSON(500, gin.H{"error": "Server error", "detail": err.Error()})
		return
	}

	c.JSON(200, gin.H{"negotiations": negotiations})
}
