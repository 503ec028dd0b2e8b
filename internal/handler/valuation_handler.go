package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tgim/tgim-assistant-go/internal/middleware"
	"github.com/tgim/tgim-assistant-go/internal/model"
	"github.com/tgim/tgim-assistant-go/internal/service"
)

// ValuationHandler 估值处理器
type ValuationHandler struct {
	valuationService *service.ValuationService
	logger           *zap.Logger
}

// NewValuationHandler 创建估值处理器
func NewValuationHandler(valuationService *service.ValuationService, logger *zap.Logger) *ValuationHandler {
	return &ValuationHandler{
		valuationService: valuationService,
		logger:           logger,
	}
}

// Valuate 基于表单生成一次完整估值
func (h *ValuationHandler) Valuate(c *gin.Context) {
	var req model.ValuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid request"})
		return
	}

	userID := middleware.UserID(c)

	result, err := h.valuationService.Valuate(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, service.ErrNoIdentity) {
			c.JSON(401, gin.H{"error": "authentification requise"})
			return
		}
		h.logger.Error("估值处理失败",
			zap.String("userId", userID),
			zap.Error(err))
		c.JSON(500, gin.H{"error": "Server error", "detail": err.Error()})
		return
	}

	c.JSON(200, result)
}

// History 查询当前用户最近的估值记录
func (h *ValuationHandler) History(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(401, gin.H{"error": "authentification requise"})
		return
	}

	evaluations, err := h.valuationService.History(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("估值历史查询失败",
			zap.String("userId", userID),
			zap.Error(err))
		c.JSON(500, gin.H{"error": "Server error", "detail": err.Error()})
		return
	}

	c.JSON(200, gin.H{"evaluations": evaluations})
}
