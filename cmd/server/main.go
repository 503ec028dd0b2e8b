package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tgim/tgim-assistant-go/internal/client"
	"github.com/tgim/tgim-assistant-go/internal/config"
	"github.com/tgim/tgim-assistant-go/internal/dao"
	"github.com/tgim/tgim-assistant-go/internal/handler"
	"github.com/tgim/tgim-assistant-go/internal/middleware"
	"github.com/tgim/tgim-assistant-go/internal/service"
	"github.com/tgim/tgim-assistant-go/internal/vectorstore"
	"github.com/tgim/tgim-assistant-go/pkg/logger"
	"github.com/tgim/tgim-assistant-go/pkg/mysql"
	"github.com/tgim/tgim-assistant-go/pkg/redis"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig("configs/server.yaml")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志
	zapLogger, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("assistant 服务启动中...")

	// 初始化存储
	db, err := mysql.NewDB(cfg.MySQL)
	if err != nil {
		zapLogger.Fatal("MySQL 连接失败", zap.Error(err))
	}
	defer db.Close()

	// Redis 仅用于聊天历史缓存，连不上也允许启动
	redisClient, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		zapLogger.Warn("Redis 连接失败，聊天历史缓存不可用", zap.Error(err))
		redisClient = nil
	}

	// 初始化模型客户端（熔断器包一层）
	openaiClient := client.NewOpenAIClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, zapLogger)
	breaker := client.NewBreakerCaller(openaiClient, zapLogger)
	completer := client.NewCompletionClient(breaker, cfg.OpenAI.Model, cfg.OpenAI.APIKey, zapLogger)
	embeddingClient := client.NewEmbeddingClient(cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel, cfg.OpenAI.BaseURL, zapLogger)

	// 初始化 DAO
	targetRepo := dao.NewTargetRepository(db)
	dealRepo := dao.NewDealRepository(db)
	evaluationRepo := dao.NewEvaluationRepository(db)
	profileRepo := dao.NewProfileRepository(db)
	communityRepo := dao.NewCommunityRepository(db)
	knowledgeRepo := dao.NewKnowledgeRepository(db)
	negotiationRepo := dao.NewNegotiationRepository(db)

	// 初始化服务
	contextService := service.NewContextService(targetRepo, dealRepo, evaluationRepo, profileRepo, communityRepo, zapLogger)
	knowledgeService := service.NewKnowledgeService(knowledgeRepo, embeddingClient, vectorstore.NewMemoryStore(zapLogger), zapLogger)
	if err := knowledgeService.Load(context.Background()); err != nil {
		zapLogger.Warn("知识库加载失败，使用内置条目", zap.Error(err))
	}
	promptService := service.NewPromptService()
	interpreterService := service.NewInterpreterService(zapLogger)

	chatService := service.NewChatService(contextService, knowledgeService, promptService, completer, cfg.OpenAI.Model, zapLogger)
	negotiatorService := service.NewNegotiatorService(completer, promptService, interpreterService, negotiationRepo, zapLogger)
	valuationService := service.NewValuationService(completer, promptService, interpreterService, evaluationRepo, zapLogger)

	historyService := service.NewHistoryService(redisClient, zapLogger)
	conversationService := service.NewConversationService(chatService, negotiatorService, negotiationRepo, historyService, 0, zapLogger)
	sessionService := service.NewSessionService(zapLogger)

	// 初始化处理器
	chatHandler := handler.NewChatHandler(chatService, zapLogger)
	negotiationHandler := handler.NewNegotiationHandler(conversationService, negotiatorService, targetRepo, zapLogger)
	valuationHandler := handler.NewValuationHandler(valuationService, zapLogger)
	wsHandler := handler.NewWebSocketHandler(sessionService, conversationService, zapLogger)
	apiHandler := handler.NewAPIHandler(sessionService, conversationService, breaker, completer, zapLogger)

	// 初始化路由
	r := gin.Default()
	r.Use(middleware.CORS())
	r.Use(middleware.Identity())

	// WebSocket 端点（原生 WebSocket）
	r.GET("/ws", wsHandler.HandleWebSocket)

	// HTTP API
	r.POST("/api/chat", chatHandler.Chat)
	r.POST("/api/valuations", valuationHandler.Valuate)
	r.GET("/api/valuations", valuationHandler.History)
	r.POST("/api/negotiations", negotiationHandler.Open)
	r.POST("/api/negotiations/:id/messages", negotiationHandler.Send)
	r.GET("/api/negotiations", negotiationHandler.History)
	r.GET("/api/health", apiHandler.Health)

	// 启动服务
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	zapLogger.Info("assistant 服务启动成功",
		zap.Int("port", cfg.Server.Port),
		zap.String("model", cfg.OpenAI.Model))

	if err := r.Run(addr); err != nil {
		zapLogger.Fatal("服务启动失败", zap.Error(err))
	}
}
