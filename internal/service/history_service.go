package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tgim/tgim-assistant-go/internal/model"
)

// 历史缓存参数
const (
	historyWindow = 20
	historyTTL    = 24 * time.Hour
)

// HistoryService 助手聊天历史缓存（Redis）
// 只做尽力而为的记录：Redis 不可用时静默跳过，不影响会话
type HistoryService struct {
	client *redis.Client
	logger *zap.Logger
}

// NewHistoryService 创建历史缓存服务（client 可为 nil，此时全部操作为空操作）
func NewHistoryService(client *redis.Client, logger *zap.Logger) *HistoryService {
	return &HistoryService{client: client, logger: logger}
}

// Append 追加一条历史记录
func (s *HistoryService) Append(ctx context.Context, userID, role, content string) {
	if s.client == nil {
		return
	}

	key := historyKey(userID)
	if err := s.client.RPush(ctx, key, role+": "+content).Err(); err != nil {
		s.logger.Warn("历史写入失败", zap.String("userId", userID), zap.Error(err))
		return
	}
	s.client.LTrim(ctx, key, -historyWindow, -1)
	s.client.Expire(ctx, key, historyTTL)
}

// RecentMessages 读取最近 n 条历史并还原为会话消息
// 无法解析角色前缀的条目按用户消息处理
func (s *HistoryService) RecentMessages(ctx context.Context, userID string, n int) []model.ChatMessage {
	if s.client == nil {
		return nil
	}

	entries, err := s.client.LRange(ctx, historyKey(userID), int64(-n), -1).Result()
	if err != nil {
		s.logger.Warn("历史读取失败", zap.String("userId", userID), zap.Error(err))
		return nil
	}

	messages := make([]model.ChatMessage, 0, len(entries))
	for _, entry := range entries {
		role, content := parseHistoryEntry(entry)
		messages = append(messages, model.ChatMessage{
			ID:        uuid.New().String(),
			Role:      role,
			Content:   content,
			Timestamp: time.Now(),
		})
	}
	return messages
}

// parseHistoryEntry 拆分 "role: content" 条目，无法识别前缀时按用户消息处理
func parseHistoryEntry(entry string) (role, content string) {
	if rest, ok := strings.CutPrefix(entry, model.RoleAssistant+": "); ok {
		return model.RoleAssistant, rest
	}
	if rest, ok := strings.CutPrefix(entry, model.RoleUser+": "); ok {
		return model.RoleUser, rest
	}
	return model.RoleUser, entry
}

func historyKey(userID string) string {
	return fmt.Sprintf("chat_history:%s", userID)
}
