package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tgim/tgim-assistant-go/internal/model"
)

var (
	ErrUserOffline = fmt.Errorf("用户不在线")
)

// SessionService WebSocket 会话管理服务
type SessionService struct {
	userSessions  map[string]*model.UserSession // userId -> session
	sessionToUser map[string]string             // sessionId -> userId
	mu            sync.RWMutex                  // 读写锁保护
	logger        *zap.Logger
}

// NewSessionService 创建会话管理服务
func NewSessionService(logger *zap.Logger) *SessionService {
	s := &SessionService{
		userSessions:  make(map[string]*model.UserSession),
		sessionToUser: make(map[string]string),
		logger:        logger,
	}

	// 启动心跳检测
	go s.heartbeatChecker()

	return s
}

// RegisterUser 注册用户会话（同一用户重连时关闭旧连接）
func (s *SessionService) RegisterUser(userID string, conn *websocket.Conn, sessionID, conversationID, clientIP string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existingSession, ok := s.userSessions[userID]; ok {
		s.logger.Info("用户重新连接，关闭旧连接",
			zap.String("userId", userID),
			zap.String("oldSessionId", existingSession.SessionID))
		existingSession.Conn.Close()
		delete(s.sessionToUser, existingSession.SessionID)
	}

	session := &model.UserSession{
		UserID:         userID,
		ConversationID: conversationID,
		Conn:           conn,
		SessionID:      sessionID,
		ClientIP:       clientIP,
		LastHeartbeat:  time.Now(),
		MissedBeats:    0,
	}

	s.userSessions[userID] = session
	s.sessionToUser[sessionID] = userID

	s.logger.Info("用户会话注册成功",
		zap.String("userId", userID),
		zap.String("sessionId", sessionID),
		zap.String("conversationId", conversationID))
}

// SendMessageToUser 向指定用户发送消息
func (s *SessionService) SendMessageToUser(userID string, message interface{}) error {
	s.mu.RLock()
	session, ok := s.userSessions[userID]
	s.mu.RUnlock()

	if !ok {
		s.logger.Warn("用户不在线，消息发送失败", zap.String("userId", userID))
		return ErrUserOffline
	}

	// WebSocket 写入需要加锁（通过 session 自己的方法）
	err := session.WriteMessage(message)
	if err != nil {
		s.logger.Error("消息发送失败",
			zap.String("userId", userID),
			zap.Error(err))
		// 异步清理无效连接
		go s.RemoveUserByID(userID)
		return err
	}

	return nil
}

// ConversationID 查询用户会话绑定的对话 ID
func (s *SessionService) ConversationID(userID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.userSessions[userID]
	if !ok {
		return "", false
	}
	return session.ConversationID, true
}

// UpdateHeartbeat 更新心跳时间
func (s *SessionService) UpdateHeartbeat(userID string) bool {
	s.mu.RLock()
	session, ok := s.userSessions[userID]
	s.mu.RUnlock()

	if !ok {
		return false
	}

	session.UpdateHeartbeat()
	s.logger.Debug("心跳已更新", zap.String("userId", userID))
	return true
}

// RemoveUserBySessionID 根据 sessionId 移除会话
func (s *SessionService) RemoveUserBySessionID(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userID, ok := s.sessionToUser[sessionID]; ok {
		delete(s.userSessions, userID)
		delete(s.sessionToUser, sessionID)
		s.logger.Info("用户会话已移除",
			zap.String("userId", userID),
			zap.String("sessionId", sessionID))
	}
}

// RemoveUserByID 根据 userId 移除会话
func (s *SessionService) RemoveUserByID(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.userSessions[userID]; ok {
		delete(s.sessionToUser, session.SessionID)
		delete(s.userSessions, userID)
		s.logger.Info("用户会话已移除", zap.String("userId", userID))
	}
}

// GetOnlineCount 获取在线用户数
func (s *SessionService) GetOnlineCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.userSessions)
}

// heartbeatChecker 心跳检测器
func (s *SessionService) heartbeatChecker() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()

		now := time.Now()
		for userID, session := range s.userSessions {
			timeSinceHeartbeat := now.Sub(session.LastHeartbeat)

			if timeSinceHeartbeat > 60*time.Second {
				session.IncrementMissedBeats()

				if session.ShouldBeCleaned() {
					s.logger.Info("清理无效会话",
						zap.String("userId", userID),
						zap.Int("missedBeats", session.MissedBeats))

					session.Conn.Close()
					delete(s.userSessions, userID)
					delete(s.sessionToUser, session.SessionID)
				} else {
					s.logger.Warn("用户心跳丢失",
						zap.String("userId", userID),
						zap.Int("missedBeats", session.MissedBeats))
				}
			}
		}

		s.mu.Unlock()
	}
}
