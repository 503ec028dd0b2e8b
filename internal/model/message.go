package model

import "time"

// 消息角色
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage 会话消息（创建后不可变）
type ChatMessage struct {
	ID        string           `json:"id"`
	Role      string           `json:"role"` // user, assistant
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// MessageMetadata 助手回复附带的结构化信息（仅谈判场景填充）
type MessageMetadata struct {
	Strategy         string   `json:"strategy,omitempty"`
	Confidence       float64  `json:"confidence,omitempty"`
	SuggestedActions []string `json:"suggested_actions,omitempty"`
	RiskAssessment   string   `json:"risk_assessment,omitempty"`
	Mode             string   `json:"mode,omitempty"` // openai, mock
}

// WSFrame WebSocket 帧
type WSFrame struct {
	MessageID string    `json:"messageId"`
	Type      string    `json:"type"` // CHAT, HEARTBEAT, AI_RESPONSE
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// WSAck WebSocket 确认帧
type WSAck struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Message   string `json:"message"`
}

// ChatRequest /api/chat 请求体
type ChatRequest struct {
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Knowledge string                 `json:"knowledge,omitempty"` // 用户提供的文本资料，优先于数据库上下文
	Stream    bool                   `json:"stream,omitempty"`
}

// ChatReply /api/chat 响应体
type ChatReply struct {
	Response string                 `json:"response"`
	Metadata map[string]interface{} `json:"metadata"`
}
