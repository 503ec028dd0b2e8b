package dao

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tgim/tgim-assistant-go/internal/model"
)

// NegotiationRepository 谈判记录仓储
// context/messages 以 JSON 列整体存储，更新时整体覆盖（最后写入者生效）
type NegotiationRepository struct {
	db *sql.DB
}

// NewNegotiationRepository 创建谈判仓储
func NewNegotiationRepository(db *sql.DB) *NegotiationRepository {
	return &NegotiationRepository{db: db}
}

// Create 写入新谈判记录
func (r *NegotiationRepository) Create(ctx context.Context, n *model.Negotiation) error {
	contextJSON, err := json.Marshal(n.Context)
	if err != nil {
		return fmt.Errorf("序列化谈判上下文失败: %w", err)
	}
	messagesJSON, err := json.Marshal(n.Messages)
	if err != nil {
		return fmt.Errorf("序列化消息列表失败: %w", err)
	}

	query := `INSERT INTO negotiations (id, user_id, scenario, context, messages, summary, score, revision, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		n.ID, n.UserID, n.Scenario, contextJSON, messagesJSON, n.Summary, n.Score, n.Revision, n.CreatedAt)
	return err
}

// Update 覆盖更新 messages 与 context，revision 加 1
// 没有并发令牌：两个会话同时更新同一条记录时后写的覆盖先写的
func (r *NegotiationRepository) Update(ctx context.Context, id string, messages []model.ChatMessage, nctx model.NegotiationContext) error {
	contextJSON, err := json.Marshal(nctx)
	if err != nil {
		return fmt.Errorf("序列化谈判上下文失败: %w", err)
	}
	messagesJSON, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("序列化消息列表失败: %w", err)
	}

	query := `UPDATE negotiations SET messages = ?, context = ?, revision = revision + 1 WHERE id = ?`
	_, err = r.db.ExecContext(ctx, query, messagesJSON, contextJSON, id)
	return err
}

// GetByID 按 id 读取谈判记录
func (r *NegotiationRepository) GetByID(ctx context.Context, id string) (*model.Negotiation, error) {
	query := `SELECT id, user_id, scenario, context, messages, summary, score, revision, created_at FROM negotiations WHERE id = ?`

	var n model.Negotiation
	var contextJSON, messagesJSON []byte
	var summary sql.NullString
	var score sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.UserID, &n.Scenario, &contextJSON, &messagesJSON, &summary, &score, &n.Revision, &n.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(contextJSON, &n.Context); err != nil {
		return nil, fmt.Errorf("解析谈判上下文失败: %w", err)
	}
	if err := json.Unmarshal(messagesJSON, &n.Messages); err != nil {
		return nil, fmt.Errorf("解析消息列表失败: %w", err)
	}
	if summary.Valid {
		n.Summary = summary.String
	}
	if score.Valid {
		v := int(score.Int64)
		n.Score = &v
	}
	return &n, nil
}

// ListByUser 按用户读取谈判历史（新的在前）
func (r *NegotiationRepository) ListByUser(ctx context.Context, userID string) ([]model.Negotiation, error) {
	query := `SELECT id, user_id, scenario, context, messages, summary, score, revision, created_at FROM negotiations WHERE user_id = ? ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Negotiation
	for rows.Next() {
		var n model.Negotiation
		var contextJSON, messagesJSON []byte
		var summary sql.NullString
		var score sql.NullInt64

		if err := rows.Scan(&n.ID, &n.UserID, &n.Scenario, &contextJSON, &messagesJSON, &summary, &score, &n.Revision, &n.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(contextJSON, &n.Context); err != nil {
			return nil, fmt.Errorf("解析谈判上下文失败: %w", err)
		}
		if err := json.Unmarshal(messagesJSON, &n.Messages); err != nil {
			return nil, fmt.Errorf("解析消息列表失败: %w", err)
		}
		if summary.Valid {
			n.Summary = summary.String
		}
		if score.Valid {
			v := int(score.Int64)
			n.Score = &v
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
