package dao

import (
	"context"
	"database/sql"

	"github.com/tgim/tgim-assistant-go/internal/model"
)

// KnowledgeRepository 知识库表仓储
type KnowledgeRepository struct {
	db *sql.DB
}

// NewKnowledgeRepository 创建知识库仓储
func NewKnowledgeRepository(db *sql.DB) *KnowledgeRepository {
	return &KnowledgeRepository{db: db}
}

// ListAll 读取全部知识条目（按分类升序）
func (r *KnowledgeRepository) ListAll(ctx context.Context) ([]model.KnowledgeItem, error) {
	query := `SELECT category, title, content, keywords FROM tgim_knowledge ORDER BY category ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.KnowledgeItem
	for rows.Next() {
		var k model.KnowledgeItem
		var keywords sql.NullString
		if err := rows.Scan(&k.Category, &k.Title, &k.Content, &keywords); err != nil {
			return nil, err
		}
		if keywords.Valid {
			k.Keywords = keywords.String
		}
		result = append(result, k)
	}
	return result, rows.Err()
}
