package dao

import (
	"context"
	"database/sql"

	"github.com/tgim/tgim-assistant-go/internal/model"
)

// DealRepository 交易仓储
type DealRepository struct {
	db *sql.DB
}

// NewDealRepository 创建交易仓储
func NewDealRepository(db *sql.DB) *DealRepository {
	return &DealRepository{db: db}
}

// ListRecentByUser 按用户读取最近的交易（新的在前）
func (r *DealRepository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.Deal, error) {
	query := `SELECT id, name, status, target_id, detail, created_at FROM deals WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Deal
	for rows.Next() {
		var d model.Deal
		var name, status, targetID, detail sql.NullString
		if err := rows.Scan(&d.ID, &name, &status, &targetID, &detail, &d.CreatedAt); err != nil {
			return nil, err
		}
		if name.Valid {
			d.Name = name.String
		}
		if status.Valid {
			d.Status = status.String
		}
		if targetID.Valid {
			d.TargetID = targetID.String
		}
		if detail.Valid {
			d.Detail = detail.String
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
