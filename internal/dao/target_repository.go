package dao

import (
	"context"
	"database/sql"

	"github.com/tgim/tgim-assistant-go/internal/model"
)

// TargetRepository 收购标的仓储
type TargetRepository struct {
	db *sql.DB
}

// NewTargetRepository 创建标的仓储
func NewTargetRepository(db *sql.DB) *TargetRepository {
	return &TargetRepository{db: db}
}

// ListRecentByUser 按用户读取最近的标的（新的在前）
func (r *TargetRepository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.Target, error) {
	query := `SELECT id, name, sector, location, main_figures, created_at FROM targets WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Target
	for rows.Next() {
		var t model.Target
		var sector, location, figures sql.NullString
		if err := rows.Scan(&t.ID, &t.Name, &sector, &location, &figures, &t.CreatedAt); err != nil {
			return nil, err
		}
		if sector.Valid {
			t.Sector = sector.String
		}
		if location.Valid {
			t.Location = location.String
		}
		if figures.Valid {
			t.MainFigures = figures.String
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// GetByID 按 id 读取标的
func (r *TargetRepository) GetByID(ctx context.Context, id string) (*model.Target, error) {
	query := `SELECT id, name, sector, location, main_figures, created_at FROM targets WHERE id = ?`

	var t model.Target
	var sector, location, figures sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &sector, &location, &figures, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	if sector.Valid {
		t.Sector = sector.String
	}
	if location.Valid {
		t.Location = location.String
	}
	if figures.Valid {
		t.MainFigures = figures.String
	}
	return &t, nil
}
