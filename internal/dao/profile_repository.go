package dao

import (
	"context"
	"database/sql"

	"github.com/tgim/tgim-assistant-go/internal/model"
)

// ProfileRepository 用户档案仓储
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository 创建档案仓储
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID 按 id 读取档案
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	query := `SELECT id, first_name, last_name, status FROM profiles WHERE id = ?`

	var p model.Profile
	var firstName, lastName, status sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &firstName, &lastName, &status)
	if err != nil {
		return nil, err
	}
	if firstName.Valid {
		p.FirstName = firstName.String
	}
	if lastName.Valid {
		p.LastName = lastName.String
	}
	if status.Valid {
		p.Status = status.String
	}
	return &p, nil
}

// ListActiveMembers 读取活跃成员列表
func (r *ProfileRepository) ListActiveMembers(ctx context.Context, limit int) ([]model.Profile, error) {
	query := `SELECT id, first_name, last_name, status FROM profiles WHERE is_active = TRUE LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Profile
	for rows.Next() {
		var p model.Profile
		var firstName, lastName, status sql.NullString
		if err := rows.Scan(&p.ID, &firstName, &lastName, &status); err != nil {
			return nil, err
		}
		if firstName.Valid {
			p.FirstName = firstName.String
		}
		if lastName.Valid {
			p.LastName = lastName.String
		}
		if status.Valid {
			p.Status = status.String
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
