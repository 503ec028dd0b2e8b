package dao

import (
	"context"
	"database/sql"

	"github.com/tgim/tgim-assistant-go/internal/model"
)

// EvaluationRepository 估值记录仓储（只增不改）
type EvaluationRepository struct {
	db *sql.DB
}

// NewEvaluationRepository 创建估值仓储
func NewEvaluationRepository(db *sql.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// Create 写入估值记录
func (r *EvaluationRepository) Create(ctx context.Context, e *model.Evaluation) error {
	query := `INSERT INTO evaluations (id, user_id, company_name, min_valuation, max_valuation, risk_score, report, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.CompanyName, e.MinValuation, e.MaxValuation, e.RiskScore, e.Report, e.CreatedAt)
	return err
}

// ListRecentByUser 按用户读取最近的估值记录（新的在前）
func (r *EvaluationRepository) ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.Evaluation, error) {
	query := `SELECT id, user_id, company_name, min_valuation, max_valuation, risk_score, report, created_at FROM evaluations WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Evaluation
	for rows.Next() {
		var e model.Evaluation
		var report sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.CompanyName, &e.MinValuation, &e.MaxValuation, &e.RiskScore, &report, &e.CreatedAt); err != nil {
			return nil, err
		}
		if report.Valid {
			e.Report = report.String
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
