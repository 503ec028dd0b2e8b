package dao

import (
	"context"
	"database/sql"
	"time"

	"github.com/tgim/tgim-assistant-go/internal/model"
)

// CommunityRepository 社区公告与日程仓储
type CommunityRepository struct {
	db *sql.DB
}

// NewCommunityRepository 创建社区仓储
func NewCommunityRepository(db *sql.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

// ListActiveAnnouncements 读取有效公告（新的在前）
func (r *CommunityRepository) ListActiveAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error) {
	query := `SELECT id, title, content, created_at FROM announcements WHERE is_active = TRUE ORDER BY created_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Announcement
	for rows.Next() {
		var a model.Announcement
		var content sql.NullString
		if err := rows.Scan(&a.ID, &a.Title, &content, &a.CreatedAt); err != nil {
			return nil, err
		}
		if content.Valid {
			a.Content = content.String
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// ListUpcomingEvents 按用户读取未来日程（近的在前）
func (r *CommunityRepository) ListUpcomingEvents(ctx context.Context, userID string, limit int) ([]model.CalendarEvent, error) {
	query := `SELECT id, title, start_date FROM calendar_events WHERE user_id = ? AND start_date >= ? ORDER BY start_date ASC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, time.Now(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.CalendarEvent
	for rows.Next() {
		var e model.CalendarEvent
		if err := rows.Scan(&e.ID, &e.Title, &e.StartDate); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
