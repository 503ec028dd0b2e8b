package model

import "time"

// Target 收购标的
type Target struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Sector      string    `json:"sector"`
	Location    string    `json:"location"`
	MainFigures string    `json:"main_figures"`
	CreatedAt   time.Time `json:"created_at"`
}

// Deal 进行中的交易
type Deal struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	TargetID  string    `json:"target_id"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile 用户档案
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Status    string `json:"status"`
}

// Announcement 社区公告
type Announcement struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CalendarEvent 日程条目
type CalendarEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	StartDate time.Time `json:"start_date"`
}

// KnowledgeItem 知识库条目
type KnowledgeItem struct {
	Category string `json:"category"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Keywords string `json:"keywords"`
}

// AggregatedContext 一次请求内临时聚合的领域数据
// 每次调用重新拉取，不做跨请求缓存；调用方若自行缓存，5 分钟后视为过期
type AggregatedContext struct {
	Profile       *Profile        `json:"profile,omitempty"`
	Targets       []Target        `json:"targets"`
	Deals         []Deal          `json:"deals"`
	Evaluations   []Evaluation    `json:"evaluations"`
	Calendar      []CalendarEvent `json:"calendar"`
	Announcements []Announcement  `json:"announcements"`
	Members       []Profile       `json:"members"`
	GatheredAt    time.Time       `json:"gathered_at"`
}

// Stale 判断聚合上下文是否过期
func (c *AggregatedContext) Stale() bool {
	return time.Since(c.GatheredAt) > 5*time.Minute
}
