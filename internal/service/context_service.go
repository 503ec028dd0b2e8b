package service

import (
	"context"
	"sync"
	"time"

	"github.com/tgim/tgim-assistant-go/internal/model"
	"go.uber.org/zap"
)

// 各记录类型的拉取上限
const (
	targetLimit       = 5
	dealLimit         = 5
	evaluationLimit   = 5
	calendarLimit     = 10
	announcementLimit = 5
	memberLimit       = 50
)

// ErrNoIdentity 无法解析调用方身份
var ErrNoIdentity = errNoIdentity{}

type errNoIdentity struct{}

func (errNoIdentity) Error() string { return "调用方身份缺失" }

// 聚合所需的只读仓储接口
type (
	// TargetReader 标的读取
	TargetReader interface {
		ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.Target, error)
	}
	// DealReader 交易读取
	DealReader interface {
		ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.Deal, error)
	}
	// EvaluationReader 估值读取
	EvaluationReader interface {
		ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.Evaluation, error)
	}
	// ProfileReader 档案读取
	ProfileReader interface {
		GetByID(ctx context.Context, id string) (*model.Profile, error)
		ListActiveMembers(ctx context.Context, limit int) ([]model.Profile, error)
	}
	// CommunityReader 公告与日程读取
	CommunityReader interface {
		ListActiveAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error)
		ListUpcomingEvents(ctx context.Context, userID string, limit int) ([]model.CalendarEvent, error)
	}
)

// ContextService 上下文聚合服务
// 为一次 AI 调用拉取当前用户的领域数据快照：每种记录一次读取、全部并行，
// 单个读取失败只让对应切片为空，不会让整体失败
type ContextService struct {
	targets     TargetReader
	deals       DealReader
	evaluations EvaluationReader
	profiles    ProfileReader
	community   CommunityReader
	logger      *zap.Logger
}

// NewContextService 创建上下文聚合服务
func NewContextService(
	targets TargetReader,
	deals DealReader,
	evaluations EvaluationReader,
	profiles ProfileReader,
	community CommunityReader,
	logger *zap.Logger,
) *ContextService {
	return &ContextService{
		targets:     targets,
		deals:       deals,
		evaluations: evaluations,
		profiles:    profiles,
		community:   community,
		logger:      logger,
	}
}

// GatherChat 聚合通用助手需要的上下文（档案、交易、日程、公告、成员）
func (s *ContextService) GatherChat(ctx context.Context, userID string) (*model.AggregatedContext, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}

	agg := &model.AggregatedContext{GatheredAt: time.Now()}

	var wg sync.WaitGroup
	wg.Add(5)

	go func() {
		defer wg.Done()
		profile, err := s.profiles.GetByID(ctx, userID)
		if err != nil {
			s.logger.Warn("档案读取失败，跳过", zap.String("userId", userID), zap.Error(err))
			return
		}
		agg.Profile = profile
	}()

	go func() {
		defer wg.Done()
		deals, err := s.deals.ListRecentByUser(ctx, userID, dealLimit)
		if err != nil {
			s.logger.Warn("交易读取失败，跳过", zap.String("userId", userID), zap.Error(err))
			return
		}
		agg.Deals = deals
	}()

	go func() {
		defer wg.Done()
		events, err := s.community.ListUpcomingEvents(ctx, userID, calendarLimit)
		if err != nil {
			s.logger.Warn("日程读取失败，跳过", zap.String("userId", userID), zap.Error(err))
			return
		}
		agg.Calendar = events
	}()

	go func() {
		defer wg.Done()
		announcements, err := s.community.ListActiveAnnouncements(ctx, announcementLimit)
		if err != nil {
			s.logger.Warn("公告读取失败，跳过", zap.Error(err))
			return
		}
		agg.Announcements = announcements
	}()

	go func() {
		defer wg.Done()
		members, err := s.profiles.ListActiveMembers(ctx, memberLimit)
		if err != nil {
			s.logger.Warn("成员读取失败，跳过", zap.Error(err))
			return
		}
		agg.Members = members
	}()

	wg.Wait()

	s.logger.Debug("通用上下文聚合完成",
		zap.String("userId", userID),
		zap.Int("deals", len(agg.Deals)),
		zap.Int("announcements", len(agg.Announcements)))

	return agg, nil
}

// GatherNegotiation 聚合谈判与估值场景需要的上下文（标的、交易、估值记录）
func (s *ContextService) GatherNegotiation(ctx context.Context, userID string) (*model.AggregatedContext, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}

	agg := &model.AggregatedContext{GatheredAt: time.Now()}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		targets, err := s.targets.ListRecentByUser(ctx, userID, targetLimit)
		if err != nil {
			s.logger.Warn("标的读取失败，跳过", zap.String("userId", userID), zap.Error(err))
			return
		}
		agg.Targets = targets
	}()

	go func() {
		defer wg.Done()
		deals, err := s.deals.ListRecentByUser(ctx, userID, dealLimit)
		if err != nil {
			s.logger.Warn("交易读取失败，跳过", zap.String("userId", userID), zap.Error(err))
			return
		}
		agg.Deals = deals
	}()

	go func() {
		defer wg.Done()
		evaluations, err := s.evaluations.ListRecentByUser(ctx, userID, evaluationLimit)
		if err != nil {
			s.logger.Warn("估值读取失败，跳过", zap.String("userId", userID), zap.Error(err))
			return
		}
		agg.Evaluations = evaluations
	}()

	wg.Wait()

	s.logger.Debug("谈判上下文聚合完成",
		zap.String("userId", userID),
		zap.Int("targets", len(agg.Targets)),
		zap.Int("evaluations", len(agg.Evaluations)))

	return agg, nil
}
