package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tgim/tgim-assistant-go/internal/model"
)

type fakeTargetReader struct{ err error }

func (f *fakeTargetReader) ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.Target, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.Target{{ID: "t1", Name: "Cible A", Sector: "Tech"}}, nil
}

type fakeDealReader struct{ err error }

func (f *fakeDealReader) ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.Deal, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.Deal{{ID: "d1", Name: "Projet Alpha", Status: "loi"}}, nil
}

type fakeEvaluationReader struct{ err error }

func (f *fakeEvaluationReader) ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.Evaluation, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.Evaluation{{ID: "e1", CompanyName: "Cible A", MinValuation: 100000, MaxValuation: 200000}}, nil
}

type fakeProfileReader struct{ err error }

func (f *fakeProfileReader) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.Profile{ID: id, FirstName: "Marie", LastName: "Dupont"}, nil
}

func (f *fakeProfileReader) ListActiveMembers(ctx context.Context, limit int) ([]model.Profile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.Profile{{ID: "m1", FirstName: "Paul"}}, nil
}

type fakeCommunityReader struct{ err error }

func (f *fakeCommunityReader) ListActiveAnnouncements(ctx context.Context, limit int) ([]model.Announcement, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.Announcement{{ID: "a1", Title: "Masterclass reprise"}}, nil
}

func (f *fakeCommunityReader) ListUpcomingEvents(ctx context.Context, userID string, limit int) ([]model.CalendarEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.CalendarEvent{{ID: "c1", Title: "RDV banque"}}, nil
}

func newTestContextService(targetErr, dealErr, evalErr, profileErr, communityErr error) *ContextService {
	return NewContextService(
		&fakeTargetReader{err: targetErr},
		&fakeDealReader{err: dealErr},
		&fakeEvaluationReader{err: evalErr},
		&fakeProfileReader{err: profileErr},
		&fakeCommunityReader{err: communityErr},
		zap.NewNop(),
	)
}

func TestGatherChat(t *testing.T) {
	ctx := context.Background()

	t.Run("全部读取成功", func(t *testing.T) {
		s := newTestContextService(nil, nil, nil, nil, nil)

		agg, err := s.GatherChat(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, agg.Profile)
		assert.Equal(t, "Marie", agg.Profile.FirstName)
		assert.Len(t, agg.Deals, 1)
		assert.Len(t, agg.Calendar, 1)
		assert.Len(t, agg.Announcements, 1)
		assert.Len(t, agg.Members, 1)
		assert.False(t, agg.Stale())
	})

	t.Run("单个读取失败不影响整体", func(t *testing.T) {
		s := newTestContextService(nil, errors.New("connection reset"), nil, nil, nil)

		agg, err := s.GatherChat(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, agg.Deals)
		require.NotNil(t, agg.Profile)
		assert.Len(t, agg.Announcements, 1)
		assert.Len(t, agg.Members, 1)
	})

	t.Run("身份缺失直接失败", func(t *testing.T) {
		s := newTestContextService(nil, nil, nil, nil, nil)

		_, err := s.GatherChat(ctx, "")
		assert.ErrorIs(t, err, ErrNoIdentity)
	})
}

func TestGatherNegotiation(t *testing.T) {
	ctx := context.Background()

	t.Run("聚合标的交易与估值", func(t *testing.T) {
		s := newTestContextService(nil, nil, nil, nil, nil)

		agg, err := s.GatherNegotiation(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, agg.Targets, 1)
		assert.Len(t, agg.Deals, 1)
		assert.Len(t, agg.Evaluations, 1)
	})

	t.Run("估值读取失败只清空估值", func(t *testing.T) {
		s := newTestContextService(nil, nil, errors.New("timeout"), nil, nil)

		agg, err := s.GatherNegotiation(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, agg.Evaluations)
		assert.Len(t, agg.Targets, 1)
		assert.Len(t, agg.Deals, 1)
	})

	t.Run("身份缺失直接失败", func(t *testing.T) {
		s := newTestContextService(nil, nil, nil, nil, nil)

		_, err := s.GatherNegotiation(ctx, "")
		assert.ErrorIs(t, err, ErrNoIdentity)
	})
}
