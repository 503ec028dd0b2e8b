package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tgim/tgim-assistant-go/internal/client"
	"github.com/tgim/tgim-assistant-go/internal/model"
)

type stubCompleter struct {
	text     string
	degraded bool
	enabled  bool
}

func (s *stubCompleter) Complete(ctx context.Context, systemPrompt string, history []client.Message, userMessage string, maxTokens int) client.Completion {
	if s.degraded {
		return client.Completion{Text: client.MockResponse, Degraded: true}
	}
	return client.Completion{Text: s.text, Model: "gpt-4o-mini"}
}

func (s *stubCompleter) Enabled() bool { return s.enabled }

type fakeEvaluationStore struct {
	mu        sync.Mutex
	saved     []*model.Evaluation
	createErr error
}

func (f *fakeEvaluationStore) Create(ctx context.Context, e *model.Evaluation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.saved = append(f.saved, e)
	return nil
}

func (f *fakeEvaluationStore) ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.Evaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Evaluation, 0, len(f.saved))
	for _, e := range f.saved {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func newTestValuationService(completer Completer, store EvaluationStore) *ValuationService {
	return NewValuationService(completer, NewPromptService(), NewInterpreterService(zap.NewNop()), store, zap.NewNop())
}

func TestValuate(t *testing.T) {
	ctx := context.Background()
	req := model.ValuationRequest{CompanyName: "Cible A", Sector: "Tech", CA: 1000000, EBITDA: 150000}

	t.Run("解析模型回复", func(t *testing.T) {
		store := &fakeEvaluationStore{}
		s := newTestValuationService(&stubCompleter{
			enabled: true,
			text:    "Fourchette: 900000 € – 1200000 €\nRisque: 40/100\nRapport: multiples sectoriels appliqués.",
		}, store)

		result, err := s.Valuate(ctx, "u1", req)
		require.NoError(t, err)

		assert.Equal(t, 900000.0, result.MinValuation)
		assert.Equal(t, 1200000.0, result.MaxValuation)
		assert.Equal(t, 40, result.RiskScore)
		assert.Contains(t, result.Report, "multiples sectoriels")

		require.Len(t, store.saved, 1)
		assert.Equal(t, "Cible A", store.saved[0].CompanyName)
		assert.NotEmpty(t, store.saved[0].ID)
	})

	t.Run("回复无法解析时归零", func(t *testing.T) {
		s := newTestValuationService(&stubCompleter{
			enabled: true,
			text:    "Je ne dispose pas d'assez d'informations pour chiffrer.",
		}, &fakeEvaluationStore{})

		result, err := s.Valuate(ctx, "u1", req)
		require.NoError(t, err)

		assert.Zero(t, result.MinValuation)
		assert.Zero(t, result.MaxValuation)
		assert.Equal(t, 50, result.RiskScore)
		assert.Equal(t, "Je ne dispose pas d'assez d'informations pour chiffrer.", result.Report)
	})

	t.Run("无凭证时返回模拟结果", func(t *testing.T) {
		s := newTestValuationService(&stubCompleter{enabled: false}, &fakeEvaluationStore{})

		result, err := s.Valuate(ctx, "u1", req)
		require.NoError(t, err)

		assert.Equal(t, 1150000.0, result.MinValuation)
		assert.Equal(t, 1400000.0, result.MaxValuation)
		assert.Equal(t, 75, result.RiskScore)
		assert.Contains(t, result.Report, "Entreprise simulée")
		assert.Contains(t, result.Report, "Tech")
	})

	t.Run("调用失败时返回降级结果", func(t *testing.T) {
		s := newTestValuationService(&stubCompleter{enabled: true, degraded: true}, &fakeEvaluationStore{})

		result, err := s.Valuate(ctx, "u1", req)
		require.NoError(t, err)

		assert.Equal(t, 170000.0, result.MinValuation)
		assert.Equal(t, 320000.0, result.MaxValuation)
		assert.Equal(t, 43, result.RiskScore)
		assert.Contains(t, result.Report, "Erreur IA")
	})

	t.Run("持久化失败不阻断结果", func(t *testing.T) {
		store := &fakeEvaluationStore{createErr: errors.New("duplicate key")}
		s := newTestValuationService(&stubCompleter{enabled: false}, store)

		result, err := s.Valuate(ctx, "u1", req)
		require.NoError(t, err)
		assert.Equal(t, 1150000.0, result.MinValuation)
	})

	t.Run("身份缺失直接失败", func(t *testing.T) {
		s := newTestValuationService(&stubCompleter{enabled: false}, &fakeEvaluationStore{})

		_, err := s.Valuate(ctx, "", req)
		assert.ErrorIs(t, err, ErrNoIdentity)
	})
}

func TestValuationHistory(t *testing.T) {
	store := &fakeEvaluationStore{}
	s := newTestValuationService(&stubCompleter{enabled: false}, store)

	_, err := s.Valuate(context.Background(), "u1", model.ValuationRequest{CompanyName: "Cible A"})
	require.NoError(t, err)

	list, err := s.History(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = s.History(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoIdentity)
}
