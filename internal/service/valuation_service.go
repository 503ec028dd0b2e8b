package service

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/tgim/tgim-assistant-go/internal/model"
	"go.uber.org/zap"
)

// 估值回复的输出 token 预算
const valuationMaxTokens = 700

// 估值历史默认返回条数
const valuationHistoryLimit = 50

// EvaluationStore 估值持久化接口
type EvaluationStore interface {
	Create(ctx context.Context, e *model.Evaluation) error
	ListRecentByUser(ctx context.Context, userID string, limit int) ([]model.Evaluation, error)
}

// ValuationService 企业估值服务
// 表单 → 提示词 → 补全 → 解析 → 持久化；补全降级时返回固定的模拟结果
type ValuationService struct {
	completer   Completer
	prompt      *PromptService
	interpreter *InterpreterService
	store       EvaluationStore
	logger      *zap.Logger
}

// NewValuationService 创建估值服务
func NewValuationService(completer Completer, prompt *PromptService, interpreter *InterpreterService, store EvaluationStore, logger *zap.Logger) *ValuationService {
	return &ValuationService{
		completer:   completer,
		prompt:      prompt,
		interpreter: interpreter,
		store:       store,
		logger:      logger,
	}
}

// Valuate 执行一次企业估值
func (s *ValuationService) Valuate(ctx context.Context, userID string, req model.ValuationRequest) (model.ValuationResult, error) {
	if userID == "" {
		return model.ValuationResult{}, ErrNoIdentity
	}

	var result model.ValuationResult

	if !s.completer.Enabled() {
		// 无凭证：模拟结果（历史行为）
		result = model.ValuationResult{
			MinValuation: 1150000,
			MaxValuation: 1400000,
			RiskScore:    75,
			Report: fmt.Sprintf("Entreprise simulée :\nSecteur : %s\nCA déclaré : %.0f €\nEBITDA : %.0f €\nAnalyse équilibrée et risque modéré.",
				req.Sector, req.CA, req.EBITDA),
		}
	} else {
		userPrompt := s.prompt.BuildValuationPrompt(req)
		comp := s.completer.Complete(ctx, ValuationSystemPrompt, nil, userPrompt, valuationMaxTokens)

		if comp.Degraded {
			result = model.ValuationResult{
				MinValuation: 170000,
				MaxValuation: 320000,
				RiskScore:    43,
				Report:       fmt.Sprintf("Erreur IA : fallback mock.\n Secteur: %s, CA: %.0f", req.Sector, req.CA),
			}
		} else {
			result = s.interpreter.ParseValuation(comp.Text)
		}
	}

	// 持久化失败不阻断估值结果返回
	evaluation := &model.Evaluation{
		ID:           ulid.Make().String(),
		UserID:       userID,
		CompanyName:  req.CompanyName,
		MinValuation: result.MinValuation,
		MaxValuation: result.MaxValuation,
		RiskScore:    result.RiskScore,
		Report:       result.Report,
		CreatedAt:    time.Now(),
	}
	if err := s.store.Create(ctx, evaluation); err != nil {
		s.logger.Error("估值记录保存失败",
			zap.String("userId", userID),
			zap.String("company", req.CompanyName),
			zap.Error(err))
	}

	return result, nil
}

// History 读取用户的估值历史（新的在前）
func (s *ValuationService) History(ctx context.Context, userID string) ([]model.Evaluation, error) {
	if userID == "" {
		return nil, ErrNoIdentity
	}
	list, err := s.store.ListRecentByUser(ctx, userID, valuationHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("读取估值历史失败: %w", err)
	}
	return list, nil
}
