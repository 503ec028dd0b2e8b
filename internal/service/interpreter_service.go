package service

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tgim/tgim-assistant-go/internal/model"
	"go.uber.org/zap"
)

// 风险等级标签
const (
	RiskHigh     = "Risque élevé - négociation complexe"
	RiskLow      = "Risque faible - négociation favorable"
	RiskModerate = "Risque modéré - négociation standard"
)

// 解析失败时的默认值
const defaultRiskScore = 50

var (
	// "Fourchette: 900000 € – 1200000 €" 样式的标注区间
	valuationRangeRe = regexp.MustCompile(`(?i)fourchette[^:]*:.*?(\d{2,}[\s\x{202f},.]*€?).*?(\d{2,}[\s\x{202f},.]*€?)`)
	// "Risque: 40/100" 样式的风险分
	valuationRiskRe = regexp.MustCompile(`(?i)risque[^:]*:?\s*(\d{1,3}) ?/? ?100`)
	// 宽松兜底：文本中任意两个大数
	looseRangeRe = regexp.MustCompile(`([0-9]{5,})[^0-9]+([0-9]{5,})`)

	strategyRe = regexp.MustCompile(`(?i)stratégie[:\s]*(.+)`)
	actionsRe  = regexp.MustCompile(`(?is)actions?[:\s]*(.+?)(?:\n\n|$)`)
	actionSep  = regexp.MustCompile(`[•\-\n]`)

	nonDigitRe = regexp.MustCompile(`[^\d]`)
)

// InterpreterService 回复解析服务
// 从模型的自由文本中抽取结构化字段；所有字段都有确定性默认值，
// 不做语义校验，原文总是原样保留
type InterpreterService struct {
	logger *zap.Logger
}

// NewInterpreterService 创建回复解析服务
func NewInterpreterService(logger *zap.Logger) *InterpreterService {
	return &InterpreterService{logger: logger}
}

// ParseValuation 解析估值回复
// 区间解析失败时两端都归零；max < min 同样视为解析失败；
// 风险分缺失默认 50，并强制收敛到 [0,100]
func (s *InterpreterService) ParseValuation(text string) model.ValuationResult {
	var minVal, maxVal float64
	var risk int

	if m := valuationRangeRe.FindStringSubmatch(text); m != nil {
		minVal = parseAmount(m[1])
		maxVal = parseAmount(m[2])
	}

	if m := valuationRiskRe.FindStringSubmatch(text); m != nil {
		risk, _ = strconv.Atoi(m[1])
	}

	// 主模式失败时尝试宽松模式
	if minVal == 0 || maxVal == 0 {
		if m := looseRangeRe.FindStringSubmatch(text); m != nil {
			minVal = parseAmount(m[1])
			maxVal = parseAmount(m[2])
		}
	}

	if minVal == 0 || maxVal == 0 {
		minVal, maxVal = 0, 0
	}
	// 区间倒挂说明抽取到了错误的数字，按解析失败处理
	if maxVal < minVal {
		s.logger.Warn("估值区间倒挂，按解析失败处理")
		minVal, maxVal = 0, 0
	}

	if risk == 0 {
		risk = defaultRiskScore
	}
	if risk < 0 {
		risk = 0
	}
	if risk > 100 {
		risk = 100
	}

	return model.ValuationResult{
		MinValuation: minVal,
		MaxValuation: maxVal,
		RiskScore:    risk,
		Report:       strings.TrimSpace(text),
	}
}

// ParseNegotiation 解析谈判教练回复
// 每个字段都有默认值，置信度由回复长度推出并收敛到 [60,95]
func (s *InterpreterService) ParseNegotiation(content string, nctx model.NegotiationContext) model.AIResponse {
	strategy := "Analyse de la situation"
	if m := strategyRe.FindStringSubmatch(content); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			strategy = v
		}
	}

	actions := []string{"Analyser la contre-proposition", "Préparer des arguments"}
	if m := actionsRe.FindStringSubmatch(content); m != nil {
		var extracted []string
		for _, part := range actionSep.Split(m[1], -1) {
			if v := strings.TrimSpace(part); v != "" {
				extracted = append(extracted, v)
			}
		}
		if len(extracted) > 0 {
			actions = extracted
		}
	}

	confidence := float64(utf8.RuneCountInString(content)) / 10
	if confidence < 60 {
		confidence = 60
	}
	if confidence > 95 {
		confidence = 95
	}

	return model.AIResponse{
		Message:           content,
		Strategy:          strategy,
		Confidence:        confidence,
		SuggestedActions:  actions,
		RiskAssessment:    s.AssessRiskLevel(nctx, content),
		NextSteps:         NextSteps(nctx.Stage),
		EmotionalGuidance: EmotionalGuidance(content),
	}
}

// AssessRiskLevel 评估谈判风险等级
// 溢价（要价相对估值）与阶段为主要因子，回复文本的关键词做微调
func (s *InterpreterService) AssessRiskLevel(nctx model.NegotiationContext, content string) string {
	score := 50

	if nctx.AskingPrice > 0 && nctx.Valuation > 0 {
		premium := (nctx.AskingPrice - nctx.Valuation) / nctx.Valuation
		switch {
		case premium > 0.3:
			score += 30
		case premium >= 0.2:
			score += 25
		case premium < -0.1:
			score -= 10
		}
	}

	switch nctx.Stage {
	case model.StageInitial:
		score += 10
	case model.StageFinalTerms:
		score -= 5
	}

	lower := strings.ToLower(content)
	if strings.Contains(lower, "risque") || strings.Contains(lower, "problème") {
		score += 15
	}
	if strings.Contains(lower, "opportunité") || strings.Contains(lower, "synergie") {
		score -= 10
	}

	switch {
	case score > 70:
		return RiskHigh
	case score < 30:
		return RiskLow
	default:
		return RiskModerate
	}
}

// NextSteps 按阶段给出下一步建议
func NextSteps(stage string) []string {
	switch stage {
	case model.StageInitial:
		return []string{"Préparer l'argumentaire initial", "Analyser les multiples du marché", "Planifier la première réunion"}
	case model.StageValuation:
		return []string{"Négocier le prix", "Analyser les synergies", "Préparer le term sheet"}
	case model.StageDueDiligence:
		return []string{"Analyser les documents", "Identifier les risques", "Négocier les ajustements"}
	default:
		return []string{"Analyser la réponse de la contrepartie", "Préparer la contre-proposition", "Planifier la prochaine réunion"}
	}
}

// EmotionalGuidance 按回复内容给出姿态建议
func EmotionalGuidance(content string) string {
	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "agressif") || strings.Contains(lower, "pression"):
		return "Restez calme et professionnel. Évitez l'escalade."
	case strings.Contains(lower, "collaboratif") || strings.Contains(lower, "synergie"):
		return "Excellente approche collaborative. Continuez dans cette direction."
	case strings.Contains(lower, "doute") || strings.Contains(lower, "hésitation"):
		return "Prenez le temps de bien analyser. La précipitation peut être risquée."
	default:
		return "Restez confiant et orienté résultats."
	}
}

// parseAmount 去掉金额片段中的非数字字符后转数值
func parseAmount(fragment string) float64 {
	digits := nonDigitRe.ReplaceAllString(fragment, "")
	if digits == "" {
		return 0
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0
	}
	return v
}
