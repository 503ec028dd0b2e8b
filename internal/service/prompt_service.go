package service

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/tgim/tgim-assistant-go/internal/model"
	"github.com/tgim/tgim-assistant-go/internal/vectorstore"
)

// 摘要渲染时每个列表最多取前 3 条
const summaryItemCap = 3

// promptCharBudget 系统指令的总字符预算
// 超出预算时从后往前丢弃上下文段落，人设与格式要求始终保留
const promptCharBudget = 12000

// assistantPersona 通用助手人设
const assistantPersona = "Tu es l'assistant IA de TGIM (Thank God it is Monday!), une plateforme française spécialisée dans la reprise d'entreprise. Tu es expert en acquisition de PME, négociation M&A, storytelling et financement. Réponds en français, avec clarté, concision et étapes actionnables."

// assistantFormat 通用助手回复结构要求
const assistantFormat = "Structure ta réponse: 1) Analyse 2) Stratégie 3) Arguments 4) Actions concrètes 5) Risques/opportunités. Utilise les connaissances TGIM pour donner des conseils pertinents sur la reprise d'entreprise."

// ValuationSystemPrompt 估值专家人设
const ValuationSystemPrompt = "Tu es un expert en évaluation de PME pour des M&A."

// PromptService 提示词构建服务
// 纯函数式：固定顺序拼接人设、知识库、上下文（或调用方覆盖文本）与格式要求
type PromptService struct{}

// NewPromptService 创建提示词构建服务
func NewPromptService() *PromptService {
	return &PromptService{}
}

// BuildAssistantPrompt 构建通用助手的系统指令
// knowledgeOverride 非空时完全取代数据库上下文段落
func (s *PromptService) BuildAssistantPrompt(groups map[string][]vectorstore.Snippet, agg *model.AggregatedContext, knowledgeOverride string) string {
	parts := []string{assistantPersona}

	if len(groups) > 0 {
		parts = append(parts, s.renderKnowledge(groups))
	}

	if override := strings.TrimSpace(knowledgeOverride); override != "" {
		parts = append(parts, "== DONNÉES FOURNIES PAR L'UTILISATEUR ==\n"+override)
	} else if agg != nil {
		if section := s.renderContext(agg); section != "" {
			parts = append(parts, section)
		}
	}

	return assemble(parts, assistantFormat)
}

// renderKnowledge 按分类渲染知识片段
func (s *PromptService) renderKnowledge(groups map[string][]vectorstore.Snippet) string {
	categories := make([]string, 0, len(groups))
	for category := range groups {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var b strings.Builder
	b.WriteString("== CONNAISSANCES TGIM ==")
	for _, category := range categories {
		b.WriteString(fmt.Sprintf("\n\n### %s", strings.ToUpper(category)))
		for _, snippet := range groups[category] {
			b.WriteString(fmt.Sprintf("\n**%s**: %s", snippet.Title, snippet.Content))
		}
	}
	return b.String()
}

// renderContext 渲染用户数据摘要（每个列表最多前 3 条，"名称 (属性)" 片段）
func (s *PromptService) renderContext(agg *model.AggregatedContext) string {
	var lines []string

	if agg.Profile != nil {
		lines = append(lines, fmt.Sprintf("Profil: %s %s", agg.Profile.FirstName, agg.Profile.LastName))
	}

	if len(agg.Targets) > 0 {
		fragments := make([]string, 0, summaryItemCap)
		for _, t := range capTargets(agg.Targets) {
			sector := t.Sector
			if sector == "" {
				sector = "secteur n/d"
			}
			fragments = append(fragments, fmt.Sprintf("%s (%s)", t.Name, sector))
		}
		lines = append(lines, "Cibles récentes: "+strings.Join(fragments, " | "))
	}

	if len(agg.Deals) > 0 {
		fragments := make([]string, 0, summaryItemCap)
		for _, d := range capDeals(agg.Deals) {
			name := d.Name
			if name == "" {
				name = d.ID
			}
			status := d.Status
			if status == "" {
				status = "n/d"
			}
			fragments = append(fragments, fmt.Sprintf("%s [%s]", name, status))
		}
		lines = append(lines, "Deals récents: "+strings.Join(fragments, " | "))
	}

	if len(agg.Evaluations) > 0 {
		fragments := make([]string, 0, summaryItemCap)
		for _, e := range capEvaluations(agg.Evaluations) {
			fragments = append(fragments, fmt.Sprintf("%s: %.0f€–%.0f€, risque %d/100",
				e.CompanyName, e.MinValuation, e.MaxValuation, e.RiskScore))
		}
		lines = append(lines, "Évaluations: "+strings.Join(fragments, " | "))
	}

	if len(agg.Calendar) > 0 {
		fragments := make([]string, 0, summaryItemCap)
		for _, e := range capEvents(agg.Calendar) {
			fragments = append(fragments, fmt.Sprintf("%s (%s)", e.Title, e.StartDate.Format("02/01/2006")))
		}
		lines = append(lines, "Agenda: "+strings.Join(fragments, " | "))
	}

	if len(agg.Announcements) > 0 {
		fragments := make([]string, 0, summaryItemCap)
		for _, a := range capAnnouncements(agg.Announcements) {
			fragments = append(fragments, a.Title)
		}
		lines = append(lines, "Annonces: "+strings.Join(fragments, " | "))
	}

	if len(lines) == 0 {
		return ""
	}
	return "== DONNÉES UTILISATEUR ==\n" + strings.Join(lines, "\n")
}

// BuildNegotiationPrompt 构建谈判教练的系统指令
func (s *PromptService) BuildNegotiationPrompt(nctx model.NegotiationContext) string {
	targetName := nctx.TargetName
	if targetName == "" {
		targetName = "Non spécifiée"
	}
	sector := nctx.Sector
	if sector == "" {
		sector = "Non spécifié"
	}
	valuation := "Non spécifiée"
	if nctx.Valuation > 0 {
		valuation = fmt.Sprintf("%.0f€", nctx.Valuation)
	}
	askingPrice := "Non spécifié"
	if nctx.AskingPrice > 0 {
		askingPrice = fmt.Sprintf("%.0f€", nctx.AskingPrice)
	}

	var b strings.Builder
	b.WriteString("Tu es un expert en négociation M&A, spécialisé dans l'acquisition de PME.\n\n")
	b.WriteString("CONTEXTE DE LA NÉGOCIATION:\n")
	b.WriteString(fmt.Sprintf("- Entreprise cible: %s\n", targetName))
	b.WriteString(fmt.Sprintf("- Secteur: %s\n", sector))
	b.WriteString(fmt.Sprintf("- Type de négociation: %s\n", nctx.NegotiationType))
	b.WriteString(fmt.Sprintf("- Étape actuelle: %s\n", nctx.Stage))
	b.WriteString(fmt.Sprintf("- Rôle de l'utilisateur: %s\n", nctx.UserRole))
	b.WriteString(fmt.Sprintf("- Rôle de la contrepartie: %s\n", nctx.CounterpartRole))
	b.WriteString(fmt.Sprintf("- Valorisation: %s\n", valuation))
	b.WriteString(fmt.Sprintf("- Prix demandé: %s\n", askingPrice))

	if len(nctx.KeyIssues) > 0 {
		b.WriteString("- Points clés: " + strings.Join(nctx.KeyIssues, ", ") + "\n")
	}

	b.WriteString(`
STRATÉGIES DE NÉGOCIATION M&A:
1. **Approche collaborative**: Créer de la valeur mutuelle
2. **Analyse de multiples**: Comparer avec le marché
3. **Gestion des objections**: Anticiper et répondre
4. **Timing stratégique**: Identifier les moments clés
5. **Création de valeur**: Proposer des synergies

TON RÔLE:
- Analyser la situation de négociation
- Proposer des stratégies adaptées
- Donner des arguments concrets
- Anticiper les objections
- Suggérer des contre-propositions
- Évaluer les risques et opportunités

RÉPONSE ATTENDUE:
- Analyse de la situation
- Stratégie recommandée
- Arguments à utiliser
- Actions concrètes à entreprendre
- Évaluation des risques

Sois précis, professionnel et orienté résultats.`)

	return applyBudget(b.String())
}

// BuildValuationPrompt 根据估值表单构建用户提示词
func (s *PromptService) BuildValuationPrompt(req model.ValuationRequest) string {
	var b strings.Builder
	b.WriteString("Voici les informations sur une entreprise à valoriser :\n\n")
	b.WriteString(fmt.Sprintf("Secteur : %s\n", req.Sector))
	b.WriteString(fmt.Sprintf("Pays : %s\n", req.Country))
	b.WriteString(fmt.Sprintf("CA actuel : %.0f €\n", req.CA))
	b.WriteString(fmt.Sprintf("CA N-1 : %.0f €\n", req.CAN1))
	b.WriteString(fmt.Sprintf("CA N-2 : %.0f €\n", req.CAN2))
	b.WriteString(fmt.Sprintf("EBITDA : %.0f €\n", req.EBITDA))
	b.WriteString(fmt.Sprintf("Dette nette : %.0f €\n", req.Debt))
	b.WriteString(fmt.Sprintf("Trésorerie : %.0f €\n", req.Treasury))
	b.WriteString(fmt.Sprintf("Croissance annualisée : %.1f %%\n", req.Growth))
	b.WriteString(fmt.Sprintf("Nombre d'employés : %d\n", req.Employees))
	b.WriteString(fmt.Sprintf("Barrières à l'entrée : %s\n", req.Barriers))
	b.WriteString(fmt.Sprintf("Répartition clients : %s\n", req.Clients))
	b.WriteString(fmt.Sprintf("Digital : %s\n", req.Digital))
	b.WriteString(fmt.Sprintf("Notoriété/Marque : %s\n", req.Brand))
	b.WriteString(fmt.Sprintf("Commentaires : %s\n", req.Comment))
	b.WriteString(`
Génère sur cette base l'analyse d'un expert en évaluation d'entreprise :
- Donne une fourchette de valorisation réaliste en euros.
- Donne un score de risque sur 100 (100=risque élevé) pour la cible.
- Explique ta méthode et fournis un rapport structuré en moins de 15 lignes.
- Le format doit être en français.
- Format de ta réponse :
Fourchette: [MIN] € – [MAX] €
Risque: [SCORE] /100
Rapport: [texte structuré court].`)

	return b.String()
}

// assemble 按预算拼接段落：首段人设与末尾格式要求始终保留，
// 中间段落按顺序累加，放不下的整段丢弃
func assemble(parts []string, closing string) string {
	if len(parts) == 0 {
		return closing
	}

	budget := promptCharBudget - utf8.RuneCountInString(parts[0]) - utf8.RuneCountInString(closing)
	kept := []string{parts[0]}
	for _, part := range parts[1:] {
		size := utf8.RuneCountInString(part) + 2
		if size > budget {
			break
		}
		kept = append(kept, part)
		budget -= size
	}

	kept = append(kept, closing)
	return strings.Join(kept, "\n\n")
}

// applyBudget 对单块文本施加预算（超出部分从尾部截断）
func applyBudget(s string) string {
	if utf8.RuneCountInString(s) <= promptCharBudget {
		return s
	}
	runes := []rune(s)
	return string(runes[:promptCharBudget])
}

func capTargets(items []model.Target) []model.Target {
	if len(items) > summaryItemCap {
		return items[:summaryItemCap]
	}
	return items
}

func capDeals(items []model.Deal) []model.Deal {
	if len(items) > summaryItemCap {
		return items[:summaryItemCap]
	}
	return items
}

func capEvaluations(items []model.Evaluation) []model.Evaluation {
	if len(items) > summaryItemCap {
		return items[:summaryItemCap]
	}
	return items
}

func capEvents(items []model.CalendarEvent) []model.CalendarEvent {
	if len(items) > summaryItemCap {
		return items[:summaryItemCap]
	}
	return items
}

func capAnnouncements(items []model.Announcement) []model.Announcement {
	if len(items) > summaryItemCap {
		return items[:summaryItemCap]
	}
	return items
}
