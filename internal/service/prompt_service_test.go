package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgim/tgim-assistant-go/internal/model"
	"github.com/tgim/tgim-assistant-go/internal/vectorstore"
)

func TestBuildAssistantPrompt(t *testing.T) {
	s := NewPromptService()

	groups := map[string][]vectorstore.Snippet{
		"valorisation": {{Title: "Multiples", Content: "4x à 7x l'EBITDA"}},
		"reprise":      {{Title: "Parcours", Content: "LOI puis due diligence"}},
	}
	agg := &model.AggregatedContext{
		Profile: &model.Profile{FirstName: "Marie", LastName: "Dupont"},
		Deals:   []model.Deal{{Name: "Projet Alpha", Status: "loi"}},
	}

	t.Run("固定顺序拼接", func(t *testing.T) {
		prompt := s.BuildAssistantPrompt(groups, agg, "")

		personaIdx := strings.Index(prompt, "Tu es l'assistant IA de TGIM")
		knowledgeIdx := strings.Index(prompt, "== CONNAISSANCES TGIM ==")
		contextIdx := strings.Index(prompt, "== DONNÉES UTILISATEUR ==")
		formatIdx := strings.Index(prompt, "Structure ta réponse")

		require.NotEqual(t, -1, personaIdx)
		require.NotEqual(t, -1, knowledgeIdx)
		require.NotEqual(t, -1, contextIdx)
		require.NotEqual(t, -1, formatIdx)
		assert.Less(t, personaIdx, knowledgeIdx)
		assert.Less(t, knowledgeIdx, contextIdx)
		assert.Less(t, contextIdx, formatIdx)

		assert.Contains(t, prompt, "Profil: Marie Dupont")
		assert.Contains(t, prompt, "Projet Alpha [loi]")
	})

	t.Run("知识分类按字典序渲染", func(t *testing.T) {
		prompt := s.BuildAssistantPrompt(groups, nil, "")
		assert.Less(t, strings.Index(prompt, "### REPRISE"), strings.Index(prompt, "### VALORISATION"))
	})

	t.Run("覆盖文本完全取代数据库上下文", func(t *testing.T) {
		prompt := s.BuildAssistantPrompt(groups, agg, "Bilan 2025 de la cible: CA 2M€")

		assert.Contains(t, prompt, "== DONNÉES FOURNIES PAR L'UTILISATEUR ==")
		assert.Contains(t, prompt, "Bilan 2025 de la cible")
		assert.NotContains(t, prompt, "== DONNÉES UTILISATEUR ==")
		assert.NotContains(t, prompt, "Marie Dupont")
	})

	t.Run("每个列表最多渲染前 3 条", func(t *testing.T) {
		many := &model.AggregatedContext{
			Targets: []model.Target{
				{Name: "T1", Sector: "Tech"},
				{Name: "T2", Sector: "Tech"},
				{Name: "T3", Sector: "Tech"},
				{Name: "T4", Sector: "Tech"},
			},
		}
		prompt := s.BuildAssistantPrompt(nil, many, "")

		assert.Contains(t, prompt, "T3 (Tech)")
		assert.NotContains(t, prompt, "T4")
	})

	t.Run("超预算段落整段丢弃", func(t *testing.T) {
		huge := strings.Repeat("x", promptCharBudget)
		prompt := s.BuildAssistantPrompt(nil, nil, huge)

		assert.NotContains(t, prompt, "xxxx")
		assert.Contains(t, prompt, "Structure ta réponse")
		assert.LessOrEqual(t, len([]rune(prompt)), promptCharBudget)
	})
}

func TestBuildNegotiationPrompt(t *testing.T) {
	s := NewPromptService()

	t.Run("完整上下文", func(t *testing.T) {
		prompt := s.BuildNegotiationPrompt(model.NegotiationContext{
			TargetName:      "Boulangerie Martin",
			Sector:          "Agroalimentaire",
			NegotiationType: "acquisition",
			Stage:           model.StageValuation,
			UserRole:        "buyer",
			CounterpartRole: "seller",
			Valuation:       1000000,
			AskingPrice:     1300000,
			KeyIssues:       []string{"clause de non-concurrence"},
		})

		assert.Contains(t, prompt, "Entreprise cible: Boulangerie Martin")
		assert.Contains(t, prompt, "Valorisation: 1000000€")
		assert.Contains(t, prompt, "Prix demandé: 1300000€")
		assert.Contains(t, prompt, "Points clés: clause de non-concurrence")
		assert.Contains(t, prompt, "STRATÉGIES DE NÉGOCIATION M&A")
	})

	t.Run("缺省字段有占位", func(t *testing.T) {
		prompt := s.BuildNegotiationPrompt(model.NegotiationContext{Stage: model.StageInitial})

		assert.Contains(t, prompt, "Entreprise cible: Non spécifiée")
		assert.Contains(t, prompt, "Valorisation: Non spécifiée")
		assert.Contains(t, prompt, "Prix demandé: Non spécifié")
	})
}

func TestBuildValuationPrompt(t *testing.T) {
	s := NewPromptService()

	prompt := s.BuildValuationPrompt(model.ValuationRequest{
		Sector:    "Tech",
		Country:   "France",
		CA:        1000000,
		EBITDA:    150000,
		Employees: 12,
	})

	assert.Contains(t, prompt, "Secteur : Tech")
	assert.Contains(t, prompt, "CA actuel : 1000000 €")
	assert.Contains(t, prompt, "EBITDA : 150000 €")
	// 输出格式约定，解析端依赖这几行
	assert.Contains(t, prompt, "Fourchette: [MIN] € – [MAX] €")
	assert.Contains(t, prompt, "Risque: [SCORE] /100")
}
