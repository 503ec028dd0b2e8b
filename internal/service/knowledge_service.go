package service

import (
	"context"
	"fmt"

	"github.com/tgim/tgim-assistant-go/internal/client"
	"github.com/tgim/tgim-assistant-go/internal/model"
	"github.com/tgim/tgim-assistant-go/internal/vectorstore"
	"go.uber.org/zap"
)

// 检索参数
const (
	knowledgeTopK     = 6
	knowledgeMinScore = 0.30
)

// KnowledgeReader 知识库表读取接口
type KnowledgeReader interface {
	ListAll(ctx context.Context) ([]model.KnowledgeItem, error)
}

// KnowledgeService 知识库服务
// 启动时把 tgim_knowledge 表加载进内存存储（可选向量化），
// 提示词构建时按分类分组返回与问题相关的片段
type KnowledgeService struct {
	repo            KnowledgeReader
	embeddingClient *client.EmbeddingClient
	store           *vectorstore.MemoryStore
	logger          *zap.Logger
}

// NewKnowledgeService 创建知识库服务
func NewKnowledgeService(repo KnowledgeReader, embeddingClient *client.EmbeddingClient, store *vectorstore.MemoryStore, logger *zap.Logger) *KnowledgeService {
	return &KnowledgeService{
		repo:            repo,
		embeddingClient: embeddingClient,
		store:           store,
		logger:          logger,
	}
}

// Load 加载知识库（表为空或读取失败时使用内置条目）
func (s *KnowledgeService) Load(ctx context.Context) error {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Warn("知识库表读取失败，使用内置条目", zap.Error(err))
		items = nil
	}
	if len(items) == 0 {
		items = defaultKnowledge()
	}

	snippets := make([]vectorstore.Snippet, len(items))
	for i, item := range items {
		snippets[i] = vectorstore.Snippet{
			ID:       fmt.Sprintf("%s/%s", item.Category, item.Title),
			Category: item.Category,
			Title:    item.Title,
			Content:  item.Content,
		}
	}

	// 向量化是尽力而为：失败只影响相关性排序，不影响分类分组
	if s.embeddingClient.Enabled() {
		texts := make([]string, len(items))
		for i, item := range items {
			texts[i] = item.Title + "\n" + item.Content
		}
		vectors, err := s.embeddingClient.GetEmbeddings(ctx, texts)
		if err != nil {
			s.logger.Warn("知识库向量化失败，退化为全量分组", zap.Error(err))
		} else {
			for i := range snippets {
				snippets[i].Vector = vectors[i]
			}
		}
	}

	if err := s.store.AddBatch(snippets); err != nil {
		return fmt.Errorf("加载知识库失败: %w", err)
	}

	s.logger.Info("知识库已加载", zap.Int("count", s.store.Count()))
	return nil
}

// RelevantGroups 返回与问题相关的知识片段，按分类分组
// 无向量能力或检索无结果时返回全部片段的分组
func (s *KnowledgeService) RelevantGroups(ctx context.Context, query string) map[string][]vectorstore.Snippet {
	if s.embeddingClient.Enabled() {
		queryVector, err := s.embeddingClient.GetEmbedding(ctx, query)
		if err != nil {
			s.logger.Warn("查询向量化失败，退化为全量分组", zap.Error(err))
			return s.store.ByCategory()
		}

		results := s.store.Search(queryVector, knowledgeTopK, knowledgeMinScore)
		if len(results) > 0 {
			grouped := make(map[string][]vectorstore.Snippet)
			for _, result := range results {
				grouped[result.Snippet.Category] = append(grouped[result.Snippet.Category], result.Snippet)
			}
			return grouped
		}
	}

	return s.store.ByCategory()
}

// defaultKnowledge 内置知识条目（TGIM 平台的基础方法论）
func defaultKnowledge() []model.KnowledgeItem {
	return []model.KnowledgeItem{
		{
			Category: "reprise",
			Title:    "Parcours de reprise",
			Content:  "La reprise d'une PME suit quatre étapes: ciblage et approche du cédant, lettre d'intention (LOI), due diligence, négociation finale et closing. Chaque étape conditionne la suivante; ne jamais signer une LOI sans avoir validé les chiffres clés.",
		},
		{
			Category: "valorisation",
			Title:    "Multiples de valorisation",
			Content:  "Une PME se valorise le plus souvent entre 4x et 7x l'EBITDA selon le secteur, la récurrence du chiffre d'affaires et la dépendance au dirigeant. La dette nette se déduit de la valeur d'entreprise pour obtenir la valeur des titres.",
		},
		{
			Category: "valorisation",
			Title:    "Facteurs de risque",
			Content:  "Concentration client supérieure à 20% du CA, dépendance forte au cédant, contrats non transférables et trésorerie structurellement négative sont les quatre principaux facteurs de décote.",
		},
		{
			Category: "negociation",
			Title:    "Approche collaborative",
			Content:  "Chercher la création de valeur mutuelle: crédit-vendeur, earn-out et accompagnement du cédant permettent de combler un écart de prix sans rompre la discussion.",
		},
		{
			Category: "negociation",
			Title:    "Gestion des objections",
			Content:  "Anticiper les objections du cédant sur le prix en s'appuyant sur des comparables sectoriels documentés; toujours reformuler l'objection avant d'y répondre.",
		},
		{
			Category: "financement",
			Title:    "Montage type",
			Content:  "Un montage classique combine apport personnel (10-30%), dette senior bancaire (50-70%) et crédit-vendeur (10-20%). Le remboursement de la dette doit rester couvert par 70% de l'EBITDA normatif.",
		},
	}
}
