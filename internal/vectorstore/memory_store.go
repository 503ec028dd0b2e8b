package vectorstore

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Snippet 知识片段
type Snippet struct {
	ID       string    // 片段唯一标识
	Category string    // 所属分类（提示词按分类分组渲染）
	Title    string    // 标题
	Content  string    // 正文
	Vector   []float64 // 文本向量（可为空，空向量的片段只参与分类列举）
}

// SearchResult 检索结果
type SearchResult struct {
	Snippet Snippet // 片段
	Score   float64 // 相似度得分（0-1，越高越相似）
}

// MemoryStore 内存知识片段存储
type MemoryStore struct {
	snippets map[string]*Snippet
	mu       sync.RWMutex // 读写锁保护
	logger   *zap.Logger
}

// NewMemoryStore 创建内存存储
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		snippets: make(map[string]*Snippet),
		logger:   logger,
	}
}

// Add 添加片段
func (s *MemoryStore) Add(snippet Snippet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snippet.ID == "" {
		return fmt.Errorf("snippet ID cannot be empty")
	}

	s.snippets[snippet.ID] = &snippet
	s.logger.Debug("片段已添加", zap.String("id", snippet.ID), zap.String("category", snippet.Category))
	return nil
}

// AddBatch 批量添加片段
func (s *MemoryStore) AddBatch(snippets []Snippet) error {
	for _, snippet := range snippets {
		if err := s.Add(snippet); err != nil {
			return err
		}
	}
	return nil
}

// Search 向量检索（返回 Top-K 最相似的片段，无向量的片段不参与）
func (s *MemoryStore) Search(queryVector []float64, topK int, minScore float64) []SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.snippets))
	for _, snippet := range s.snippets {
		if len(snippet.Vector) == 0 {
			continue
		}
		score := cosineSimilarity(queryVector, snippet.Vector)
		if score >= minScore {
			results = append(results, SearchResult{Snippet: *snippet, Score: score})
		}
	}

	// 按相似度排序（降序）
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}

	return results
}

// ByCategory 按分类返回全部片段（分类名升序，分类内按标题升序）
func (s *MemoryStore) ByCategory() map[string][]Snippet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	grouped := make(map[string][]Snippet)
	for _, snippet := range s.snippets {
		grouped[snippet.Category] = append(grouped[snippet.Category], *snippet)
	}

	for category := range grouped {
		items := grouped[category]
		sort.Slice(items, func(i, j int) bool {
			return items[i].Title < items[j].Title
		})
		grouped[category] = items
	}

	return grouped
}

// Count 获取片段数量
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.snippets)
}

// Clear 清空存储
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snippets = make(map[string]*Snippet)
	s.logger.Info("知识存储已清空")
}

// cosineSimilarity 计算余弦相似度（0-1，越高越相似）
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (normA * normB)
}
